package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sumologic-library/query-profiler/models"
)

// recordLimit is the API's page size ceiling for record fetches.
const recordLimit = 10000

const noRecords = "NORECORDS"

type recordFetcher interface {
	SearchJobRecords(ctx context.Context, jobID string, limit, offset int) (models.RecordsResponse, error)
}

// AssembleOutput pages the job's aggregate records and renders them as
// delimited text: a header row of field names, then one row per record.
// Cell values have commas masked to pipes so CSV output stays rectangular.
func AssembleOutput(ctx context.Context, api recordFetcher, jobID string, recordCount int, sep string) (string, error) {
	if recordCount == 0 {
		return noRecords, nil
	}

	pages := (recordCount + recordLimit - 1) / recordLimit

	var header string
	var rows []string
	for page := 0; page < pages; page++ {
		resp, err := api.SearchJobRecords(ctx, jobID, recordLimit, page*recordLimit)
		if err != nil {
			return "", err
		}

		names := resp.FieldNames()
		header = strings.Join(names, sep)
		for _, record := range resp.Records {
			cells := make([]string, 0, len(names))
			for _, name := range names {
				cells = append(cells, strings.ReplaceAll(record.Map[name], ",", "|"))
			}
			rows = append(rows, strings.Join(cells, sep))
		}
	}

	return header + "\n" + strings.Join(rows, "\n"), nil
}

// WriteOutput writes one query's rendered output under the outputs
// directory as sumoquery.<target>.<NNN>.<format> and returns the path.
func WriteOutput(outputsDir, target string, queryNumber int, format, content string) (string, error) {
	name := fmt.Sprintf("sumoquery.%s.%03d.%s", target, queryNumber, format)
	path := filepath.Join(outputsDir, name)
	if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return path, nil
}

package rewrite

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sumologic-library/query-profiler/file"
)

const dumpPattern = "*rdscq.csv"

// Config holds everything one rewrite invocation needs.
type Config struct {
	Site    string
	DumpDir string
	EtcDir  string
	Workers int
}

// Dictionaries are the lookup tables driving classification: query terms to
// documentation URLs (operators) and field or term markers to profile
// keywords (classifier).
type Dictionaries struct {
	Classifier map[string]string
	Operators  map[string]string
}

// LoadDictionaries reads classifier.csv and operators.csv from the etc
// directory.
func LoadDictionaries(etcDir string) (*Dictionaries, error) {
	classifier, err := loadCSVMap(filepath.Join(etcDir, "classifier.csv"))
	if err != nil {
		return nil, err
	}
	operators, err := loadCSVMap(filepath.Join(etcDir, "operators.csv"))
	if err != nil {
		return nil, err
	}
	return &Dictionaries{Classifier: classifier, Operators: operators}, nil
}

func loadCSVMap(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	out := make(map[string]string)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		out[row[0]] = row[1]
	}
	return out, nil
}

// LoadSiteList reads the known deployments from sitelist.cfg, one per line.
func LoadSiteList(etcDir string) ([]string, error) {
	path := filepath.Join(etcDir, "sitelist.cfg")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var sites []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			sites = append(sites, line)
		}
	}
	return sites, nil
}

// Run extracts and washes every query found in the dump directory's
// *rdscq.csv files, fanning the files out over the worker pool.
func Run(cfg *Config) error {
	dicts, err := LoadDictionaries(cfg.EtcDir)
	if err != nil {
		return err
	}

	dumps, err := file.MatchingFiles(cfg.DumpDir, dumpPattern)
	if err != nil {
		return fmt.Errorf("failed to scan dump directory: %w", err)
	}

	if cfg.Site != "" && cfg.Site != "all" {
		sites, err := LoadSiteList(cfg.EtcDir)
		if err != nil {
			return err
		}
		known := false
		for _, site := range sites {
			if site == cfg.Site {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("site %q is not in sitelist.cfg", cfg.Site)
		}
		dumps = filterBySite(dumps, cfg.Site)
	}

	if len(dumps) == 0 {
		return fmt.Errorf("no %s files found under %s", dumpPattern, cfg.DumpDir)
	}

	log.Printf("Rewriting queries from %d dump files", len(dumps))

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	work := make(chan string)
	errCh := make(chan error, len(dumps))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dump := range work {
				if err := ExtractDump(dump, dicts); err != nil {
					errCh <- fmt.Errorf("dump %s: %w", dump, err)
				}
			}
		}()
	}

	for _, dump := range dumps {
		work <- dump
	}
	close(work)
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func filterBySite(dumps []string, site string) []string {
	var filtered []string
	for _, dump := range dumps {
		if strings.Contains(dump, site) {
			filtered = append(filtered, dump)
		}
	}
	return filtered
}

// ExtractDump pulls each row's query column out of one dump file, writing
// the raw query under the sibling txt directory and the washed query plus
// its profile sidecar under slq.
func ExtractDump(dumpFile string, dicts *Dictionaries) error {
	srcDir := filepath.Dir(dumpFile)
	txtDir := filepath.Join(srcDir, "..", "txt")
	slqDir := filepath.Join(srcDir, "..", "slq")
	for _, dir := range []string{txtDir, slqDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	f, err := os.Open(dumpFile)
	if err != nil {
		return fmt.Errorf("failed to open dump file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read dump header: %w", err)
	}
	queryColumn := -1
	for i, name := range header {
		if name == "query" {
			queryColumn = i
			break
		}
	}
	if queryColumn == -1 {
		return fmt.Errorf("dump file has no query column")
	}

	base := strings.TrimSuffix(filepath.Base(dumpFile), ".csv")

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read dump row: %w", err)
		}
		if queryColumn >= len(record) {
			row++
			continue
		}
		raw := record[queryColumn]

		txtFile := filepath.Join(txtDir, fmt.Sprintf("%s.%d.txt", base, row))
		slqFile := filepath.Join(slqDir, fmt.Sprintf("%s.%d.txt", base, row))
		profileFile := filepath.Join(slqDir, fmt.Sprintf("%s.%d.profile.txt", base, row))

		if err := os.WriteFile(txtFile, []byte(raw+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", txtFile, err)
		}

		washed := Wash(raw, dicts)
		if err := os.WriteFile(slqFile, []byte(washed.Render()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", slqFile, err)
		}
		if err := os.WriteFile(profileFile, []byte(washed.ProfileLine(slqFile)), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", profileFile, err)
		}

		row++
	}

	return nil
}

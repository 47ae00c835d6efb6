package profile

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sumologic-library/query-profiler/client"
	"github.com/sumologic-library/query-profiler/db"
	"github.com/sumologic-library/query-profiler/file"
	"github.com/sumologic-library/query-profiler/models"
)

const (
	queryExt       = ".sqy"
	longQueryLimit = 100

	defaultQuery = `_index=sumologic_volume
| count by _sourceCategory`
)

// Config holds everything one profile invocation needs.
type Config struct {
	APIKey    string
	Targets   []string
	Query     string
	Range     string
	Format    string
	OutputDir string
	Endpoint  string
	Sleep     int
	Workers   int
	Cleanup   bool
	Verbose   int
}

// searchAPI is the slice of the Sumo client a profiling run needs.
type searchAPI interface {
	StartSearchJob(ctx context.Context, query string, tr models.TimeRange) (models.SearchJob, error)
	WaitForCompletion(ctx context.Context, jobID string) (models.Tally, error)
	SearchJobRecords(ctx context.Context, jobID string, limit, offset int) (models.RecordsResponse, error)
	DeleteSearchJob(ctx context.Context, jobID string) error
}

// ResolveTargets expands the -t values. A value naming a readable file
// contributes one target per line; anything else is a literal
// <deployment>_<orgid> target.
func ResolveTargets(values []string) ([]string, error) {
	var targets []string
	for _, value := range values {
		info, err := os.Stat(value)
		if err != nil || info.IsDir() {
			targets = append(targets, value)
			continue
		}

		f, err := os.Open(value)
		if err != nil {
			return nil, fmt.Errorf("failed to open target file %s: %w", value, err)
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				targets = append(targets, line)
			}
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read target file %s: %w", value, err)
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets resolved")
	}
	return targets, nil
}

// CollectQueries expands the -q value into query sources. A directory is
// walked for .sqy files, a file or literal string stands for itself, and an
// empty value falls back to the built-in volume query.
func CollectQueries(value string) ([]string, error) {
	if value == "" {
		return []string{defaultQuery}, nil
	}

	info, err := os.Stat(value)
	if err != nil {
		// Not a path, treat it as a literal query.
		return []string{value}, nil
	}
	if !info.IsDir() {
		return []string{value}, nil
	}

	queries, err := file.QueryFiles(value, []string{queryExt})
	if err != nil {
		return nil, fmt.Errorf("failed to walk query directory %s: %w", value, err)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no %s files found under %s", queryExt, value)
	}
	return queries, nil
}

// LoadQuery returns the query text behind a source: file contents when the
// source is a file, the source itself otherwise.
func LoadQuery(source string) (string, error) {
	info, err := os.Stat(source)
	if err != nil || info.IsDir() {
		return source, nil
	}
	content, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to read query file %s: %w", source, err)
	}
	return string(content), nil
}

// TailorQuery substitutes the target's placeholders into a query before
// submission.
func TailorQuery(query, target string) (string, error) {
	deployment, orgID, ok := strings.Cut(target, "_")
	if !ok {
		return "", fmt.Errorf("target %q must look like <deployment>_<orgid>", target)
	}

	replacements := map[string]string{
		"{{deployment}}":           deployment,
		"{{org_id}}":               orgID,
		"{{key}}":                  target,
		"{{longquery_limit_stmt}}": fmt.Sprintf("%d", longQueryLimit),
	}
	for placeholder, value := range replacements {
		query = strings.ReplaceAll(query, placeholder, value)
	}
	return query, nil
}

// Run executes the configured queries against the configured targets,
// fanning targets out over the worker pool.
func Run(ctx context.Context, cfg *Config) error {
	sep, err := separatorFor(cfg.Format)
	if err != nil {
		return err
	}

	creds, err := client.ResolveCredentials(ctx, cfg.APIKey)
	if err != nil {
		return err
	}

	pendingDir, outputsDir, err := ensureOutputDirs(cfg.OutputDir)
	if err != nil {
		return err
	}

	var targets []string
	if cfg.Cleanup {
		targets, err = pendingTargets(pendingDir)
	} else {
		targets, err = ResolveTargets(cfg.Targets)
	}
	if err != nil {
		return err
	}

	queries, err := CollectQueries(cfg.Query)
	if err != nil {
		return err
	}

	timeRange, err := models.ParseRange(cfg.Range, time.Now())
	if err != nil {
		return err
	}

	store, err := db.InitDB(filepath.Join(cfg.OutputDir, "sumoquery.db"))
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(targets) {
		workers = len(targets)
	}

	log.Printf("Profiling %d queries against %d targets with %d workers", len(queries), len(targets), workers)

	run := &runner{
		cfg:        cfg,
		creds:      creds,
		sep:        sep,
		pendingDir: pendingDir,
		outputsDir: outputsDir,
		store:      store,
		timeRange:  timeRange,
		queries:    queries,
	}

	work := make(chan string)
	errCh := make(chan error, len(targets))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range work {
				if err := run.processTarget(ctx, target); err != nil {
					errCh <- fmt.Errorf("target %s: %w", target, err)
				}
			}
		}()
	}

	for _, target := range targets {
		work <- target
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

type runner struct {
	cfg        *Config
	creds      client.Credentials
	sep        string
	pendingDir string
	outputsDir string
	store      *sql.DB
	timeRange  models.TimeRange
	queries    []string
}

func (r *runner) processTarget(ctx context.Context, target string) error {
	api, err := r.apiFor(target)
	if err != nil {
		return err
	}
	return r.profileTarget(ctx, api, target)
}

func (r *runner) apiFor(target string) (searchAPI, error) {
	endpoint := r.cfg.Endpoint
	if endpoint == "" {
		deployment, _, _ := strings.Cut(target, "_")
		endpoint = client.EndpointFor(deployment)
	}
	return client.New(endpoint, r.creds, time.Duration(r.cfg.Sleep)*time.Second)
}

// profileTarget runs every query against one target. The pending
// placeholder stays behind when a query fails so a cleanup run can pick the
// target up again.
func (r *runner) profileTarget(ctx context.Context, api searchAPI, target string) error {
	placeholder := filepath.Join(r.pendingDir, target)
	if err := os.WriteFile(placeholder, nil, 0o644); err != nil {
		return fmt.Errorf("failed to touch placeholder: %w", err)
	}

	for i, source := range r.queries {
		if err := r.profileQuery(ctx, api, target, source, i+1); err != nil {
			return err
		}
		sleepJitter(ctx, time.Duration(r.cfg.Sleep)*time.Second)
	}

	if err := os.Remove(placeholder); err != nil {
		return fmt.Errorf("failed to remove placeholder: %w", err)
	}
	return nil
}

func (r *runner) profileQuery(ctx context.Context, api searchAPI, target, source string, number int) error {
	query, err := LoadQuery(source)
	if err != nil {
		return err
	}
	query, err = TailorQuery(query, target)
	if err != nil {
		return err
	}

	job, err := api.StartSearchJob(ctx, query, r.timeRange)
	if err != nil {
		return err
	}
	if r.cfg.Verbose > 3 {
		log.Printf("%s: job %s started", target, job.ID)
	}

	tally, err := api.WaitForCompletion(ctx, job.ID)
	if err != nil {
		return err
	}
	if r.cfg.Verbose > 4 {
		log.Printf("%s: job %s state=%s messages=%d records=%d polls=%d elapsed=%s",
			target, job.ID, tally.State, tally.Messages, tally.Records, tally.Polls, tally.Elapsed)
	}

	output, err := AssembleOutput(ctx, api, job.ID, tally.Records, r.sep)
	if err != nil {
		return err
	}

	path, err := WriteOutput(r.outputsDir, target, number, r.cfg.Format, output)
	if err != nil {
		return err
	}
	if r.cfg.Verbose > 3 {
		log.Printf("%s: wrote %s", target, path)
	}

	if _, err := db.SaveRun(r.store, models.Run{
		Target:   target,
		QuerySrc: source,
		Query:    query,
		JobID:    job.ID,
		State:    tally.State,
		Messages: tally.Messages,
		Records:  tally.Records,
		Polls:    tally.Polls,
		Elapsed:  tally.Elapsed,
	}); err != nil {
		return err
	}

	if err := api.DeleteSearchJob(ctx, job.ID); err != nil {
		log.Printf("%s: failed to delete job %s: %v", target, job.ID, err)
	}
	return nil
}

// pendingTargets lists the targets a crashed run left behind.
func pendingTargets(pendingDir string) ([]string, error) {
	entries, err := os.ReadDir(pendingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending targets: %w", err)
	}

	var targets []string
	for _, entry := range entries {
		if !entry.IsDir() {
			targets = append(targets, entry.Name())
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no pending targets to clean up")
	}
	return targets, nil
}

func ensureOutputDirs(base string) (pending, outputs string, err error) {
	pending = filepath.Join(base, "pending")
	outputs = filepath.Join(base, "outputs")
	for _, dir := range []string{base, pending, outputs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return pending, outputs, nil
}

func separatorFor(format string) (string, error) {
	switch format {
	case "csv":
		return ",", nil
	case "txt":
		return "\t", nil
	}
	return "", fmt.Errorf("output format must be csv or txt, got %q", format)
}

func sleepJitter(ctx context.Context, max time.Duration) {
	if max <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(rand.Int63n(int64(max) + 1))):
	}
}

package history

import (
	"fmt"

	"github.com/sumologic-library/query-profiler/db"
	"github.com/sumologic-library/query-profiler/models"
)

// Config holds the configuration for a history lookup.
type Config struct {
	DBFile  string
	Target  string
	Slowest bool
	Limit   int
}

// Run returns recorded profiling runs, newest first or slowest first.
func Run(cfg *Config) ([]models.Run, error) {
	store, err := db.InitDB(cfg.DBFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	if cfg.Slowest {
		return db.SlowestRuns(store, cfg.Limit)
	}
	return db.ListRuns(store, cfg.Target, cfg.Limit)
}

// Summarize aggregates recorded runs per target, slowest average first.
func Summarize(cfg *Config) ([]db.TargetSummary, error) {
	store, err := db.InitDB(cfg.DBFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	return db.SummarizeTargets(store)
}

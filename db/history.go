package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sumologic-library/query-profiler/models"
)

const runColumns = `id, target, query_src, query, job_id, state, message_count, record_count, polls, elapsed_ms, created_at`

// ListRuns returns recorded runs, newest first. An empty target matches all
// targets.
func ListRuns(db *sql.DB, target string, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows *sql.Rows
	var err error
	if target == "" {
		rows, err = db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	} else {
		rows, err = db.Query(`SELECT `+runColumns+` FROM runs WHERE target = ? ORDER BY created_at DESC, id DESC LIMIT ?`, target, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	return scanRuns(rows)
}

// SlowestRuns returns the runs that took the longest wall-clock time.
func SlowestRuns(db *sql.DB, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY elapsed_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query slowest runs: %w", err)
	}

	return scanRuns(rows)
}

// TargetSummary aggregates the recorded runs of one target.
type TargetSummary struct {
	Target     string
	Runs       int
	AvgElapsed time.Duration
	MaxElapsed time.Duration
	Records    int
}

// SummarizeTargets reports per-target aggregates over all recorded runs,
// slowest average first.
func SummarizeTargets(db *sql.DB) ([]TargetSummary, error) {
	rows, err := db.Query(`
		SELECT target, COUNT(*), AVG(elapsed_ms), MAX(elapsed_ms), SUM(record_count)
		FROM runs
		GROUP BY target
		ORDER BY AVG(elapsed_ms) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query target summaries: %w", err)
	}
	defer rows.Close()

	var summaries []TargetSummary
	for rows.Next() {
		var summary TargetSummary
		var avgMillis, maxMillis float64
		if err := rows.Scan(&summary.Target, &summary.Runs, &avgMillis, &maxMillis, &summary.Records); err != nil {
			return nil, fmt.Errorf("failed to scan target summary: %w", err)
		}
		summary.AvgElapsed = time.Duration(avgMillis) * time.Millisecond
		summary.MaxElapsed = time.Duration(maxMillis) * time.Millisecond
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during summary iteration: %w", err)
	}

	return summaries, nil
}

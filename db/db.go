package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sumologic-library/query-profiler/models"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			target TEXT NOT NULL,
			query_src TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL,
			job_id TEXT NOT NULL,
			state TEXT NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0,
			record_count INTEGER NOT NULL DEFAULT 0,
			polls INTEGER NOT NULL DEFAULT 0,
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("error creating runs table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_target ON runs (target);`)
	if err != nil {
		return nil, fmt.Errorf("error creating runs index: %w", err)
	}

	return db, nil
}

// SaveRun records one finished profiling run.
func SaveRun(db *sql.DB, run models.Run) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (target, query_src, query, job_id, state, message_count, record_count, polls, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Target,
		run.QuerySrc,
		run.Query,
		run.JobID,
		run.State,
		run.Messages,
		run.Records,
		run.Polls,
		run.Elapsed.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return lastID, nil
}

func scanRuns(rows *sql.Rows) ([]models.Run, error) {
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		var elapsedMillis int64
		var createdAt time.Time
		err := rows.Scan(&run.ID, &run.Target, &run.QuerySrc, &run.Query, &run.JobID,
			&run.State, &run.Messages, &run.Records, &run.Polls, &elapsedMillis, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		run.Elapsed = time.Duration(elapsedMillis) * time.Millisecond
		run.CreatedAt = createdAt
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during run row iteration: %w", err)
	}

	return runs, nil
}

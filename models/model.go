package models

import "time"

// Run is one recorded profiling run: a single query executed against a
// single target org, with the counters gathered while the job ran.
type Run struct {
	ID        int64
	Target    string
	QuerySrc  string
	Query     string
	JobID     string
	State     string
	Messages  int
	Records   int
	Polls     int
	Elapsed   time.Duration
	CreatedAt time.Time
}

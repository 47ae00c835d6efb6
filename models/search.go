package models

import "time"

// Search job states reported by the API.
const (
	StateGathering   = "GATHERING RESULTS"
	StateDone        = "DONE GATHERING RESULTS"
	StateCancelled   = "CANCELLED"
	StateForcePaused = "FORCE PAUSED"
)

// SearchJobRequest is the POST body for /v1/search/jobs. The API accepts
// from/to as epoch milliseconds encoded as strings.
type SearchJobRequest struct {
	Query         string `json:"query"`
	From          string `json:"from"`
	To            string `json:"to"`
	TimeZone      string `json:"timeZone"`
	ByReceiptTime string `json:"byReceiptTime"`
}

// SearchJob identifies a created search job.
type SearchJob struct {
	ID string `json:"id"`
}

// SearchJobStatus is the polling response for a running job.
type SearchJobStatus struct {
	State           string   `json:"state"`
	MessageCount    int      `json:"messageCount"`
	RecordCount     int      `json:"recordCount"`
	PendingErrors   []string `json:"pendingErrors"`
	PendingWarnings []string `json:"pendingWarnings"`
}

// Done reports whether the job has left the gathering state.
func (s SearchJobStatus) Done() bool {
	return s.State != StateGathering
}

// Field describes one column of a job's aggregate output.
type Field struct {
	Name      string `json:"name"`
	FieldType string `json:"fieldType"`
	KeyField  bool   `json:"keyField"`
}

// Record is a single aggregate row keyed by field name.
type Record struct {
	Map map[string]string `json:"map"`
}

// RecordsResponse is a page of aggregate records.
type RecordsResponse struct {
	Fields  []Field  `json:"fields"`
	Records []Record `json:"records"`
}

// FieldNames returns the column names in API order.
func (r RecordsResponse) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for _, field := range r.Fields {
		names = append(names, field.Name)
	}
	return names
}

// MessagesResponse is a page of raw messages.
type MessagesResponse struct {
	Fields   []Field  `json:"fields"`
	Messages []Record `json:"messages"`
}

// Tally is the profiling outcome of waiting a job out: the terminal state,
// how much the job produced, how many polls it took and how long it ran.
type Tally struct {
	State    string
	Messages int
	Records  int
	Polls    int
	Elapsed  time.Duration
}

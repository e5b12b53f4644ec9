package deploylog

import "time"

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeAborted = "aborted"
)

// Entry represents one executed (or aborted) action invocation.
type Entry struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Database   string    `json:"database,omitempty"`
	Params     string    `json:"params,omitempty"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

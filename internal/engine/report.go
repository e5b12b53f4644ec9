package engine

import "time"

// State is the terminal state of a plan execution.
type State int

const (
	// Completed means every step succeeded.
	Completed State = iota

	// Aborted means the user declined the confirmation prompt before any
	// step ran.
	Aborted

	// Failed means a step returned an error and the plan halted there.
	Failed
)

func (s State) String() string {
	switch s {
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// StepResult records the outcome of one executed step.
type StepResult struct {
	Action   string
	Duration time.Duration
	Err      error
}

// Report is the per-invocation execution record.
type Report struct {
	State State
	Steps []StepResult
}

func (r *Report) record(name string, duration time.Duration, err error) {
	r.Steps = append(r.Steps, StepResult{Action: name, Duration: duration, Err: err})
}

package sequencer

import (
	"time"

	"github.com/Iron-Ham/zeromunge/internal/artifact"
	"github.com/Iron-Ham/zeromunge/internal/job"
)

// State is the lifecycle of a run.
//
//	Idle -> Running -> Completed | Aborted | Failed
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the run has ended.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateFailed
}

// Outcome is what happened to one job of a run.
type Outcome string

const (
	OutcomePending      Outcome = "pending"
	OutcomeRunning      Outcome = "running"
	OutcomeSucceeded    Outcome = "succeeded"
	OutcomeFailed       Outcome = "failed"
	OutcomeLaunchFailed Outcome = "launch_failed"
	OutcomeAborted      Outcome = "aborted"
	OutcomeSkipped      Outcome = "skipped"
)

// JobResult records one job of a run.
type JobResult struct {
	Index    int
	Job      job.Descriptor
	Outcome  Outcome
	ExitCode int
	Copies   []artifact.Result
	Err      error
	Started  time.Time
	Finished time.Time
}

// CopyFailures counts artifacts that could not be copied.
func (r JobResult) CopyFailures() int {
	n := 0
	for _, c := range r.Copies {
		if !c.OK() {
			n++
		}
	}
	return n
}

// Result summarizes a run. It is a snapshot; later changes to the
// sequencer do not affect it.
type Result struct {
	RunID string
	State State
	Jobs  []JobResult
	// Err is the LaunchError, JobFailedError or AbortedError that ended the
	// run, or nil when it completed.
	Err      error
	Started  time.Time
	Finished time.Time
}

// Duration is the wall time of the run.
func (r Result) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Failed counts jobs that did not succeed, including launch failures.
func (r Result) Failed() int {
	n := 0
	for _, j := range r.Jobs {
		if j.Outcome == OutcomeFailed || j.Outcome == OutcomeLaunchFailed {
			n++
		}
	}
	return n
}

package event

import (
	"fmt"
	"time"
)

// Level classifies an event for display and filtering.
type Level int

const (
	// LevelMunge marks raw script output.
	LevelMunge Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelMunge:
		return "munge"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel converts a level name back to a Level.
func ParseLevel(s string) (Level, error) {
	for l := LevelMunge; l <= LevelError; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return LevelMunge, fmt.Errorf("unknown event level %q", s)
}

// Topics published by the sequencer.
const (
	TopicRunStarted    = "run.started"
	TopicJobStarted    = "job.started"
	TopicJobOutput     = "job.output"
	TopicJobExited     = "job.exited"
	TopicCopySucceeded = "copy.succeeded"
	TopicCopyFailed    = "copy.failed"
	TopicCopySkipped   = "copy.skipped"
	TopicJobFailed     = "job.failed"
	TopicRunCompleted  = "run.completed"
	TopicRunAborted    = "run.aborted"
	TopicRunFailed     = "run.failed"
)

// Event is implemented by everything published on a Bus.
type Event interface {
	// EventType returns the topic, "category.action".
	EventType() string
	Timestamp() time.Time
	Level() Level
	// RunID identifies the sequencer run that produced the event.
	RunID() string
}

type baseEvent struct {
	topic string
	at    time.Time
	level Level
	runID string
}

func (e baseEvent) EventType() string    { return e.topic }
func (e baseEvent) Timestamp() time.Time { return e.at }
func (e baseEvent) Level() Level         { return e.level }
func (e baseEvent) RunID() string        { return e.runID }

func newBaseEvent(topic, runID string, level Level) baseEvent {
	return baseEvent{topic: topic, at: time.Now(), level: level, runID: runID}
}

// JobRef identifies a job within a run.
type JobRef struct {
	Index int
	Name  string
}

// -----------------------------------------------------------------------------
// Run Lifecycle Events
// -----------------------------------------------------------------------------

// RunStartedEvent is published when a sequencer leaves Idle.
type RunStartedEvent struct {
	baseEvent
	Jobs int
}

// NewRunStartedEvent creates a RunStartedEvent.
func NewRunStartedEvent(runID string, jobs int) RunStartedEvent {
	return RunStartedEvent{baseEvent: newBaseEvent(TopicRunStarted, runID, LevelInfo), Jobs: jobs}
}

// RunCompletedEvent is published after the last job's copy phase.
type RunCompletedEvent struct {
	baseEvent
	Jobs     int
	Failed   int // jobs that exited non-zero under continue_on_failure
	Duration time.Duration
}

// NewRunCompletedEvent creates a RunCompletedEvent.
func NewRunCompletedEvent(runID string, jobs, failed int, d time.Duration) RunCompletedEvent {
	level := LevelInfo
	if failed > 0 {
		level = LevelWarning
	}
	return RunCompletedEvent{
		baseEvent: newBaseEvent(TopicRunCompleted, runID, level),
		Jobs:      jobs,
		Failed:    failed,
		Duration:  d,
	}
}

// RunAbortedEvent is published when Abort stops a running queue.
type RunAbortedEvent struct {
	baseEvent
	Job      JobRef // the job that was active
	Duration time.Duration
}

// NewRunAbortedEvent creates a RunAbortedEvent.
func NewRunAbortedEvent(runID string, job JobRef, d time.Duration) RunAbortedEvent {
	return RunAbortedEvent{
		baseEvent: newBaseEvent(TopicRunAborted, runID, LevelWarning),
		Job:       job,
		Duration:  d,
	}
}

// RunFailedEvent is published when a launch failure or a non-zero exit
// halts the queue.
type RunFailedEvent struct {
	baseEvent
	Job      JobRef
	Err      error
	Duration time.Duration
}

// NewRunFailedEvent creates a RunFailedEvent.
func NewRunFailedEvent(runID string, job JobRef, err error, d time.Duration) RunFailedEvent {
	return RunFailedEvent{
		baseEvent: newBaseEvent(TopicRunFailed, runID, LevelError),
		Job:       job,
		Err:       err,
		Duration:  d,
	}
}

// -----------------------------------------------------------------------------
// Job Events
// -----------------------------------------------------------------------------

// JobStartedEvent is published when a job becomes active, just before its
// script is launched. A launch failure follows it with JobFailedEvent.
type JobStartedEvent struct {
	baseEvent
	Job        JobRef
	Script     string
	WorkingDir string
	Args       []string
}

// NewJobStartedEvent creates a JobStartedEvent.
func NewJobStartedEvent(runID string, job JobRef, script, workingDir string, args []string) JobStartedEvent {
	return JobStartedEvent{
		baseEvent:  newBaseEvent(TopicJobStarted, runID, LevelInfo),
		Job:        job,
		Script:     script,
		WorkingDir: workingDir,
		Args:       args,
	}
}

// JobOutputEvent carries one line of script output, without its line ending.
type JobOutputEvent struct {
	baseEvent
	Job    JobRef
	Stream string // "stdout" or "stderr"
	Line   string
}

// NewJobOutputEvent creates a JobOutputEvent.
func NewJobOutputEvent(runID string, job JobRef, stream, line string) JobOutputEvent {
	return JobOutputEvent{
		baseEvent: newBaseEvent(TopicJobOutput, runID, LevelMunge),
		Job:       job,
		Stream:    stream,
		Line:      line,
	}
}

// JobExitedEvent is published after every output line of the job has been
// published.
type JobExitedEvent struct {
	baseEvent
	Job      JobRef
	ExitCode int
	Signaled bool
	Duration time.Duration
}

// NewJobExitedEvent creates a JobExitedEvent.
func NewJobExitedEvent(runID string, job JobRef, code int, signaled bool, d time.Duration) JobExitedEvent {
	level := LevelInfo
	if code != 0 || signaled {
		level = LevelWarning
	}
	return JobExitedEvent{
		baseEvent: newBaseEvent(TopicJobExited, runID, level),
		Job:       job,
		ExitCode:  code,
		Signaled:  signaled,
		Duration:  d,
	}
}

// JobFailedEvent is published when a job could not be launched or exited
// non-zero.
type JobFailedEvent struct {
	baseEvent
	Job JobRef
	Err error
}

// NewJobFailedEvent creates a JobFailedEvent.
func NewJobFailedEvent(runID string, job JobRef, err error) JobFailedEvent {
	return JobFailedEvent{
		baseEvent: newBaseEvent(TopicJobFailed, runID, LevelError),
		Job:       job,
		Err:       err,
	}
}

// -----------------------------------------------------------------------------
// Copy Events
// -----------------------------------------------------------------------------

// CopySucceededEvent is published for each artifact copied to staging.
type CopySucceededEvent struct {
	baseEvent
	Job         JobRef
	Source      string
	Destination string
	Bytes       int64
}

// NewCopySucceededEvent creates a CopySucceededEvent.
func NewCopySucceededEvent(runID string, job JobRef, src, dst string, n int64) CopySucceededEvent {
	return CopySucceededEvent{
		baseEvent:   newBaseEvent(TopicCopySucceeded, runID, LevelInfo),
		Job:         job,
		Source:      src,
		Destination: dst,
		Bytes:       n,
	}
}

// CopyFailedEvent is published for each artifact that could not be copied.
// Copy failures never stop the queue.
type CopyFailedEvent struct {
	baseEvent
	Job         JobRef
	Source      string
	Destination string
	Err         error
}

// NewCopyFailedEvent creates a CopyFailedEvent.
func NewCopyFailedEvent(runID string, job JobRef, src, dst string, err error) CopyFailedEvent {
	return CopyFailedEvent{
		baseEvent:   newBaseEvent(TopicCopyFailed, runID, LevelWarning),
		Job:         job,
		Source:      src,
		Destination: dst,
		Err:         err,
	}
}

// CopySkippedEvent is published when a job's copy phase does nothing.
type CopySkippedEvent struct {
	baseEvent
	Job    JobRef
	Reason string
}

// Reasons reported by CopySkippedEvent.
const (
	SkipCopyDisabled = "copy disabled"
	SkipNoFiles      = "no output files"
	SkipJobFailed    = "job failed"
)

// NewCopySkippedEvent creates a CopySkippedEvent.
func NewCopySkippedEvent(runID string, job JobRef, reason string) CopySkippedEvent {
	return CopySkippedEvent{
		baseEvent: newBaseEvent(TopicCopySkipped, runID, LevelInfo),
		Job:       job,
		Reason:    reason,
	}
}

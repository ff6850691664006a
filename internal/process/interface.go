// Package process launches job scripts and streams their output.
//
// A Runner starts one external process per call and returns immediately.
// Output arrives on the Handler one line at a time, on goroutines owned by
// the runner, and OnExit fires exactly once after the last line.
package process

import (
	"context"

	"github.com/Iron-Ham/zeromunge/internal/job"
)

// Stream identifies which pipe a line was read from.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

// String returns "stdout" or "stderr".
func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one line of process output without its line ending.
type Line struct {
	Stream Stream
	Text   string
}

// ExitStatus describes how a process ended. The runner reports it; deciding
// whether it counts as success is up to the caller.
type ExitStatus struct {
	// Code is the process exit code, or -1 when it was killed or never
	// produced one.
	Code int
	// Signaled is true when the process was terminated by Kill, a signal or
	// context cancellation.
	Signaled bool
	// Err holds a wait failure other than a non-zero exit.
	Err error
}

// Success reports a clean zero exit.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && !s.Signaled && s.Err == nil
}

// Handler receives a process's output and exit.
type Handler interface {
	OnLine(Line)
	OnExit(ExitStatus)
}

// HandlerFuncs adapts two functions to Handler. Nil fields are ignored.
type HandlerFuncs struct {
	Line func(Line)
	Exit func(ExitStatus)
}

// OnLine calls Line.
func (h HandlerFuncs) OnLine(l Line) {
	if h.Line != nil {
		h.Line(l)
	}
}

// OnExit calls Exit.
func (h HandlerFuncs) OnExit(s ExitStatus) {
	if h.Exit != nil {
		h.Exit(s)
	}
}

// Handle controls a launched process.
type Handle interface {
	// PID returns the operating system process ID.
	PID() int
	// Kill forcibly terminates the process and anything it spawned. It is
	// safe to call more than once and after the process has exited.
	Kill() error
	// Done is closed after OnExit has returned.
	Done() <-chan struct{}
	// Status returns the exit status once Done is closed.
	Status() ExitStatus
}

// Runner starts the script of a job.
type Runner interface {
	// Run launches d and returns without waiting for it. A script that cannot
	// be started yields a *errors.LaunchError and no handler calls.
	Run(ctx context.Context, d job.Descriptor, h Handler) (Handle, error)
}

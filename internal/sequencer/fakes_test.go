package sequencer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/zeromunge/internal/artifact"
	"github.com/Iron-Ham/zeromunge/internal/event"
	"github.com/Iron-Ham/zeromunge/internal/job"
	"github.com/Iron-Ham/zeromunge/internal/process"
)

// fakeProc is a process whose output and exit are driven by the test.
type fakeProc struct {
	d      job.Descriptor
	h      process.Handler
	done   chan struct{}
	once   sync.Once
	killed atomic.Bool
	status process.ExitStatus
}

func (p *fakeProc) PID() int { return 4242 }

func (p *fakeProc) Kill() error {
	p.killed.Store(true)
	go p.exit(process.ExitStatus{Code: -1, Signaled: true})
	return nil
}

func (p *fakeProc) Done() <-chan struct{} { return p.done }

func (p *fakeProc) Status() process.ExitStatus {
	<-p.done
	return p.status
}

func (p *fakeProc) emit(lines ...string) {
	for _, l := range lines {
		p.h.OnLine(process.Line{Stream: process.StreamStdout, Text: l})
	}
}

func (p *fakeProc) exit(st process.ExitStatus) {
	p.once.Do(func() {
		p.status = st
		p.h.OnExit(st)
		close(p.done)
	})
}

// behavior drives a launched fakeProc. Nil hands the process to the test via
// fakeRunner.manual.
type behavior func(p *fakeProc)

func succeed(lines ...string) behavior {
	return func(p *fakeProc) {
		p.emit(lines...)
		p.exit(process.ExitStatus{Code: 0})
	}
}

func exitWith(code int) behavior {
	return func(p *fakeProc) {
		p.emit("error: something broke")
		p.exit(process.ExitStatus{Code: code})
	}
}

type fakeRunner struct {
	mu        sync.Mutex
	launched  []string
	behaviors map[string]behavior
	failures  map[string]error
	// inline behaviors run before Run returns, so the process exits while
	// the sequencer is still launching it.
	inline map[string]behavior
	manual chan *fakeProc
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		behaviors: make(map[string]behavior),
		failures:  make(map[string]error),
		inline:    make(map[string]behavior),
		manual:    make(chan *fakeProc, 8),
	}
}

func (r *fakeRunner) Run(_ context.Context, d job.Descriptor, h process.Handler) (process.Handle, error) {
	r.mu.Lock()
	r.launched = append(r.launched, d.DisplayName())
	err := r.failures[d.DisplayName()]
	b, scripted := r.behaviors[d.DisplayName()]
	now, inline := r.inline[d.DisplayName()]
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	p := &fakeProc{d: d, h: h, done: make(chan struct{})}
	switch {
	case inline:
		now(p)
	case !scripted:
		go succeed(d.DisplayName() + ": ok")(p)
	case b == nil:
		r.manual <- p
	default:
		go b(p)
	}
	return p, nil
}

func (r *fakeRunner) Launched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.launched...)
}

func (r *fakeRunner) nextManual(t *testing.T) *fakeProc {
	t.Helper()
	select {
	case p := <-r.manual:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no manual process was launched")
		return nil
	}
}

// recordingCopier wraps a Copier and remembers which jobs it was asked to copy.
type recordingCopier struct {
	inner Copier
	mu    sync.Mutex
	calls []string
}

func (c *recordingCopier) CopyArtifacts(d job.Descriptor) []artifact.Result {
	c.mu.Lock()
	c.calls = append(c.calls, d.DisplayName())
	c.mu.Unlock()
	return c.inner.CopyArtifacts(d)
}

func (c *recordingCopier) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// eventLog records every event published on a bus.
type eventLog struct {
	mu     sync.Mutex
	events []event.Event
}

func newEventLog(bus *event.Bus) *eventLog {
	l := &eventLog{}
	bus.SubscribeAll(func(e event.Event) {
		l.mu.Lock()
		l.events = append(l.events, e)
		l.mu.Unlock()
	})
	return l
}

func (l *eventLog) All() []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]event.Event(nil), l.events...)
}

// Trace renders events as "topic" or "topic:job" for order assertions.
func (l *eventLog) Trace() []string {
	var out []string
	for _, e := range l.All() {
		out = append(out, traceOf(e))
	}
	return out
}

func traceOf(e event.Event) string {
	switch ev := e.(type) {
	case event.JobStartedEvent:
		return ev.EventType() + ":" + ev.Job.Name
	case event.JobOutputEvent:
		return ev.EventType() + ":" + ev.Job.Name
	case event.JobExitedEvent:
		return ev.EventType() + ":" + ev.Job.Name
	case event.JobFailedEvent:
		return ev.EventType() + ":" + ev.Job.Name
	case event.CopySucceededEvent:
		return ev.EventType() + ":" + ev.Job.Name
	case event.CopyFailedEvent:
		return ev.EventType() + ":" + ev.Job.Name
	case event.CopySkippedEvent:
		return ev.EventType() + ":" + ev.Job.Name
	default:
		return e.EventType()
	}
}

func waitResult(t *testing.T, s *Sequencer) Result {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish in time")
	}
	return s.Wait()
}

// Package sequencer runs a queue of jobs one at a time: launch, stream
// output, copy artifacts, advance.
//
// A Sequencer owns its queue; there is no package-level state, so several
// sequencers may run side by side. Output, exit and copy notifications for
// a job are only published while that job is the active one of a running,
// non-aborted run.
package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/zeromunge/internal/artifact"
	"github.com/Iron-Ham/zeromunge/internal/errors"
	"github.com/Iron-Ham/zeromunge/internal/event"
	"github.com/Iron-Ham/zeromunge/internal/job"
	"github.com/Iron-Ham/zeromunge/internal/logging"
	"github.com/Iron-Ham/zeromunge/internal/process"
)

// Copier stages a finished job's artifacts.
type Copier interface {
	CopyArtifacts(d job.Descriptor) []artifact.Result
}

// Options tunes a Sequencer.
type Options struct {
	// ContinueOnFailure keeps the queue going after a non-zero exit. The
	// failed job's copy step is skipped either way.
	ContinueOnFailure bool
	// SingleJob runs only the first enabled job.
	SingleJob bool
}

// Sequencer executes jobs strictly in order: job N+1 is launched only after
// job N has exited and its artifacts have been copied.
type Sequencer struct {
	runner process.Runner
	copier Copier
	bus    *event.Bus
	opts   Options
	logger *logging.Logger

	mu  sync.Mutex
	cur *run
}

// run is the state of one Start call.
type run struct {
	id      string
	ctx     context.Context
	jobs    []job.Descriptor
	results []JobResult
	active  int
	handle  process.Handle
	aborted bool
	state   State
	err     error
	started time.Time
	ended   time.Time
	disp    *dispatcher
	log     *logging.Logger
}

// New creates a Sequencer. bus and logger may be nil.
func New(runner process.Runner, copier Copier, bus *event.Bus, opts Options, logger *logging.Logger) *Sequencer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Sequencer{
		runner: runner,
		copier: copier,
		bus:    bus,
		opts:   opts,
		logger: logger,
	}
}

// Start begins a run over the enabled entries of jobs and launches the first
// one. It returns an *errors.EmptyQueueError, leaving the state untouched,
// when there is nothing to run, and errors.ErrAlreadyRunning while another
// run is in progress. A job that fails Descriptor.Validate is rejected with
// its *errors.ValidationError before anything runs. If the first job cannot
// be launched the run ends in StateFailed and the *errors.LaunchError is
// returned.
//
// Cancelling ctx aborts the run.
func (s *Sequencer) Start(ctx context.Context, jobs []job.Descriptor) error {
	s.mu.Lock()

	if s.cur != nil && s.cur.state == StateRunning {
		s.mu.Unlock()
		return errors.ErrAlreadyRunning
	}

	enabled := job.Enabled(jobs)
	if len(enabled) == 0 {
		s.mu.Unlock()
		return errors.NewEmptyQueueError(len(jobs))
	}
	if s.opts.SingleJob {
		enabled = enabled[:1]
	}
	for _, d := range enabled {
		if err := d.Validate(); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	var prevDone <-chan struct{}
	if s.cur != nil {
		prevDone = s.cur.disp.done
	}

	r := &run{
		id:      uuid.NewString(),
		ctx:     context.WithoutCancel(ctx),
		jobs:    make([]job.Descriptor, len(enabled)),
		results: make([]JobResult, len(enabled)),
		state:   StateRunning,
		started: time.Now(),
		disp:    newDispatcher(s.bus),
	}
	r.log = s.logger.WithRun(r.id)
	for i, d := range enabled {
		r.jobs[i] = d.Normalize()
		r.results[i] = JobResult{Index: i, Job: r.jobs[i], Outcome: OutcomePending}
	}
	s.cur = r

	go r.disp.run(prevDone)
	go s.watchContext(ctx, r)

	r.log.Info("run started", "jobs", len(r.jobs), "queued", len(jobs))
	r.disp.push(event.NewRunStartedEvent(r.id, len(r.jobs)))
	s.mu.Unlock()

	return s.launch(r, 0)
}

func (s *Sequencer) watchContext(ctx context.Context, r *run) {
	select {
	case <-ctx.Done():
		s.mu.Lock()
		live := s.cur == r && r.state == StateRunning
		s.mu.Unlock()
		if live {
			r.log.Info("context cancelled, aborting run")
			s.Abort()
		}
	case <-r.disp.done:
	}
}

// launch starts job idx of r. It returns the LaunchError when the job could
// not be started.
func (s *Sequencer) launch(r *run, idx int) error {
	s.mu.Lock()
	if s.cur != r || r.aborted || r.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	d := r.jobs[idx]
	ref := jobRef(d, idx)
	r.active = idx
	r.results[idx].Outcome = OutcomeRunning
	r.results[idx].Started = time.Now()
	r.disp.push(event.NewJobStartedEvent(r.id, ref, d.ScriptPath, d.WorkingDir, d.Args))
	s.mu.Unlock()

	r.log.WithJob(idx, ref.Name).Info("launching script", "script", d.ScriptPath, "dir", d.WorkingDir)
	h, err := s.runner.Run(r.ctx, d, &jobHandler{s: s, r: r, idx: idx})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		lerr := asLaunchError(err, d, idx)
		if s.cur != r || r.aborted {
			return nil
		}
		r.results[idx].Outcome = OutcomeLaunchFailed
		r.results[idx].Err = lerr
		r.results[idx].Finished = time.Now()
		r.log.WithJob(idx, ref.Name).Error("launch failed", "error", lerr)
		r.disp.push(event.NewJobFailedEvent(r.id, ref, lerr))
		s.finish(r, StateFailed, lerr)
		return lerr
	}

	if r.aborted {
		// Abort arrived while the process was being started.
		_ = h.Kill()
		return nil
	}
	// A fast script may already have exited and advanced the queue; its
	// handle must not replace the one of the job now active.
	if s.cur == r && r.active == idx && r.results[idx].Outcome == OutcomeRunning {
		r.handle = h
	}
	return nil
}

func asLaunchError(err error, d job.Descriptor, idx int) *errors.LaunchError {
	var lerr *errors.LaunchError
	if errors.As(err, &lerr) {
		return lerr.WithJobIndex(idx)
	}
	return errors.NewLaunchError("cannot start script", err).
		WithScript(d.ScriptPath).
		WithWorkingDir(d.WorkingDir).
		WithJobIndex(idx)
}

// jobHandler receives one job's process callbacks.
type jobHandler struct {
	s   *Sequencer
	r   *run
	idx int
}

// live must be called with s.mu held.
func (h *jobHandler) live() bool {
	return h.s.cur == h.r && !h.r.aborted && h.r.state == StateRunning && h.r.active == h.idx
}

func (h *jobHandler) OnLine(l process.Line) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if !h.live() {
		return
	}
	h.r.disp.push(event.NewJobOutputEvent(h.r.id, jobRef(h.r.jobs[h.idx], h.idx), l.Stream.String(), l.Text))
}

func (h *jobHandler) OnExit(st process.ExitStatus) {
	s, r, idx := h.s, h.r, h.idx

	s.mu.Lock()
	if !h.live() {
		s.mu.Unlock()
		return
	}
	d := r.jobs[idx]
	ref := jobRef(d, idx)
	log := r.log.WithJob(idx, ref.Name)
	res := &r.results[idx]

	r.handle = nil
	res.ExitCode = st.Code
	res.Finished = time.Now()
	r.disp.push(event.NewJobExitedEvent(r.id, ref, st.Code, st.Signaled, res.Finished.Sub(res.Started)))

	if !st.Success() {
		jerr := errors.NewJobFailedError(d.ScriptPath, st.Code).WithJobIndex(idx)
		res.Outcome = OutcomeFailed
		res.Err = jerr
		log.Warn("script failed", "exit_code", st.Code, "signaled", st.Signaled)
		r.disp.push(event.NewJobFailedEvent(r.id, ref, jerr))
		r.disp.push(event.NewCopySkippedEvent(r.id, ref, event.SkipJobFailed))

		if !s.opts.ContinueOnFailure {
			s.finish(r, StateFailed, jerr)
			s.mu.Unlock()
			return
		}
	} else {
		res.Outcome = OutcomeSucceeded
		log.Info("script exited", "exit_code", st.Code)
		s.mu.Unlock()

		copies := s.copier.CopyArtifacts(d)

		s.mu.Lock()
		if !h.live() {
			s.mu.Unlock()
			return
		}
		res.Copies = copies
		publishCopies(r, ref, d, copies)
	}

	if idx == len(r.jobs)-1 {
		s.finish(r, StateCompleted, nil)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// Later launch failures end the run and are reported by Wait.
	_ = s.launch(r, idx+1)
}

func publishCopies(r *run, ref event.JobRef, d job.Descriptor, copies []artifact.Result) {
	if copies == nil {
		reason := event.SkipNoFiles
		if !d.CopyEnabled {
			reason = event.SkipCopyDisabled
		}
		r.disp.push(event.NewCopySkippedEvent(r.id, ref, reason))
		return
	}
	for _, c := range copies {
		if c.OK() {
			r.disp.push(event.NewCopySucceededEvent(r.id, ref, c.Source, c.Destination, c.Bytes))
			continue
		}
		r.log.WithJob(ref.Index, ref.Name).Warn("artifact not copied", "source", c.Source, "error", c.Err)
		r.disp.push(event.NewCopyFailedEvent(r.id, ref, c.Source, c.Destination, c.Err))
	}
}

// Abort kills the active process, drops the rest of the queue and ends the
// run in StateAborted. Nothing about the killed job is published after the
// abort. Calling Abort when no run is in progress does nothing.
func (s *Sequencer) Abort() {
	s.mu.Lock()
	r := s.cur
	if r == nil || r.state != StateRunning {
		s.mu.Unlock()
		return
	}

	r.aborted = true
	h := r.handle
	r.handle = nil

	for i := range r.results {
		switch r.results[i].Outcome {
		case OutcomeRunning:
			r.results[i].Outcome = OutcomeAborted
			r.results[i].Finished = time.Now()
		case OutcomePending:
			r.results[i].Outcome = OutcomeSkipped
		}
	}
	s.finish(r, StateAborted, errors.NewAbortedError(r.active))
	s.mu.Unlock()

	if h != nil {
		if err := h.Kill(); err != nil {
			r.log.Warn("failed to kill script", "error", err)
		}
	}
}

// finish moves r to a terminal state. Must be called with s.mu held.
func (s *Sequencer) finish(r *run, state State, err error) {
	r.state = state
	r.err = err
	r.ended = time.Now()
	elapsed := r.ended.Sub(r.started)
	active := jobRef(r.jobs[r.active], r.active)

	switch state {
	case StateCompleted:
		failed := 0
		for _, res := range r.results {
			if res.Outcome == OutcomeFailed {
				failed++
			}
		}
		r.log.Info("run completed", "jobs", len(r.jobs), "failed", failed, "duration", elapsed.String())
		r.disp.push(event.NewRunCompletedEvent(r.id, len(r.jobs), failed, elapsed))
	case StateAborted:
		r.log.Info("run aborted", "job_index", r.active, "duration", elapsed.String())
		r.disp.push(event.NewRunAbortedEvent(r.id, active, elapsed))
	case StateFailed:
		r.log.Error("run failed", "job_index", r.active, "error", err)
		r.disp.push(event.NewRunFailedEvent(r.id, active, err, elapsed))
	}
	r.disp.close()
}

// State returns the state of the current run, or StateIdle before the
// first Start.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return StateIdle
	}
	return s.cur.state
}

// ActiveIndex returns the index of the running job, or -1 when no run is in
// progress.
func (s *Sequencer) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil || s.cur.state != StateRunning {
		return -1
	}
	return s.cur.active
}

// Done returns a channel closed once the current run has ended and all of
// its events have been delivered. Before the first Start it is already
// closed.
func (s *Sequencer) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.cur.disp.done
}

// Wait blocks until the current run has ended and its events have been
// delivered, then returns its Result.
func (s *Sequencer) Wait() Result {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()
	if r == nil {
		return Result{State: StateIdle}
	}

	<-r.disp.done
	return s.snapshot(r)
}

// Result returns a snapshot of the current run without waiting.
func (s *Sequencer) Result() Result {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()
	if r == nil {
		return Result{State: StateIdle}
	}
	return s.snapshot(r)
}

func (s *Sequencer) snapshot(r *run) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobResult, len(r.results))
	copy(jobs, r.results)
	return Result{
		RunID:    r.id,
		State:    r.state,
		Jobs:     jobs,
		Err:      r.err,
		Started:  r.started,
		Finished: r.ended,
	}
}

func jobRef(d job.Descriptor, idx int) event.JobRef {
	return event.JobRef{Index: idx, Name: d.DisplayName()}
}

package process

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/zeromunge/internal/config"
	"github.com/Iron-Ham/zeromunge/internal/errors"
	"github.com/Iron-Ham/zeromunge/internal/job"
	"github.com/Iron-Ham/zeromunge/internal/logging"
)

// pipeGrace bounds how long output copying may continue after the process
// itself has exited, e.g. while a detached grandchild still holds the pipe.
const pipeGrace = 2 * time.Second

// ExecRunner runs scripts as child processes via os/exec.
type ExecRunner struct {
	cfg    config.RunnerConfig
	logger *logging.Logger
}

// NewExecRunner creates a runner. Interpreters and extra environment come
// from cfg.
func NewExecRunner(cfg config.RunnerConfig, logger *logging.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &ExecRunner{cfg: cfg, logger: logger}
}

// CommandLine returns the argv used to launch d: the interpreter for the
// script's extension (if any), the script, then its arguments.
func (r *ExecRunner) CommandLine(d job.Descriptor) []string {
	argv := append([]string{}, r.cfg.Interpreter(d.ScriptPath)...)
	argv = append(argv, d.ScriptPath)
	return append(argv, d.Args...)
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, d job.Descriptor, h Handler) (Handle, error) {
	dir := d.Dir()
	launchErr := func(msg string, cause error) error {
		return errors.NewLaunchError(msg, cause).WithScript(d.ScriptPath).WithWorkingDir(dir)
	}

	info, err := os.Stat(d.ScriptPath)
	switch {
	case os.IsNotExist(err):
		return nil, launchErr("cannot start script", errors.ErrScriptNotFound)
	case err != nil:
		return nil, launchErr("cannot start script", err)
	case info.IsDir():
		return nil, launchErr("script path is a directory", nil)
	}

	argv := r.CommandLine(d)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.cfg.Env...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Cancel = func() error { return killTree(cmd) }
	cmd.WaitDelay = pipeGrace

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		return nil, launchErr("cannot start script", err)
	}

	hd := &execHandle{cmd: cmd, done: make(chan struct{})}
	log := r.logger.With("script", d.ScriptPath, "pid", cmd.Process.Pid)
	log.Debug("script launched", "argv", strings.Join(argv, " "), "dir", dir)

	var pumps conc.WaitGroup
	pumps.Go(func() { pump(stdoutR, StreamStdout, h) })
	pumps.Go(func() { pump(stderrR, StreamStderr, h) })

	go func() {
		waitErr := cmd.Wait()
		// Wait returns once the copy into the pipe writers has finished;
		// closing them lets the pumps see EOF after the last line.
		_ = stdoutW.Close()
		_ = stderrW.Close()
		pumps.Wait()

		hd.status = exitStatus(waitErr, hd.killed.Load())
		log.Debug("script exited", "exit_code", hd.status.Code, "signaled", hd.status.Signaled)

		h.OnExit(hd.status)
		close(hd.done)
	}()

	return hd, nil
}

// pump forwards every line of r to h. Lines of any length are accepted and
// a final line without a newline is still delivered.
func pump(r *io.PipeReader, stream Stream, h Handler) {
	defer func() { _ = r.Close() }()

	br := bufio.NewReader(r)
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			h.OnLine(Line{Stream: stream, Text: strings.TrimRight(text, "\r\n")})
		}
		if err != nil {
			return
		}
	}
}

func exitStatus(err error, killed bool) ExitStatus {
	if err == nil {
		return ExitStatus{Code: 0, Signaled: killed}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return ExitStatus{Code: code, Signaled: killed || code == -1}
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		return ExitStatus{Code: 0, Signaled: killed}
	}
	return ExitStatus{Code: -1, Signaled: killed, Err: err}
}

type execHandle struct {
	cmd    *exec.Cmd
	done   chan struct{}
	killed atomic.Bool
	status ExitStatus
}

func (h *execHandle) PID() int {
	return h.cmd.Process.Pid
}

func (h *execHandle) Kill() error {
	select {
	case <-h.done:
		return nil
	default:
	}
	h.killed.Store(true)
	if err := killTree(h.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (h *execHandle) Done() <-chan struct{} {
	return h.done
}

func (h *execHandle) Status() ExitStatus {
	<-h.done
	return h.status
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/zeromunge/internal/errors"
	"github.com/Iron-Ham/zeromunge/internal/job"
	"github.com/Iron-Ham/zeromunge/internal/runlock"
	"github.com/Iron-Ham/zeromunge/internal/sequencer"
)

var runCmd = &cobra.Command{
	Use:   "run [job-file]",
	Short: "Run the jobs of a job file in order",
	Long: `Run every enabled job of a job file, one at a time.

Each script's output is streamed as it runs. When a script exits with code 0
its output files are copied to the staging directory, then the next job
starts. A non-zero exit stops the queue unless --continue-on-failure is set.
Press Ctrl+C to abort: the running script is killed and the rest of the
queue is dropped.

Examples:
  # Run zeromunge.yaml in the current directory
  zeromunge run

  # Run only the side scripts
  zeromunge run jobs.yaml --include "**/Sides/**"

  # Show what would run
  zeromunge run --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var (
	runSelection selection
	runDryRun    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runSelection.addFlags(runCmd.Flags())
	addRunFlags(runCmd.Flags())
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the selected jobs and exit")
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, runFlagKeys); err != nil {
		return err
	}
	a, err := newApp(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	jobs, baseDir, err := runSelection.load(jobFileArg(args), a.cfg.Copy.StagingDir)
	if err != nil {
		return err
	}
	if runDryRun {
		printJobs(cmd.OutOrStdout(), jobs, a.cfg.Runner)
		return nil
	}

	noLock, _ := cmd.Flags().GetBool("no-lock")
	unlock, err := acquireLock(baseDir, a.cfg.Sequencer.LockFile, noLock)
	if err != nil {
		return err
	}
	defer unlock()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = runOnce(ctx, a, runSelection.runnable(jobs))
	return err
}

// runOnce runs jobs to the end and returns the result and the error that
// should fail the command, if any.
func runOnce(ctx context.Context, a *app, jobs []job.Descriptor) (sequencer.Result, error) {
	seq := a.newSequencer()
	if err := seq.Start(ctx, jobs); err != nil {
		var lerr *errors.LaunchError
		if !errors.As(err, &lerr) {
			return sequencer.Result{}, err
		}
		// The failed launch still ended a run; report it from the result.
	}
	res := seq.Wait()
	return res, resultError(res)
}

func resultError(res sequencer.Result) error {
	switch res.State {
	case sequencer.StateCompleted:
		if n := res.Failed(); n > 0 {
			return fmt.Errorf("%d of %d jobs failed", n, len(res.Jobs))
		}
		return nil
	case sequencer.StateIdle:
		return nil
	default:
		return res.Err
	}
}

// acquireLock takes the run lock in dir. The returned func releases it.
func acquireLock(dir, name string, disabled bool) (func(), error) {
	if disabled || name == "" {
		return func() {}, nil
	}
	fl := runlock.New(dir, name)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		if pid := fl.Holder(); pid > 0 {
			return nil, fmt.Errorf("%w: %s (pid %d)", runlock.ErrLocked, fl.Path(), pid)
		}
		return nil, fmt.Errorf("%w: %s", runlock.ErrLocked, fl.Path())
	}
	return func() { _ = fl.Unlock() }, nil
}

// ExitCode maps a command error to a process exit code: 0 for success, 130
// for an aborted run and 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsAborted(err):
		return 130
	default:
		return 1
	}
}

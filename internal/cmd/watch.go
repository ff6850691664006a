package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/zeromunge/internal/errors"
	"github.com/Iron-Ham/zeromunge/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [job-file]",
	Short: "Run the jobs, then run them again whenever inputs change",
	Long: `Run the job file once, then keep watching it and re-run the queue each
time it changes. Use --path to also watch source directories; munge output
folders (MUNGED, _LVL_*) and log files are ignored.

Changes made while a run is in progress queue a single re-run once it has
finished. The job file is re-read before every run.

Press Ctrl+C to stop watching. A run in progress is aborted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var (
	watchSelection selection
	watchPaths     []string
	watchIgnore    []string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchSelection.addFlags(watchCmd.Flags())
	addRunFlags(watchCmd.Flags())
	watchCmd.Flags().StringSliceVarP(&watchPaths, "path", "p", nil, "directory to watch recursively (repeatable)")
	watchCmd.Flags().StringSliceVar(&watchIgnore, "ignore", nil, "base-name glob to ignore, replacing the defaults (repeatable)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, runFlagKeys); err != nil {
		return err
	}
	a, err := newApp(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	path := jobFileArg(args)
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	noLock, _ := cmd.Flags().GetBool("no-lock")
	unlock, err := acquireLock(filepath.Dir(abs), a.cfg.Sequencer.LockFile, noLock)
	if err != nil {
		return err
	}
	defer unlock()

	opts := []watch.Option{watch.WithLogger(a.logger)}
	if len(watchIgnore) > 0 {
		opts = append(opts, watch.WithIgnore(watchIgnore))
	}
	w, err := watch.New(a.cfg.Watch.Debounce(), opts...)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.AddFile(abs); err != nil {
		return err
	}
	for _, p := range watchPaths {
		if err := w.AddTree(p); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	changed := make(chan []string, 1)
	go func() {
		_ = w.Run(ctx, func(paths []string) {
			select {
			case changed <- paths:
			default: // a re-run is already queued
			}
		})
	}()

	out := cmd.OutOrStdout()
	for {
		watchOnce(ctx, a, abs)
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", path)

		select {
		case <-ctx.Done():
			return nil
		case paths := <-changed:
			a.logger.Info("inputs changed, re-running", "paths", paths)
			fmt.Fprintf(out, "\nChanged: %s\n", summarize(paths))
		}
	}
}

// watchOnce reloads the job file and runs it. Errors are reported but do
// not stop watching.
func watchOnce(ctx context.Context, a *app, path string) {
	jobs, _, err := watchSelection.load(path, a.cfg.Copy.StagingDir)
	if err == nil {
		_, err = runOnce(ctx, a, watchSelection.runnable(jobs))
	}
	if err != nil && ctx.Err() == nil {
		if errors.GetSeverity(err) >= errors.SeverityError {
			a.logger.Error("run did not succeed", "error", err)
		} else {
			a.logger.Warn("run did not succeed", "error", err)
		}
		fmt.Fprintf(a.console.Writer(), "Error: %v\n", err)
	}
}

func summarize(paths []string) string {
	if len(paths) == 1 {
		return paths[0]
	}
	return fmt.Sprintf("%s and %d more", paths[0], len(paths)-1)
}

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/zeromunge/internal/config"
	"github.com/Iron-Ham/zeromunge/internal/job"
	"github.com/Iron-Ham/zeromunge/internal/process"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-file]",
	Short: "List the jobs of a job file",
	Long: `List the jobs of a job file in queue order, with the command line each
one runs and where its output files are copied.

Disabled jobs are listed with --all.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

var jobsSelection selection

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsSelection.addFlags(jobsCmd.Flags())
}

func runJobs(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	path := jobFileArg(args)

	jobs, _, err := jobsSelection.load(path, cfg.Copy.StagingDir)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No jobs selected in %s\n", path)
		return nil
	}
	printJobs(cmd.OutOrStdout(), jobs, cfg.Runner)
	return nil
}

func printJobs(w io.Writer, jobs []job.Descriptor, rc config.RunnerConfig) {
	runner := process.NewExecRunner(rc, nil)
	for i, d := range jobs {
		mark := " "
		if !d.IsEnabled() {
			mark = "-"
		}
		fmt.Fprintf(w, "%s %2d. %s\n", mark, i+1, d.DisplayName())
		fmt.Fprintf(w, "       run:  %s\n", strings.Join(runner.CommandLine(d), " "))
		fmt.Fprintf(w, "       in:   %s\n", d.Dir())
		switch {
		case !d.CopyEnabled:
			fmt.Fprintf(w, "       copy: off\n")
		case !d.HasOutputFiles():
			fmt.Fprintf(w, "       copy: no output files\n")
		default:
			fmt.Fprintf(w, "       copy: %s -> %s\n", strings.Join(d.OutputFiles, ", "), d.StagingDir)
		}
	}
}

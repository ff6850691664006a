package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/zeromunge/internal/artifact"
	"github.com/Iron-Ham/zeromunge/internal/config"
	"github.com/Iron-Ham/zeromunge/internal/console"
	"github.com/Iron-Ham/zeromunge/internal/errors"
	"github.com/Iron-Ham/zeromunge/internal/event"
	"github.com/Iron-Ham/zeromunge/internal/job"
	"github.com/Iron-Ham/zeromunge/internal/logging"
	"github.com/Iron-Ham/zeromunge/internal/process"
	"github.com/Iron-Ham/zeromunge/internal/sequencer"
)

// app wires the pieces shared by run and watch.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	bus     *event.Bus
	console *console.Console
}

func newApp(out io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.New(logging.Options{
			Dir:   cfg.Logging.ResolveDir(),
			Level: cfg.Logging.Level,
			Rotation: logging.RotationConfig{
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
			},
		})
		if err != nil {
			return nil, err
		}
	}

	bus := event.NewBus(logger)
	con := console.New(out, console.Options{
		Color:      cfg.Console.Color,
		Timestamps: cfg.Console.Timestamps,
		Quiet:      cfg.Console.Quiet,
	})
	con.Attach(bus)

	return &app{cfg: cfg, logger: logger, bus: bus, console: con}, nil
}

func (a *app) Close() {
	a.console.Detach()
	_ = a.logger.Close()
}

func (a *app) newSequencer() *sequencer.Sequencer {
	runner := process.NewExecRunner(a.cfg.Runner, a.logger)
	copier := artifact.NewOSCopier(
		artifact.WithGlobs(a.cfg.Copy.ExpandGlobs),
		artifact.WithLogger(a.logger),
	)
	return sequencer.New(runner, copier, a.bus, sequencer.Options{
		ContinueOnFailure: a.cfg.Sequencer.ContinueOnFailure,
		SingleJob:         a.cfg.Sequencer.SingleJob,
	}, a.logger)
}

// selection holds the job filter flags shared by run, watch and jobs.
type selection struct {
	include []string
	exclude []string
	all     bool
}

func (s *selection) addFlags(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&s.include, "include", "i", nil, "only run jobs whose name or script matches the glob (repeatable)")
	fs.StringSliceVarP(&s.exclude, "exclude", "x", nil, "skip jobs whose name or script matches the glob (repeatable)")
	fs.BoolVar(&s.all, "all", false, "include jobs marked enabled: false")
}

// load reads the job file and applies the selection. stagingDir is used for
// jobs that name no staging directory of their own. It also returns the job
// file's directory.
func (s *selection) load(path, stagingDir string) ([]job.Descriptor, string, error) {
	f, baseDir, err := job.Open(path)
	if err != nil {
		return nil, "", err
	}
	if f.Defaults.StagingDir == "" {
		f.Defaults.StagingDir = stagingDir
	}
	jobs, err := f.Descriptors(baseDir)
	if err != nil {
		return nil, "", err
	}

	filter, err := job.NewFilter(s.include, s.exclude)
	if err != nil {
		return nil, "", errors.NewValidationError("invalid job filter").WithCause(err)
	}
	filter.IncludeDisabled = s.all
	return filter.Apply(jobs), baseDir, nil
}

// runnable returns jobs ready for the sequencer. With --all, disabled jobs
// are switched on.
func (s *selection) runnable(jobs []job.Descriptor) []job.Descriptor {
	if !s.all {
		return jobs
	}
	out := make([]job.Descriptor, len(jobs))
	for i, d := range jobs {
		d.Enabled = nil
		out[i] = d
	}
	return out
}

// bindFlags maps command flags onto config keys so that a flag, when set,
// overrides the config file and environment.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// runFlagKeys are the config-backed flags of run and watch.
var runFlagKeys = map[string]string{
	"continue-on-failure": "sequencer.continue_on_failure",
	"single":              "sequencer.single_job",
	"staging-dir":         "copy.staging_dir",
	"quiet":               "console.quiet",
	"timestamps":          "console.timestamps",
	"color":               "console.color",
}

func addRunFlags(fs *pflag.FlagSet) {
	fs.Bool("continue-on-failure", false, "keep going after a script exits non-zero")
	fs.Bool("single", false, "run only the first selected job")
	fs.String("staging-dir", "", "staging directory for jobs that do not set one")
	fs.BoolP("quiet", "q", false, "hide script output")
	fs.Bool("timestamps", false, "prefix each line with the time")
	fs.String("color", "auto", "color output: auto, always, never")
	fs.Bool("no-lock", false, "do not take the project run lock")
}

func jobFileArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return DefaultJobFile
}

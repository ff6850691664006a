package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete zeromunge configuration
type Config struct {
	Runner    RunnerConfig    `mapstructure:"runner"`
	Sequencer SequencerConfig `mapstructure:"sequencer"`
	Copy      CopyConfig      `mapstructure:"copy"`
	Console   ConsoleConfig   `mapstructure:"console"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RunnerConfig controls how job scripts are launched
type RunnerConfig struct {
	// Interpreters maps a script extension (without the dot) to the command
	// line used to run it. The script path is appended as the last argument.
	// Extensions without an entry are executed directly.
	Interpreters map[string]string `mapstructure:"interpreters"`
	// Env holds extra KEY=VALUE pairs added to every script's environment
	Env []string `mapstructure:"env"`
}

// SequencerConfig controls queue behavior
type SequencerConfig struct {
	// ContinueOnFailure keeps the queue going after a script exits non-zero.
	// The failed job's copy step is always skipped.
	ContinueOnFailure bool `mapstructure:"continue_on_failure"`
	// SingleJob runs only the first enabled job of the queue
	SingleJob bool `mapstructure:"single_job"`
	// LockFile is the name of the run lock created in the job file's directory.
	// Empty disables locking.
	LockFile string `mapstructure:"lock_file"`
}

// CopyConfig controls the post-job artifact copy
type CopyConfig struct {
	// StagingDir is used for jobs that declare no staging directory of their own
	StagingDir string `mapstructure:"staging_dir"`
	// ExpandGlobs enables pattern matching for output file entries such as "*.lvl"
	ExpandGlobs bool `mapstructure:"expand_globs"`
}

// ConsoleConfig controls terminal output
type ConsoleConfig struct {
	// Color is "auto", "always" or "never"
	Color string `mapstructure:"color"`
	// Timestamps prefixes each line with the event time
	Timestamps bool `mapstructure:"timestamps"`
	// Quiet hides script output and shows only lifecycle messages
	Quiet bool `mapstructure:"quiet"`
}

// WatchConfig controls `zeromunge watch`
type WatchConfig struct {
	// DebounceMs coalesces bursts of file events into a single re-run
	DebounceMs int `mapstructure:"debounce_ms"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is written at all
	Enabled bool `mapstructure:"enabled"`
	// Dir is the directory holding debug.log; empty means ConfigDir()/logs
	Dir string `mapstructure:"dir"`
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// MaxSizeMB is the size at which debug.log is rotated
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Runner: RunnerConfig{
			Interpreters: map[string]string{
				"bat": "cmd /C",
				"cmd": "cmd /C",
				"sh":  "sh",
			},
			Env: []string{},
		},
		Sequencer: SequencerConfig{
			ContinueOnFailure: false,
			SingleJob:         false,
			LockFile:          ".zeromunge.lock",
		},
		Copy: CopyConfig{
			StagingDir:  "",
			ExpandGlobs: true,
		},
		Console: ConsoleConfig{
			Color:      "auto",
			Timestamps: false,
			Quiet:      false,
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Dir:        "",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Debounce returns the watch debounce as a time.Duration
func (c *WatchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Interpreter returns the command line for the script's extension, split into
// fields, or nil when the script should be executed directly.
func (c *RunnerConfig) Interpreter(scriptPath string) []string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(scriptPath), "."))
	if ext == "" {
		return nil
	}
	line, ok := c.Interpreters[ext]
	if !ok {
		return nil
	}
	return strings.Fields(line)
}

// ResolveDir returns the directory for debug.log
func (c *LoggingConfig) ResolveDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	return filepath.Join(ConfigDir(), "logs")
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Runner defaults
	viper.SetDefault("runner.interpreters", defaults.Runner.Interpreters)
	viper.SetDefault("runner.env", defaults.Runner.Env)

	// Sequencer defaults
	viper.SetDefault("sequencer.continue_on_failure", defaults.Sequencer.ContinueOnFailure)
	viper.SetDefault("sequencer.single_job", defaults.Sequencer.SingleJob)
	viper.SetDefault("sequencer.lock_file", defaults.Sequencer.LockFile)

	// Copy defaults
	viper.SetDefault("copy.staging_dir", defaults.Copy.StagingDir)
	viper.SetDefault("copy.expand_globs", defaults.Copy.ExpandGlobs)

	// Console defaults
	viper.SetDefault("console.color", defaults.Console.Color)
	viper.SetDefault("console.timestamps", defaults.Console.Timestamps)
	viper.SetDefault("console.quiet", defaults.Console.Quiet)

	// Watch defaults
	viper.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when the
// loaded values do not validate.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zeromunge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zeromunge"
	}
	return filepath.Join(home, ".config", "zeromunge")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidColorModes returns the accepted console.color values
func ValidColorModes() []string {
	return []string{"auto", "always", "never"}
}

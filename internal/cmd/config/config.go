// Package config provides CLI commands for managing zeromunge configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appconfig "github.com/Iron-Ham/zeromunge/internal/config"
	"github.com/Iron-Ham/zeromunge/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify zeromunge configuration",
	Long: `View or modify zeromunge configuration.

Use 'config show' to display the effective configuration, 'config init' to
create a commented config file and 'config set' to change a single value.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  zeromunge config set sequencer.continue_on_failure true
  zeromunge config set copy.staging_dir C:/BF2_ModTools/data_ABC/_LVL_PC
  zeromunge config set console.color never

Valid keys:
  sequencer.continue_on_failure - Keep going after a non-zero exit (true/false)
  sequencer.single_job          - Run only the first enabled job (true/false)
  sequencer.lock_file           - Run lock file name, empty to disable
  copy.staging_dir              - Staging directory for jobs that set none
  copy.expand_globs             - Expand patterns in output_files (true/false)
  console.color                 - auto, always, never
  console.timestamps            - Prefix lines with the time (true/false)
  console.quiet                 - Hide script output (true/false)
  watch.debounce_ms             - Quiet period before a watch re-run
  logging.enabled               - Write debug.log (true/false)
  logging.dir                   - Directory for debug.log
  logging.level                 - debug, info, warn, error
  logging.max_size_mb           - Rotate debug.log at this size
  logging.max_backups           - Rotated files to keep`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/zeromunge/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// Register adds all config-related commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	writeConfig(cmd.OutOrStdout(), cfg, viper.ConfigFileUsed())
	return nil
}

func writeConfig(w io.Writer, cfg *appconfig.Config, used string) {
	fmt.Fprintln(w, "Current configuration:")
	fmt.Fprintln(w)

	// Show where config is being read from
	if used != "" {
		fmt.Fprintf(w, "Config file: %s\n", used)
	} else {
		fmt.Fprintf(w, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "runner:")
	exts := make([]string, 0, len(cfg.Runner.Interpreters))
	for ext := range cfg.Runner.Interpreters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(w, "  interpreters.%s: %s\n", ext, cfg.Runner.Interpreters[ext])
	}
	fmt.Fprintf(w, "  env: [%s]\n", strings.Join(cfg.Runner.Env, ", "))

	fmt.Fprintln(w, "sequencer:")
	fmt.Fprintf(w, "  continue_on_failure: %v\n", cfg.Sequencer.ContinueOnFailure)
	fmt.Fprintf(w, "  single_job: %v\n", cfg.Sequencer.SingleJob)
	fmt.Fprintf(w, "  lock_file: %s\n", cfg.Sequencer.LockFile)

	fmt.Fprintln(w, "copy:")
	fmt.Fprintf(w, "  staging_dir: %s\n", cfg.Copy.StagingDir)
	fmt.Fprintf(w, "  expand_globs: %v\n", cfg.Copy.ExpandGlobs)

	fmt.Fprintln(w, "console:")
	fmt.Fprintf(w, "  color: %s\n", cfg.Console.Color)
	fmt.Fprintf(w, "  timestamps: %v\n", cfg.Console.Timestamps)
	fmt.Fprintf(w, "  quiet: %v\n", cfg.Console.Quiet)

	fmt.Fprintln(w, "watch:")
	fmt.Fprintf(w, "  debounce_ms: %d\n", cfg.Watch.DebounceMs)

	fmt.Fprintln(w, "logging:")
	fmt.Fprintf(w, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(w, "  dir: %s\n", cfg.Logging.ResolveDir())
	fmt.Fprintf(w, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(w, "  max_backups: %d\n", cfg.Logging.MaxBackups)
}

// settableKeys maps each key accepted by 'config set' to its value kind.
var settableKeys = map[string]string{
	"sequencer.continue_on_failure": "bool",
	"sequencer.single_job":          "bool",
	"sequencer.lock_file":           "string",
	"copy.staging_dir":              "string",
	"copy.expand_globs":             "bool",
	"console.color":                 "color",
	"console.timestamps":            "bool",
	"console.quiet":                 "bool",
	"watch.debounce_ms":             "int",
	"logging.enabled":               "bool",
	"logging.dir":                   "string",
	"logging.level":                 "level",
	"logging.max_size_mb":           "int",
	"logging.max_backups":           "int",
}

// parseValue validates value for key and converts it to the type stored in
// the config file.
func parseValue(key, value string) (any, error) {
	keyType, ok := settableKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'zeromunge config set --help' to see valid keys", key)
	}

	switch keyType {
	case "color":
		if !slices.Contains(appconfig.ValidColorModes(), value) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(appconfig.ValidColorModes(), ", "))
		}
		return value, nil
	case "level":
		if !slices.Contains(logging.ValidLevels(), strings.ToUpper(value)) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: debug, info, warn, error", key, value)
		}
		return strings.ToLower(value), nil
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return intVal, nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	typedValue, err := parseValue(key, value)
	if err != nil {
		return err
	}

	// Ensure config directory exists
	configDir := appconfig.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set(key, typedValue)

	configFile := appconfig.ConfigFile()
	if used := viper.ConfigFileUsed(); used != "" {
		configFile = used
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)
	return nil
}

// DefaultConfigYAML is the commented file written by 'config init'.
const DefaultConfigYAML = `# zeromunge configuration

# How scripts are launched. Scripts whose extension has no interpreter
# are executed directly.
runner:
  interpreters:
    bat: cmd /C
    cmd: cmd /C
    sh: sh
  # Extra KEY=VALUE pairs added to every script's environment
  env: []

sequencer:
  # Keep running the queue after a script exits non-zero
  continue_on_failure: false
  # Run only the first enabled job
  single_job: false
  # Run lock created next to the job file; empty disables locking
  lock_file: .zeromunge.lock

copy:
  # Staging directory for jobs that do not set one
  staging_dir: ""
  # Treat output_files entries such as "*.lvl" as patterns
  expand_globs: true

console:
  # auto, always or never
  color: auto
  timestamps: false
  # Hide script output, show only warnings, errors and the summary
  quiet: false

watch:
  # Quiet period before 'zeromunge watch' re-runs the queue
  debounce_ms: 500

logging:
  enabled: true
  # Empty means ~/.config/zeromunge/logs
  dir: ""
  # debug, info, warn or error
  level: info
  max_size_mb: 10
  max_backups: 3
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := appconfig.ConfigDir()
	configFile := appconfig.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'zeromunge config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit this file to customize zeromunge's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := appconfig.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(appconfig.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. $HOME/.config/zeromunge/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: ZEROMUNGE_* (e.g., ZEROMUNGE_SEQUENCER_CONTINUE_ON_FAILURE)")
	return nil
}

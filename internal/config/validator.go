package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "logging.max_size_mb")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// extensionRegex matches an interpreter key: a bare extension such as "bat"
var extensionRegex = regexp.MustCompile(`^[a-z0-9]+$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateRunner()...)
	errors = append(errors, c.validateSequencer()...)
	errors = append(errors, c.validateConsole()...)
	errors = append(errors, c.validateWatch()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateRunner validates the RunnerConfig
func (c *Config) validateRunner() []ValidationError {
	var errors []ValidationError

	// Sorted for stable error order
	exts := make([]string, 0, len(c.Runner.Interpreters))
	for ext := range c.Runner.Interpreters {
		exts = append(exts, ext)
	}
	slices.Sort(exts)

	for _, ext := range exts {
		field := fmt.Sprintf("runner.interpreters.%s", ext)
		if !extensionRegex.MatchString(ext) {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   ext,
				Message: "extension must be lowercase alphanumeric without a leading dot",
			})
		}
		if strings.TrimSpace(c.Runner.Interpreters[ext]) == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   c.Runner.Interpreters[ext],
				Message: "interpreter command cannot be empty",
			})
		}
	}

	for i, kv := range c.Runner.Env {
		if key, _, ok := strings.Cut(kv, "="); !ok || key == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("runner.env[%d]", i),
				Value:   kv,
				Message: "must be in KEY=VALUE form",
			})
		}
	}

	return errors
}

// validateSequencer validates the SequencerConfig
func (c *Config) validateSequencer() []ValidationError {
	var errors []ValidationError

	lock := c.Sequencer.LockFile
	if lock != "" && (filepath.Base(lock) != lock || lock == "." || lock == "..") {
		errors = append(errors, ValidationError{
			Field:   "sequencer.lock_file",
			Value:   lock,
			Message: "must be a plain file name without directory components",
		})
	}

	return errors
}

// validateConsole validates the ConsoleConfig
func (c *Config) validateConsole() []ValidationError {
	var errors []ValidationError

	if c.Console.Color != "" && !slices.Contains(ValidColorModes(), c.Console.Color) {
		errors = append(errors, ValidationError{
			Field:   "console.color",
			Value:   c.Console.Color,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidColorModes(), ", ")),
		})
	}

	return errors
}

// validateWatch validates the WatchConfig
func (c *Config) validateWatch() []ValidationError {
	var errors []ValidationError

	if c.Watch.DebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "watch.debounce_ms",
			Value:   c.Watch.DebounceMs,
			Message: "must be non-negative",
		})
	}

	const maxDebounceMs = 60000
	if c.Watch.DebounceMs > maxDebounceMs {
		errors = append(errors, ValidationError{
			Field:   "watch.debounce_ms",
			Value:   c.Watch.DebounceMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxDebounceMs),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

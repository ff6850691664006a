// Package errors provides centralized error definitions and error handling utilities
// for zeromunge. It defines the munge run error taxonomy, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Run errors describe what went wrong while sequencing munge jobs:
//   - LaunchError: an external script could not be started (fatal to the run)
//   - CopyError: a declared artifact could not be copied (non-fatal)
//   - JobFailedError: a script exited with a non-zero exit code
//   - EmptyQueueError: a run was started with no eligible jobs
//   - AbortedError: the run was cancelled by the user (informational)
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//
// # Usage
//
//	err := errors.NewLaunchError("cannot start script", cause).WithScript(path).WithJobIndex(2)
//
//	if errors.Is(err, errors.ErrLaunchFailed) { ... }
//
//	var copyErr *errors.CopyError
//	if errors.As(err, &copyErr) { ... }
//
//	switch errors.GetSeverity(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Run-related sentinel errors
var (
	// ErrEmptyQueue indicates that a run was started without any jobs.
	ErrEmptyQueue = New("job queue is empty")
	// ErrNoEnabledJobs indicates that none of the queued jobs are enabled.
	ErrNoEnabledJobs = New("no enabled jobs in queue")
	// ErrAlreadyRunning indicates that a run is already in progress.
	ErrAlreadyRunning = New("run already in progress")
	// ErrAborted indicates that the run was aborted by the user.
	ErrAborted = New("run aborted")
)

// Job-related sentinel errors
var (
	// ErrLaunchFailed indicates that an external script could not be started.
	ErrLaunchFailed = New("failed to launch script")
	// ErrScriptNotFound indicates that the script path does not exist.
	ErrScriptNotFound = New("script not found")
	// ErrNonZeroExit indicates that a script exited with a non-zero code.
	ErrNonZeroExit = New("script exited with non-zero status")
)

// Copy-related sentinel errors
var (
	// ErrSourceMissing indicates that a declared artifact does not exist.
	ErrSourceMissing = New("source file does not exist")
	// ErrStagingDir indicates that the staging directory could not be created.
	ErrStagingDir = New("cannot create staging directory")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// MungeError is the base interface for all zeromunge errors.
type MungeError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// format renders "<kind> [k=v, ...]: message: cause".
func (e *baseError) format(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Run Errors
// -----------------------------------------------------------------------------

// LaunchError represents an external script that could not be started.
// It is fatal to the job and stops the run.
//
// Example:
//
//	err := errors.NewLaunchError("cannot start script", os.ErrNotExist)
//	err = err.WithScript(`C:\BF2_ModTools\data_ABC\_BUILD\munge.bat`).WithJobIndex(0)
type LaunchError struct {
	baseError
	Script     string
	WorkingDir string
	JobIndex   int
}

// NewLaunchError creates a new LaunchError.
func NewLaunchError(message string, cause error) *LaunchError {
	return &LaunchError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		JobIndex: -1,
	}
}

// WithScript adds the script path to the error context.
func (e *LaunchError) WithScript(path string) *LaunchError {
	e.Script = path
	return e
}

// WithWorkingDir adds the working directory to the error context.
func (e *LaunchError) WithWorkingDir(dir string) *LaunchError {
	e.WorkingDir = dir
	return e
}

// WithJobIndex adds the queue index of the job to the error context.
func (e *LaunchError) WithJobIndex(idx int) *LaunchError {
	e.JobIndex = idx
	return e
}

// Error returns the formatted error message.
func (e *LaunchError) Error() string {
	var parts []string
	if e.JobIndex >= 0 {
		parts = append(parts, fmt.Sprintf("job=%d", e.JobIndex))
	}
	if e.Script != "" {
		parts = append(parts, fmt.Sprintf("script=%s", e.Script))
	}
	if e.WorkingDir != "" {
		parts = append(parts, fmt.Sprintf("dir=%s", e.WorkingDir))
	}
	return e.format("launch error", parts)
}

// Is checks if this error matches the target.
func (e *LaunchError) Is(target error) bool {
	if _, ok := target.(*LaunchError); ok {
		return true
	}
	if target == ErrLaunchFailed {
		return true
	}
	return e.baseError.Is(target)
}

// CopyKind classifies why an artifact copy failed.
type CopyKind string

const (
	// CopyMissingSource means the declared artifact was not in the working directory.
	CopyMissingSource CopyKind = "missing_source"
	// CopyMkdir means the staging directory could not be created.
	CopyMkdir CopyKind = "mkdir"
	// CopyWrite means reading the source or writing the destination failed.
	CopyWrite CopyKind = "write"
)

// CopyError represents a declared artifact that could not be copied.
// Copy errors are non-fatal: remaining artifacts and jobs still proceed.
//
// Example:
//
//	err := errors.NewCopyError(errors.CopyMissingSource, errors.ErrSourceMissing).
//		WithPaths("/proj/out.lvl", "/stage/out.lvl")
type CopyError struct {
	baseError
	Kind        CopyKind
	Source      string
	Destination string
}

// NewCopyError creates a new CopyError of the given kind.
func NewCopyError(kind CopyKind, cause error) *CopyError {
	msg := "copy failed"
	switch kind {
	case CopyMissingSource:
		msg = "source file does not exist"
	case CopyMkdir:
		msg = "cannot create staging directory"
	}
	return &CopyError{
		baseError: baseError{
			message:    msg,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Kind: kind,
	}
}

// WithPaths adds the source and destination paths to the error context.
func (e *CopyError) WithPaths(source, destination string) *CopyError {
	e.Source = source
	e.Destination = destination
	return e
}

// Error returns the formatted error message.
func (e *CopyError) Error() string {
	var parts []string
	if e.Source != "" {
		parts = append(parts, fmt.Sprintf("src=%s", e.Source))
	}
	if e.Destination != "" {
		parts = append(parts, fmt.Sprintf("dst=%s", e.Destination))
	}
	if e.cause == ErrSourceMissing || e.cause == ErrStagingDir {
		// the sentinel repeats the message
		plain := e.baseError
		plain.cause = nil
		return plain.format("copy error", parts)
	}
	return e.format("copy error", parts)
}

// Is checks if this error matches the target.
func (e *CopyError) Is(target error) bool {
	if _, ok := target.(*CopyError); ok {
		return true
	}
	switch {
	case target == ErrSourceMissing && e.Kind == CopyMissingSource:
		return true
	case target == ErrStagingDir && e.Kind == CopyMkdir:
		return true
	}
	return e.baseError.Is(target)
}

// JobFailedError represents a script that ran but exited unsuccessfully.
type JobFailedError struct {
	baseError
	Script   string
	JobIndex int
	ExitCode int
}

// NewJobFailedError creates a JobFailedError for the given exit code.
func NewJobFailedError(script string, exitCode int) *JobFailedError {
	return &JobFailedError{
		baseError: baseError{
			message:    fmt.Sprintf("exit code %d", exitCode),
			cause:      ErrNonZeroExit,
			severity:   SeverityError,
			userFacing: true,
		},
		Script:   script,
		JobIndex: -1,
		ExitCode: exitCode,
	}
}

// WithJobIndex adds the queue index of the job to the error context.
func (e *JobFailedError) WithJobIndex(idx int) *JobFailedError {
	e.JobIndex = idx
	return e
}

// Error returns the formatted error message.
func (e *JobFailedError) Error() string {
	var parts []string
	if e.JobIndex >= 0 {
		parts = append(parts, fmt.Sprintf("job=%d", e.JobIndex))
	}
	if e.Script != "" {
		parts = append(parts, fmt.Sprintf("script=%s", e.Script))
	}
	return e.format("job failed", parts)
}

// Is checks if this error matches the target.
func (e *JobFailedError) Is(target error) bool {
	if _, ok := target.(*JobFailedError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// EmptyQueueError is returned when a run is started with no eligible jobs.
// No state transition happens when it is returned.
type EmptyQueueError struct {
	baseError
	Total int // number of jobs supplied, enabled or not
}

// NewEmptyQueueError creates an EmptyQueueError. A total of zero means the
// queue was empty; otherwise none of the supplied jobs were enabled.
func NewEmptyQueueError(total int) *EmptyQueueError {
	cause := ErrEmptyQueue
	msg := "file list must contain at least one job"
	if total > 0 {
		cause = ErrNoEnabledJobs
		msg = "at least one job must be enabled"
	}
	return &EmptyQueueError{
		baseError: baseError{
			message:    msg,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Total: total,
	}
}

// Error returns the formatted error message.
func (e *EmptyQueueError) Error() string {
	return fmt.Sprintf("empty queue: %s", e.message)
}

// Is checks if this error matches the target.
func (e *EmptyQueueError) Is(target error) bool {
	if _, ok := target.(*EmptyQueueError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AbortedError marks a run cancelled by the user. It is informational and
// distinguishes an aborted run from a completed one in reports.
type AbortedError struct {
	baseError
	JobIndex int // job that was active when the run was aborted
}

// NewAbortedError creates an AbortedError for the job active at abort time.
func NewAbortedError(jobIndex int) *AbortedError {
	return &AbortedError{
		baseError: baseError{
			message:    "run aborted by user",
			cause:      ErrAborted,
			severity:   SeverityInfo,
			userFacing: true,
		},
		JobIndex: jobIndex,
	}
}

// Error returns the formatted error message.
func (e *AbortedError) Error() string {
	if e.JobIndex >= 0 {
		return fmt.Sprintf("aborted [job=%d]: %s", e.JobIndex, e.message)
	}
	return fmt.Sprintf("aborted: %s", e.message)
}

// Is checks if this error matches the target.
func (e *AbortedError) Is(target error) bool {
	if _, ok := target.(*AbortedError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("job file", "jobs.yaml")
//	fmt.Println(err) // "job file 'jobs.yaml' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("script path is required").WithField("jobs[2].script")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return e.format("validation error", parts)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var mungeErr MungeError
	if As(err, &mungeErr) {
		return mungeErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement MungeError.
//
// Example:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityError:
//	    log.Error("job failed", "err", err)
//	case errors.SeverityWarning:
//	    log.Warn("artifact skipped", "err", err)
//	}
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var mungeErr MungeError
	if As(err, &mungeErr) {
		return mungeErr.Severity()
	}

	return SeverityError
}

// IsFatal reports whether err stops a run. Launch failures and job failures
// are fatal; copy problems and aborts are not.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var launchErr *LaunchError
	var failedErr *JobFailedError
	var emptyErr *EmptyQueueError
	return As(err, &launchErr) || As(err, &failedErr) || As(err, &emptyErr)
}

// IsAborted reports whether err marks a user-cancelled run.
func IsAborted(err error) bool {
	return Is(err, ErrAborted)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to load job file")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

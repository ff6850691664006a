// Package logging provides structured logging for zeromunge runs.
//
// This package wraps Go's log/slog to write JSON lines to a debug log, so
// a munge run can be reconstructed after the fact: which scripts were
// launched, how they exited, and which artifacts were copied where.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (run ID, job index and name)
//   - Size-based rotation of debug.log with numbered backups
//
// # Basic Usage
//
//	logger, err := logging.New(logging.Options{
//	    Dir:      "/path/to/logs",
//	    Level:    "INFO",
//	    Rotation: logging.DefaultRotationConfig(),
//	})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	jobLog := logger.WithRun(runID).WithJob(0, "munge.bat")
//	jobLog.Info("script exited", "exit_code", 0)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"script exited","run_id":"...","job_index":0,"job":"munge.bat","exit_code":0}
//
// # Thread Safety
//
// [Logger] and [RotatingWriter] are safe for concurrent use. Child loggers
// created via With* share the parent's writer.
package logging

// Package event provides the pub-sub bus that carries a zeromunge run's
// lifecycle and output to the console, the debug log and any other listener.
//
// The sequencer publishes; nothing it does depends on who is subscribed.
//
// # Main Types
//
//   - [Event]: EventType, Timestamp, Level and RunID
//   - [Bus]: synchronous, panic-safe dispatcher
//   - [Level]: munge, info, warning, error
//
// # Topics
//
// Run lifecycle:
//   - run.started, run.completed, run.aborted, run.failed
//
// Jobs:
//   - job.started, job.output, job.exited, job.failed
//
// Artifacts:
//   - copy.succeeded, copy.failed, copy.skipped
//
// For one job the order is always job.started, every job.output line,
// job.exited, then the copy events. Nothing is published after a run's
// terminal event (run.completed, run.aborted, run.failed).
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//
//	bus.Subscribe(event.TopicJobOutput, func(e event.Event) {
//	    out := e.(event.JobOutputEvent)
//	    fmt.Println(out.Line)
//	})
//
//	bus.SubscribeLevel(event.LevelWarning, func(e event.Event) {
//	    log.Printf("%s: %s", e.Level(), e.EventType())
//	})
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine; a slow handler slows the publisher.
package event

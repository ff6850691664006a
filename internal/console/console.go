// Package console renders a run's event stream to a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/Iron-Ham/zeromunge/internal/event"
)

// Color modes accepted by Options.Color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Options controls what a Console prints and how.
type Options struct {
	// Color is "auto", "always" or "never". Auto colors only when the
	// writer is a terminal.
	Color string
	// Timestamps prefixes each line with the event time.
	Timestamps bool
	// Quiet hides script output and informational events. Warnings,
	// errors and the run's final line are still printed.
	Quiet bool
}

// Console prints events to a writer, one line per event.
type Console struct {
	out    io.Writer
	styles Styles
	opts   Options

	mu    sync.Mutex
	total int
	subID string
	bus   *event.Bus
}

// New creates a Console writing to w.
func New(w io.Writer, opts Options) *Console {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(colorProfile(w, opts.Color))
	return &Console{
		out:    w,
		styles: NewStyles(r),
		opts:   opts,
	}
}

func colorProfile(w io.Writer, mode string) termenv.Profile {
	switch mode {
	case ColorAlways:
		return termenv.TrueColor
	case ColorNever:
		return termenv.Ascii
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if os.Getenv("NO_COLOR") != "" {
			return termenv.Ascii
		}
		return termenv.ANSI256
	}
	return termenv.Ascii
}

// Writer returns the writer the console prints to.
func (c *Console) Writer() io.Writer {
	return c.out
}

// Attach subscribes the console to every event on bus. Calling Attach again
// moves the subscription to the new bus.
func (c *Console) Attach(bus *event.Bus) {
	c.Detach()
	id := bus.SubscribeAll(c.Handle)
	c.mu.Lock()
	c.bus, c.subID = bus, id
	c.mu.Unlock()
}

// Detach removes the console's subscription, if any.
func (c *Console) Detach() {
	c.mu.Lock()
	bus, id := c.bus, c.subID
	c.bus, c.subID = nil, ""
	c.mu.Unlock()
	if bus != nil {
		bus.Unsubscribe(id)
	}
}

// Handle renders one event.
func (c *Console) Handle(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev, ok := e.(event.RunStartedEvent); ok {
		c.total = ev.Jobs
	}
	if c.opts.Quiet && !c.shownWhenQuiet(e) {
		return
	}

	line := c.format(e)
	if line == "" {
		return
	}
	style := c.styles.ForLevel(e.Level())
	if _, ok := e.(event.RunCompletedEvent); ok && e.Level() == event.LevelInfo {
		style = c.styles.Success
	}
	line = style.Render(line)
	if c.opts.Timestamps {
		line = c.styles.Timestamp.Render(e.Timestamp().Format("15:04:05")) + " " + line
	}
	_, _ = fmt.Fprintln(c.out, line)
}

func (c *Console) shownWhenQuiet(e event.Event) bool {
	switch e.(type) {
	case event.RunCompletedEvent, event.RunAbortedEvent, event.RunFailedEvent:
		return true
	}
	return e.Level() >= event.LevelWarning
}

func (c *Console) format(e event.Event) string {
	switch ev := e.(type) {
	case event.RunStartedEvent:
		return c.styles.Banner.Render(fmt.Sprintf("==> Running %s", plural(ev.Jobs, "job")))
	case event.JobStartedEvent:
		line := fmt.Sprintf("--> %s Executing file: %q", c.position(ev.Job), ev.Script)
		if len(ev.Args) > 0 {
			line += " " + strings.Join(ev.Args, " ")
		}
		return line
	case event.JobOutputEvent:
		return ev.Line
	case event.JobExitedEvent:
		if ev.Signaled {
			return fmt.Sprintf("<-- %s killed after %s", ev.Job.Name, round(ev.Duration))
		}
		return fmt.Sprintf("<-- %s File done (exit code %d, %s)", ev.Job.Name, ev.ExitCode, round(ev.Duration))
	case event.JobFailedEvent:
		return fmt.Sprintf("!!! %s %v", ev.Job.Name, ev.Err)
	case event.CopySucceededEvent:
		return fmt.Sprintf("    Copied %s to %s", ev.Source, ev.Destination)
	case event.CopyFailedEvent:
		return fmt.Sprintf("    Could not copy %s: %v", ev.Source, ev.Err)
	case event.CopySkippedEvent:
		if ev.Reason == event.SkipCopyDisabled {
			return ""
		}
		return fmt.Sprintf("    Copy skipped: %s", ev.Reason)
	case event.RunCompletedEvent:
		if ev.Failed > 0 {
			return fmt.Sprintf("==> Finished %s in %s, %d failed", plural(ev.Jobs, "job"), round(ev.Duration), ev.Failed)
		}
		return fmt.Sprintf("==> Finished %s in %s", plural(ev.Jobs, "job"), round(ev.Duration))
	case event.RunAbortedEvent:
		return fmt.Sprintf("==> Aborted during %s after %s", ev.Job.Name, round(ev.Duration))
	case event.RunFailedEvent:
		return fmt.Sprintf("==> Stopped at %s: %v", ev.Job.Name, ev.Err)
	default:
		return fmt.Sprintf("%s %s", e.Level(), e.EventType())
	}
}

func (c *Console) position(j event.JobRef) string {
	if c.total > 0 {
		return fmt.Sprintf("[%d/%d] %s", j.Index+1, c.total, j.Name)
	}
	return j.Name
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func round(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(100 * time.Millisecond)
}

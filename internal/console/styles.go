package console

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/zeromunge/internal/event"
)

// Palette used for console output.
var (
	MungeColor   = lipgloss.Color("#F9FAFB") // Light text
	InfoColor    = lipgloss.Color("#60A5FA") // Blue
	WarningColor = lipgloss.Color("#F59E0B") // Amber
	ErrorColor   = lipgloss.Color("#F87171") // Red
	MutedColor   = lipgloss.Color("#9CA3AF") // Gray
	SuccessColor = lipgloss.Color("#10B981") // Green
)

// Styles holds the per-level styles of a Console. Styles are bound to the
// renderer of the writer they print to.
type Styles struct {
	Munge     lipgloss.Style
	Info      lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Timestamp lipgloss.Style
	Success   lipgloss.Style
	Banner    lipgloss.Style
}

// NewStyles builds the default styles for r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Munge:     r.NewStyle().Foreground(MungeColor),
		Info:      r.NewStyle().Foreground(InfoColor),
		Warning:   r.NewStyle().Foreground(WarningColor),
		Error:     r.NewStyle().Foreground(ErrorColor).Bold(true),
		Timestamp: r.NewStyle().Foreground(MutedColor),
		Success:   r.NewStyle().Foreground(SuccessColor).Bold(true),
		Banner:    r.NewStyle().Bold(true),
	}
}

// ForLevel returns the style for an event level.
func (s Styles) ForLevel(l event.Level) lipgloss.Style {
	switch l {
	case event.LevelInfo:
		return s.Info
	case event.LevelWarning:
		return s.Warning
	case event.LevelError:
		return s.Error
	default:
		return s.Munge
	}
}

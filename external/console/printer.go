package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/foxseedlab/mojistream/internal/stream"
)

// Printer renders the output log to a terminal as it grows. Styles come
// from a renderer bound to w, so color is dropped when w is not a TTY.
type Printer struct {
	w io.Writer

	speaker    lipgloss.Style
	info       lipgloss.Style
	errorLine  lipgloss.Style
	diagnostic lipgloss.Style
	status     lipgloss.Style
	failed     lipgloss.Style
}

var _ stream.Sink = (*Printer)(nil)

func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:          w,
		speaker:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#268BD2")),
		info:       r.NewStyle().Foreground(lipgloss.Color("#B58900")),
		errorLine:  r.NewStyle().Foreground(lipgloss.Color("#DC322F")),
		diagnostic: r.NewStyle().Foreground(lipgloss.Color("240")),
		status:     r.NewStyle().Faint(true),
		failed:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("#DC322F")),
	}
}

func (p *Printer) HandleEvent(ev stream.Event) {
	switch ev.Kind {
	case stream.EventLineAppended:
		fmt.Fprintln(p.w, p.renderEntry(ev.Entry))
	case stream.EventStatusChanged:
		fmt.Fprintln(p.w, p.renderStatus(ev.Status))
	}
}

func (p *Printer) renderEntry(e stream.Entry) string {
	switch e.Kind {
	case stream.EntryTranscript:
		return p.speaker.Render(e.Speaker+"：") + e.Text
	case stream.EntryError:
		return p.errorLine.Render(e.String())
	case stream.EntryDiagnostic:
		return p.diagnostic.Render(e.String())
	default:
		return p.info.Render(e.String())
	}
}

func (p *Printer) renderStatus(st stream.Status) string {
	label := "● " + strings.ToUpper(st.String())
	if st.State == stream.StateFailed {
		return p.failed.Render(label)
	}
	return p.status.Render(label)
}

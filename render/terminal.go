package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/c360/ticketfront/protocol"
)

// Palette
var (
	ColorSuccess = lipgloss.Color("#8BC34A")
	ColorFailure = lipgloss.Color("#e53935")
	ColorInfo    = lipgloss.Color("#2196F3")
	ColorPending = lipgloss.Color("#FFC107")
	ColorMuted   = lipgloss.Color("#6b7280")
	ColorBorder  = lipgloss.Color("#2a3850")
)

// Styles holds the lipgloss styles used to present replies.
type Styles struct {
	Target  lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Info    lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style

	// order status cells
	Pending  lipgloss.Style
	Refunded lipgloss.Style
}

// NewStyles builds styles bound to renderer. A nil renderer uses the default.
func NewStyles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Styles{
		Target:   r.NewStyle().Foreground(ColorMuted),
		Success:  r.NewStyle().Foreground(ColorSuccess).Bold(true),
		Failure:  r.NewStyle().Foreground(ColorFailure).Bold(true),
		Info:     r.NewStyle().Foreground(ColorInfo),
		Header:   r.NewStyle().Bold(true).Padding(0, 1),
		Cell:     r.NewStyle().Padding(0, 1),
		Border:   r.NewStyle().Foreground(ColorBorder),
		Pending:  r.NewStyle().Foreground(ColorPending).Bold(true).Padding(0, 1),
		Refunded: r.NewStyle().Foreground(ColorFailure).Bold(true).Padding(0, 1),
	}
}

// ForOutcome returns the summary style for o.
func (s Styles) ForOutcome(o protocol.Outcome) lipgloss.Style {
	switch o {
	case protocol.OutcomeSuccess:
		return s.Success
	case protocol.OutcomeFailure:
		return s.Failure
	default:
		return s.Info
	}
}

// Table renders headers and rows as a bordered table. Cells in a "Status"
// column are coloured by order status.
func (s Styles) Table(headers []string, rows [][]string) string {
	statusCol := -1
	for i, h := range headers {
		if h == "Status" {
			statusCol = i
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			if col == statusCol && row >= 0 && row < len(rows) {
				switch rows[row][col] {
				case protocol.OrderSuccess:
					return s.Success.Padding(0, 1)
				case protocol.OrderPending:
					return s.Pending
				case protocol.OrderRefunded, "unparsed":
					return s.Refunded
				}
			}
			return s.Cell
		})
	return t.String()
}

// Terminal writes styled replies to an io.Writer.
type Terminal struct {
	mu     sync.Mutex
	w      io.Writer
	styles Styles
}

// NewTerminal creates a terminal sink writing to w. Colour support is
// detected from w, so a non-terminal writer gets plain text.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, styles: NewStyles(lipgloss.NewRenderer(w))}
}

// Render writes the summary line and, when the reply has records, a table.
func (t *Terminal) Render(target string, reply protocol.Reply) error {
	outcome, text := Summary(reply)
	out := t.styles.Target.Render("["+target+"]") + " " + t.styles.ForOutcome(outcome).Render(text) + "\n"

	if headers, rows := Detail(reply); headers != nil && reply.Kind != protocol.KindProfile {
		out += t.styles.Table(headers, rows) + "\n"
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.w, out); err != nil {
		return fmt.Errorf("write terminal: %w", err)
	}
	return nil
}

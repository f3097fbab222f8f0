// Package dashboard renders live feed state in the terminal.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/event"
	"github.com/corbtastik/incident-visualizer/internal/feed"
	"github.com/corbtastik/incident-visualizer/internal/stats"
)

// topTypes is how many issue types each feed panel lists.
const topTypes = 5

// Row is one feed's rendered summary.
type Row struct {
	State feed.State
	// Endpoint is the server the feed polls, when the hub dialed it.
	Endpoint string
	// Live is the lifecycle cache size, or -1 when lifecycle is off.
	Live     int
	Buffered int
	Counts   []stats.Count
}

// BuildRow summarises a poller. When lifecycle is on, type counts cover the
// live (unexpired) entries; otherwise the rolling buffer.
func BuildRow(st feed.State, buffered []event.Event, live []event.Event, lifecycle bool) Row {
	r := Row{State: st, Live: -1, Buffered: len(buffered)}
	src := buffered
	if lifecycle {
		r.Live = len(live)
		src = live
	}
	counts := stats.Sorted(stats.CountsByType(src, nil))
	if len(counts) > topTypes {
		counts = counts[:topTypes]
	}
	r.Counts = counts
	return r
}

// Snapshot builds a row per poller, sorted by category.
func Snapshot(h *feed.Hub) []Row {
	ps := h.Pollers()
	rows := make([]Row, len(ps))
	for i, p := range ps {
		entries := p.Lifecycle()
		var live []event.Event
		for _, e := range entries {
			live = append(live, e.Event)
		}
		rows[i] = BuildRow(p.State(), p.Events(), live, entries != nil)
		rows[i].Endpoint = h.Endpoint(p.Category())
	}
	return rows
}

// Model is the bubbletea model for `incidents feed watch`.
type Model struct {
	hub      *feed.Hub
	ctx      context.Context
	refresh  time.Duration
	rows     []Row
	selected int
	updated  time.Time
	quitting bool
}

type tickMsg time.Time

// New builds a model over a started hub. ctx scopes feed restarts.
func New(ctx context.Context, h *feed.Hub, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = time.Second
	}
	return Model{hub: h, ctx: ctx, refresh: refresh, rows: Snapshot(h), updated: time.Now()}
}

// Run shows the dashboard until the user quits.
func Run(ctx context.Context, h *feed.Hub, refresh time.Duration) error {
	p := tea.NewProgram(New(ctx, h, refresh), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick(m.refresh) }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.rows)-1 {
				m.selected++
			}
		case "r":
			// Restart the selected feed from the server's newest cursor.
			if m.selected < len(m.rows) {
				cat := m.rows[m.selected].State.Category
				if p, ok := m.hub.Get(cat); ok {
					p.Restart(m.ctx, cat)
				}
			}
			m.rows = Snapshot(m.hub)
		}
		return m, nil
	case tickMsg:
		m.rows = Snapshot(m.hub)
		m.updated = time.Time(msg)
		if m.selected >= len(m.rows) {
			m.selected = max(len(m.rows)-1, 0)
		}
		return m, tick(m.refresh)
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var s strings.Builder
	s.WriteString(headerStyle.Render("LIVE INCIDENT FEEDS"))
	s.WriteString("\n\n")
	if len(m.rows) == 0 {
		s.WriteString(dimStyle.Render("No feeds configured"))
		s.WriteString("\n")
	}
	for i, r := range m.rows {
		box := boxStyle
		if i == m.selected {
			box = selectedBoxStyle
		}
		s.WriteString(box.Render(renderRow(r)))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render(fmt.Sprintf("Updated %s | [↑/↓] select [r]estart [q]uit", m.updated.Format("15:04:05"))))
	return s.String()
}

func renderRow(r Row) string {
	var s strings.Builder
	st := r.State
	s.WriteString(statusStyle(st.Status).Render("●"))
	s.WriteString(" ")
	s.WriteString(boldStyle.Render(st.Category))
	s.WriteString(dimStyle.Render(fmt.Sprintf("  %s  cursor %s", st.Status, cursorLabel(st.Cursor))))
	if r.Endpoint != "" {
		s.WriteString(dimStyle.Render("  @ " + r.Endpoint))
	}
	s.WriteString("\n")

	detail := fmt.Sprintf("received %d  buffered %d", st.TotalReceived, r.Buffered)
	if r.Live >= 0 {
		detail += fmt.Sprintf("  live %d", r.Live)
	}
	s.WriteString(dimStyle.Render(detail))

	if st.ErrorMessage != "" {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(st.ErrorMessage))
	}
	if st.LastEvent != nil {
		s.WriteString("\n")
		s.WriteString("last " + st.LastEvent.Preview().String())
	}
	if len(r.Counts) > 0 {
		parts := make([]string, len(r.Counts))
		for i, c := range r.Counts {
			parts[i] = fmt.Sprintf("%s %d", c.Type, c.Value)
		}
		s.WriteString("\n")
		s.WriteString(dimStyle.Render(strings.Join(parts, "  •  ")))
	}
	return s.String()
}

func cursorLabel(k cursor.Key) string {
	if k.IsZero() {
		return "-"
	}
	return cursor.Encode(k)
}

func statusStyle(s feed.Status) lipgloss.Style {
	switch s {
	case feed.StatusOK:
		return okStyle
	case feed.StatusError:
		return errorStyle
	default:
		return dimStyle
	}
}

var (
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#04B575")
	errorColor   = lipgloss.Color("#FF0000")
	dimColor     = lipgloss.Color("#666666")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).PaddingLeft(2)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor).
			Padding(0, 1).
			Width(80)
	selectedBoxStyle = boxStyle.BorderForeground(primaryColor)

	boldStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(dimColor)
	okStyle    = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
)

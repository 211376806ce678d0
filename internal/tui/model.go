// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the live run viewer: one table of tracked runs, refreshed on a
// timer, with per-row cancellation.
type Model struct {
	Backend Backend

	Table           table.Model
	Runs            []RunSummary
	ConnectionError string
	Width           int
	Height          int
	Message         string
}

// NewModel builds a Model polling backend.
func NewModel(backend Backend) Model {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Topology", Width: 16},
		{Title: "Mode", Width: 18},
		{Title: "Status", Width: 12},
		{Title: "Iterations", Width: 10},
		{Title: "Groups", Width: 8},
		{Title: "Cost", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(ColorDeep).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(ColorIce).Background(ColorDeep).Bold(false)
	t.SetStyles(s)

	return Model{Backend: backend, Table: t}
}

// Init starts the first fetch and the refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		runs, err := m.Backend.ListRuns()
		if err != nil {
			return BackendError{Err: err}
		}
		return runs
	}
}

// Update handles bubbletea messages: a refreshed run list, the tick that
// triggers the next one, key presses (quit, manual refresh, cancel the
// selected run), a connection failure and its auto-retry, and window
// resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case []RunSummary:
		m.ConnectionError = ""
		m.Runs = msg
		m.Table.SetRows(rowsFor(msg))
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.refresh(), m.tick())

	case BackendError:
		m.ConnectionError = msg.Err.Error()
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg { return RetryMsg{} })

	case RetryMsg:
		if m.ConnectionError != "" {
			m.ConnectionError = ""
			return m, m.refresh()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refresh()
		case "c", "x":
			if idx := m.Table.Cursor(); idx >= 0 && idx < len(m.Runs) {
				id := m.Runs[idx].ID
				return m, func() tea.Msg {
					if err := m.Backend.CancelRun(id); err != nil {
						return BackendError{Err: err}
					}
					return m.refresh()()
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetHeight(msg.Height - 6)
	}

	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

// View renders the run table plus the detail line for the selected run.
func (m Model) View() string {
	if m.ConnectionError != "" {
		msg := StyleTitle.Render("Connection lost") + "\n\n" +
			StyleStatusBad.Render(m.ConnectionError) + "\n\n" +
			StyleSubtitle.Render("retrying... (press q to quit)")
		return StyleApp.Render(StyleCard.Render(msg))
	}

	header := StyleHeader.Render("SNOWCAP RUNS   [r] refresh  [c] cancel  [q] quit")

	body := StyleCard.Render(m.Table.View())

	detail := ""
	if idx := m.Table.Cursor(); idx >= 0 && idx < len(m.Runs) {
		detail = m.renderDetail(m.Runs[idx])
	}

	return StyleApp.Render(lipgloss.JoinVertical(lipgloss.Left, header, body, detail))
}

func (m Model) renderDetail(r RunSummary) string {
	lines := []string{
		StyleTitle.Render(r.ID),
		fmt.Sprintf("%s  mode=%s  status=%s", r.Topology, r.Mode, statusStyle(r.Status).Render(string(r.Status))),
	}

	if r.Status == StatusRunning {
		lines = append(lines, fmt.Sprintf("iterations=%d  problem_groups=%d  (searching...)", r.Iterations, r.ProblemGroups))
	} else {
		lines = append(lines, fmt.Sprintf("iterations=%d  problem_groups=%d  cost=%.2f  wall=%dms",
			r.Iterations, r.ProblemGroups, r.Cost, r.WallMS))
		if r.Error != "" {
			lines = append(lines, StyleStatusBad.Render(r.Error))
		}
	}

	return StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func rowsFor(runs []RunSummary) []table.Row {
	rows := make([]table.Row, len(runs))
	for i, r := range runs {
		cost := ""
		if r.Status != StatusRunning {
			cost = strconv.FormatFloat(r.Cost, 'f', 2, 64)
		}
		rows[i] = table.Row{
			shortID(r.ID),
			r.Topology,
			r.Mode,
			string(r.Status),
			strconv.Itoa(r.Iterations),
			strconv.Itoa(r.ProblemGroups),
			cost,
		}
	}
	return rows
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

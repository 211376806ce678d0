// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorDeep = lipgloss.Color("25")  // panel borders, selected row background
	ColorIce  = lipgloss.Color("255") // selected row foreground
	ColorGood = lipgloss.Color("42")
	ColorBad  = lipgloss.Color("196")
	ColorWarn = lipgloss.Color("214")
	ColorDim  = lipgloss.Color("240")
)

var (
	StyleApp = lipgloss.NewStyle().Padding(1, 2)

	StyleHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorIce).Background(ColorDeep).Padding(0, 1)

	StyleTitle    = lipgloss.NewStyle().Bold(true)
	StyleSubtitle = lipgloss.NewStyle().Foreground(ColorDim)
	StyleSubtle   = lipgloss.NewStyle().Foreground(ColorDim)

	StyleCard = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorDeep).Padding(0, 1)

	StyleStatusGood = lipgloss.NewStyle().Foreground(ColorGood)
	StyleStatusBad  = lipgloss.NewStyle().Foreground(ColorBad)
	StyleStatusWarn = lipgloss.NewStyle().Foreground(ColorWarn)

	StyleMenuKey        = lipgloss.NewStyle().Foreground(ColorDim)
	StyleMenuItem       = lipgloss.NewStyle().Padding(0, 1)
	StyleMenuItemActive = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(ColorIce).Background(ColorDeep)
	StyleTopBar         = lipgloss.NewStyle().MarginBottom(1)
)

// statusStyle picks the status-line style for a run's lifecycle state.
func statusStyle(s Status) lipgloss.Style {
	switch s {
	case StatusSatisfied:
		return StyleStatusGood
	case StatusNoSolution, StatusError:
		return StyleStatusBad
	case StatusCanceled:
		return StyleStatusWarn
	default:
		return StyleSubtitle
	}
}

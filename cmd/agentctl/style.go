package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/axondata/go-launchagent"
)

var (
	groupStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	labelStyle = lipgloss.NewStyle().Bold(true)
)

// statusColors maps presentation keys from launchagent to ANSI colors
var statusColors = map[string]lipgloss.Color{
	launchagent.ColorGreen:  lipgloss.Color("2"),
	launchagent.ColorYellow: lipgloss.Color("3"),
	launchagent.ColorGray:   lipgloss.Color("8"),
	launchagent.ColorOrange: lipgloss.Color("208"),
}

// statusDot renders a colored bullet for the status
func statusDot(s launchagent.AgentStatus) string {
	return lipgloss.NewStyle().Foreground(statusColors[s.ColorKey()]).Render("●")
}

// statusText renders the status display text in its color
func statusText(s launchagent.AgentStatus) string {
	return lipgloss.NewStyle().Foreground(statusColors[s.ColorKey()]).Render(s.String())
}

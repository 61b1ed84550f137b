package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	subtle   lipgloss.Style
	section  lipgloss.Style
	selected lipgloss.Style
	dirty    lipgloss.Style
	errText  lipgloss.Style
	okText   lipgloss.Style
	status   lipgloss.Style
	logLine  lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		subtle:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		section:  lipgloss.NewStyle().Bold(true).Underline(true),
		selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		dirty:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		errText:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		okText:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		status:   lipgloss.NewStyle().Reverse(true).Padding(0, 1),
		logLine:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

package items

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	record  lipgloss.Style
	id      lipgloss.Style
	detail  lipgloss.Style
	warning lipgloss.Style
	ok      lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
	key     lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		record:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		id:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
		key:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

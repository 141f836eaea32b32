package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains all lipgloss styles for the watch TUI
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Running lipgloss.Style
	Waiting lipgloss.Style
	Unit    lipgloss.Style

	LogTitle lipgloss.Style
	LogLine  lipgloss.Style

	Footer    lipgloss.Style
	FooterKey lipgloss.Style
}

// DefaultStyles returns the default TUI styles
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250")),
		Running: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Waiting: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Unit:    lipgloss.NewStyle().Bold(true),

		LogTitle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Bold(true),
		LogLine:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		Footer:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1),
		FooterKey: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	}
}

// Icons used in the TUI
const (
	IconRunning = "●"
	IconWaiting = "⏳"
)

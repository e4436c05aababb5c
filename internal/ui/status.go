package ui

import "github.com/charmbracelet/lipgloss"

var statusStyles = map[string]lipgloss.Style{
	"ready":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	"partial": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	"open":    lipgloss.NewStyle(),
	"broken":  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	"review":  lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	"blocked": lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	"claimed": lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	"done":    lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true),
}

var (
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// FormatStatus renders a status label, colored by name when stdout is a
// terminal.
func FormatStatus(name, label string) string {
	if !ansiEnabled() {
		return label
	}
	style, ok := statusStyles[name]
	if !ok {
		return label
	}
	return style.Render(label)
}

// Muted renders secondary text.
func Muted(text string) string {
	if !ansiEnabled() {
		return text
	}
	return mutedStyle.Render(text)
}

// Warning renders text that needs attention.
func Warning(text string) string {
	if !ansiEnabled() {
		return text
	}
	return warningStyle.Render(text)
}

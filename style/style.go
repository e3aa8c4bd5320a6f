// Package style renders text with lipgloss.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/opentube/opentube/color"
)

func New() lipgloss.Style {
	return lipgloss.NewStyle()
}

// Fg returns a renderer painting its argument in c.
func Fg(c lipgloss.TerminalColor) func(string) string {
	return func(s string) string { return New().Foreground(c).Render(s) }
}

var (
	Faint = func(s string) string { return New().Faint(true).Render(s) }
	Bold  = func(s string) string { return New().Bold(true).Render(s) }
)

// Semantic renderers shared by the commands.
var (
	Success = Fg(color.Green)
	Failure = Fg(color.Red)
	Key     = Fg(color.Purple)
	Value   = Fg(color.Yellow)
	Muted   = Fg(color.Muted)
	Accent  = func(s string) string { return New().Bold(true).Foreground(color.Accent).Render(s) }
)

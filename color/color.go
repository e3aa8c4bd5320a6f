// Package color names the terminal colors opentube prints with.
package color

import "github.com/charmbracelet/lipgloss"

// New wraps an ANSI index or a hex value.
func New(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

var (
	Red    = New("1")
	Green  = New("2")
	Yellow = New("3")
	Blue   = New("4")
	Purple = New("5")
	HiRed  = New("9")
)

// Palette of the event lines and dialogs, readable on dark and light terminals.
var (
	Accent = lipgloss.AdaptiveColor{Light: "#8839ef", Dark: "#cba6f7"}
	Text   = lipgloss.AdaptiveColor{Light: "#4c4f69", Dark: "#cdd6f4"}
	Muted  = lipgloss.AdaptiveColor{Light: "#9ca0b0", Dark: "#6c7086"}
)

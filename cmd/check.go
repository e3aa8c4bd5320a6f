package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/opentube/opentube/color"
	"github.com/opentube/opentube/icon"
	"github.com/opentube/opentube/style"
)

var installHints = map[string]string{
	"darwin":  "brew install mpv",
	"linux":   "sudo apt install mpv",
	"windows": "scoop install mpv",
}

// checkPlayer exits when the configured mpv binary cannot be found.
func checkPlayer(path string) {
	if _, err := exec.LookPath(path); err == nil {
		return
	}

	fmt.Println(missingPlayer(path, installHints[runtime.GOOS]))
	os.Exit(1)
}

func missingPlayer(path, hint string) string {
	lines := []string{
		style.New().Bold(true).Foreground(color.HiRed).Render(icon.Get(icon.Fail) + " mpv not found"),
		"",
		style.New().Foreground(color.Text).Render(fmt.Sprintf("opentube plays through mpv, but %q is not in your PATH.", path)),
		style.Muted("Set another binary with: opentube config set player.mpv_path <path>"),
	}
	if hint != "" {
		lines = append(lines, "", "Install it with "+style.Accent(hint))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color.HiRed).
		Padding(1, 2).
		Margin(1, 0).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

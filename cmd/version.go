package cmd

import (
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/opentube/opentube/constant"
	"github.com/opentube/opentube/style"
	"github.com/opentube/opentube/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Only print the version number")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		cmd.Println(versionInfo())
		version.Notify()
	},
}

func versionInfo() string {
	rows := [][2]string{
		{"Version", constant.Version},
		{"Commit", constant.Revision},
		{"Built at", strings.TrimSpace(constant.BuiltAt)},
		{"Built by", constant.BuiltBy},
		{"Platform", runtime.GOOS + "/" + runtime.GOARCH},
		{"Go", runtime.Version()},
	}

	label := style.New().Width(10).Faint(true)
	lines := lo.Map(rows, func(row [2]string, _ int) string {
		return "  " + label.Render(row[0]) + style.Bold(row[1])
	})

	return lipgloss.JoinVertical(lipgloss.Left, append([]string{style.Accent(constant.OpenTube), ""}, lines...)...)
}

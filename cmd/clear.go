package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/opentube/opentube/icon"
	"github.com/opentube/opentube/util"
	"github.com/opentube/opentube/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var clearables = []struct {
	flag, short, what string
	path              func() string
}{
	{"cache", "c", "version check cache", where.VersionCache},
	{"history", "H", "watch history", where.History},
	{"sessions", "s", "saved sessions", where.Sessions},
	{"temp", "t", "mpv sockets", where.Temp},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	for _, c := range clearables {
		clearCmd.Flags().BoolP(c.flag, c.short, false, "Clear the "+c.what)
	}
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached data, history, saved sessions or mpv sockets",
	Run: func(cmd *cobra.Command, args []string) {
		var cleared int

		for _, c := range clearables {
			if !lo.Must(cmd.Flags().GetBool(c.flag)) {
				continue
			}

			erase := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), c.what))
			err := util.Delete(c.path())
			erase()
			if !errors.Is(err, fs.ErrNotExist) {
				handleErr(err)
			}

			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(c.what))
			cleared++
		}

		if cleared == 0 {
			handleErr(cmd.Help())
		}
	},
}

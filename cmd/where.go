package cmd

import (
	"os"

	"github.com/opentube/opentube/style"
	"github.com/opentube/opentube/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type location struct {
	flag  string
	short string
	path  func() string
	// shown in the overview
	listed bool
}

var locations = []location{
	{"config", "c", where.Config, true},
	{"logs", "l", where.Logs, true},
	{"sessions", "s", where.Sessions, true},
	{"history", "", where.History, true},
	{"cache", "", where.Cache, false},
	{"temp", "", where.Temp, false},
}

func init() {
	rootCmd.AddCommand(whereCmd)

	for _, l := range locations {
		whereCmd.Flags().BoolP(l.flag, l.short, false, "Print the "+l.flag+" path only")
		if !l.listed {
			lo.Must0(whereCmd.Flags().MarkHidden(l.flag))
		}
	}
	whereCmd.MarkFlagsMutuallyExclusive(lo.Map(locations, func(l location, _ int) string { return l.flag })...)
	whereCmd.SetOut(os.Stdout)
}

var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where opentube keeps its files",
	Run: func(cmd *cobra.Command, args []string) {
		if l, ok := lo.Find(locations, func(l location) bool {
			return lo.Must(cmd.Flags().GetBool(l.flag))
		}); ok {
			cmd.Println(l.path())
			return
		}

		listed := lo.Filter(locations, func(l location, _ int) bool { return l.listed })
		for i, l := range listed {
			cmd.Printf("%s %s\n%s\n", style.Accent(l.flag), style.Muted("--"+l.flag), l.path())
			if i < len(listed)-1 {
				cmd.Println()
			}
		}
	},
}

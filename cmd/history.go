package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/opentube/opentube/history"
	"github.com/opentube/opentube/icon"
	"github.com/opentube/opentube/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	historyCmd.Flags().StringP("remove", "r", "", "Forget the entry of a URL")
	historyCmd.SetOut(os.Stdout)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show how far each video was watched",
	Run: func(cmd *cobra.Command, args []string) {
		store := history.Default()

		if url := lo.Must(cmd.Flags().GetString("remove")); url != "" {
			handleErr(store.Remove(url))
			fmt.Printf("%s removed %s\n", style.Success(icon.Get(icon.Success)), url)
			return
		}

		saved, err := store.Get()
		handleErr(err)

		entries := lo.Values(saved)
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(entries))
			return
		}

		if len(entries) == 0 {
			cmd.Println(style.Faint("nothing watched yet"))
			return
		}

		for _, entry := range entries {
			cmd.Printf(
				"%s %s\n  %s %s\n",
				style.Value(fmt.Sprintf("%3.0f%%", entry.Percentage())),
				style.Bold(entry.Item.Title),
				style.Faint(entry.Position.Truncate(time.Second).String()),
				style.Faint(entry.Item.URL),
			)
		}
	},
}

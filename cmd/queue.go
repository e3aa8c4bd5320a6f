package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/opentube/opentube/handoff"
	"github.com/opentube/opentube/icon"
	"github.com/opentube/opentube/queue"
	"github.com/opentube/opentube/style"
	"github.com/opentube/opentube/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(queueCmd)
}

var queueCmd = &cobra.Command{
	Use:     "queue",
	Aliases: []string{"sessions"},
	Short:   "Manage saved play queues",
}

func withStore(f func(store *handoff.Store) error) error {
	store, err := handoff.OpenDefault()
	if err != nil {
		return err
	}
	defer util.Ignore(store.Close)

	return f(store)
}

func init() {
	queueCmd.AddCommand(queueListCmd)
	queueListCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	queueListCmd.SetOut(os.Stdout)
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved queues, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(withStore(func(store *handoff.Store) error {
			summaries, err := store.List()
			if err != nil {
				return err
			}

			if lo.Must(cmd.Flags().GetBool("json")) {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(summaries)
			}

			if len(summaries) == 0 {
				cmd.Println(style.Faint("no saved queues"))
				return nil
			}

			for _, s := range summaries {
				cmd.Printf(
					"%s %s %s\n  %s\n",
					style.Key(s.ID),
					style.Faint(s.SavedAt.Format("2006-01-02 15:04")),
					style.Faint(fmt.Sprintf("%d/%s", s.Index+1, util.Quantify(s.Len, "item", "items"))),
					s.Current,
				)
			}
			return nil
		}))
	},
}

func init() {
	queueCmd.AddCommand(queueShowCmd)
	queueShowCmd.SetOut(os.Stdout)
}

var queueShowCmd = &cobra.Command{
	Use:               "show <id>",
	Short:             "Print the items of a saved queue",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionSessionIDs,
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(withStore(func(store *handoff.Store) error {
			q, err := store.Load(args[0])
			if err != nil {
				return err
			}

			items, index, complete := q.Snapshot()
			for i, item := range items {
				marker := "  "
				if i == index {
					marker = icon.Get(icon.Mark)
				}
				cmd.Printf("%s %s %s\n", marker, style.Key(fmt.Sprintf("%3d", i)), item)
			}
			if complete {
				cmd.Println(style.Faint("loops around"))
			}
			return nil
		}))
	},
}

func init() {
	queueCmd.AddCommand(queueDeleteCmd)
}

var queueDeleteCmd = &cobra.Command{
	Use:               "delete <id>",
	Aliases:           []string{"remove"},
	Short:             "Delete a saved queue",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionSessionIDs,
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(withStore(func(store *handoff.Store) error {
			return store.Delete(args[0])
		}))
		fmt.Printf("%s deleted %s\n", style.Success(icon.Get(icon.Success)), args[0])
	},
}

func init() {
	queueCmd.AddCommand(queueSchemaCmd)
	queueSchemaCmd.SetOut(os.Stdout)
}

var queueSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of an encoded queue",
	Run: func(cmd *cobra.Command, args []string) {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		handleErr(encoder.Encode(queueSchema()))
	},
}

func queueSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&queue.Envelope{})
}

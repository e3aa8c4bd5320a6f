package cmd

import (
	"os"
	"sort"

	"github.com/opentube/opentube/config"
	"github.com/opentube/opentube/where"
	"github.com/opentube/opentube/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Only show variables that are set")
	envCmd.Flags().BoolP("unset-only", "u", false, "Only show variables that are unset")
	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
	envCmd.SetOut(os.Stdout)
}

// envVariables lists every environment variable opentube reads, sorted.
func envVariables() []string {
	names := lo.Map(config.EnvExposed, func(k string, _ int) string {
		field := config.Default[k]
		return field.Env()
	})
	names = append(names, where.EnvConfigPath)
	sort.Strings(names)
	return slices.Compact(names)
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables opentube reads",
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))

		for _, name := range envVariables() {
			value, present := os.LookupEnv(name)
			if (setOnly && !present) || (unsetOnly && present) {
				continue
			}

			cmd.Print(style.Key(style.Bold(name)), "=")
			if present {
				cmd.Println(style.Success(value))
			} else {
				cmd.Println(style.Muted("unset"))
			}
		}
	},
}

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/opentube/opentube/config"
	"github.com/opentube/opentube/constant"
	"github.com/opentube/opentube/filesystem"
	"github.com/opentube/opentube/icon"
	"github.com/opentube/opentube/style"
	"github.com/opentube/opentube/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errMissingKey = errors.New("key is required")

// lookupField returns the registered field for key, suggesting the closest
// known key when there is none.
func lookupField(key string) (config.Field, error) {
	if field, ok := config.Default[key]; ok {
		return field, nil
	}

	closest := lo.MinBy(lo.Keys(config.Default), func(a, b string) bool {
		return levenshtein.Distance(key, a) < levenshtein.Distance(key, b)
	})
	return config.Field{}, fmt.Errorf("unknown key %s, did you mean %s?", style.Failure(key), style.Value(closest))
}

// parseValue converts raw arguments to the type of the field's default.
func parseValue(field config.Field, raw []string) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no value given for %s", field.Key)
	}

	switch field.Value.(type) {
	case int:
		n, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer, got %q", field.Key, raw[0])
		}
		return n, nil
	case bool:
		b, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s expects a boolean, got %q", field.Key, raw[0])
		}
		return b, nil
	case []string:
		return raw, nil
	default:
		return raw[0], nil
	}
}

func configFile() string {
	return filepath.Join(where.Config(), constant.OpenTube+".toml")
}

// persist writes the live configuration, creating the file on first use.
func persist() error {
	err := viper.WriteConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return viper.SafeWriteConfig()
	}
	return err
}

// keyArg takes the key from the first argument or the --key flag.
func keyArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cmd.Flags().Lookup("key") != nil {
		if key := lo.Must(cmd.Flags().GetString("key")); key != "" {
			return key, nil
		}
	}
	return "", errMissingKey
}

func completionConfigKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Keys(config.Default), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInfoCmd, configSetCmd, configGetCmd, configWriteCmd, configDeleteCmd, configResetCmd)

	configInfoCmd.Flags().StringSliceP("key", "k", nil, "Only describe these keys")
	configInfoCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	lo.Must0(configInfoCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))
	configInfoCmd.SetOut(os.Stdout)

	configSetCmd.Flags().StringP("key", "k", "", "Key to set")
	configSetCmd.Flags().StringSliceP("value", "v", nil, "Value to assign")
	lo.Must0(configSetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))

	configGetCmd.Flags().StringP("key", "k", "", "Key to read")
	lo.Must0(configGetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))
	configGetCmd.SetOut(os.Stdout)

	configWriteCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")

	configResetCmd.Flags().StringP("key", "k", "", "Key to restore")
	configResetCmd.Flags().BoolP("all", "a", false, "Restore every key")
	configResetCmd.MarkFlagsMutuallyExclusive("key", "all")
	lo.Must0(configResetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change settings",
}

var configInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe settings, their values and defaults",
	Run: func(cmd *cobra.Command, args []string) {
		fields := lo.Values(config.Default)
		if keys := lo.Must(cmd.Flags().GetStringSlice("key")); len(keys) > 0 {
			fields = lo.Map(keys, func(key string, _ int) config.Field {
				field, err := lookupField(key)
				handleErr(err)
				return field
			})
		}
		sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(lo.ToSlicePtr(fields)))
			return
		}

		var section string
		for i := range fields {
			if s := fields[i].Section(); s != section {
				section = s
				cmd.Println(style.Accent("[" + section + "]"))
			}
			cmd.Println(fields[i].Pretty())
			cmd.Println()
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:               "set <key> <value>",
	Short:             "Change a setting and save it",
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		key, err := keyArg(cmd, args)
		handleErr(err)

		field, err := lookupField(key)
		handleErr(err)

		raw := lo.Must(cmd.Flags().GetStringSlice("value"))
		if len(args) > 1 {
			raw = args[1:]
		}
		value, err := parseValue(field, raw)
		handleErr(err)

		viper.Set(key, value)
		handleErr(persist())

		fmt.Printf("%s %s = %s\n", style.Success(icon.Get(icon.Success)), style.Key(key), style.Value(fmt.Sprint(value)))
	},
}

var configGetCmd = &cobra.Command{
	Use:               "get <key>",
	Short:             "Print the value of a setting",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		key, err := keyArg(cmd, args)
		handleErr(err)

		_, err = lookupField(key)
		handleErr(err)

		cmd.Println(viper.Get(key))
	},
}

var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Save the current settings to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configFile()
		if lo.Must(cmd.Flags().GetBool("force")) {
			if err := filesystem.API().Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				handleErr(err)
			}
		}

		handleErr(viper.SafeWriteConfig())
		fmt.Printf("%s wrote %s\n", style.Success(icon.Get(icon.Success)), path)
	},
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"remove"},
	Short:   "Delete the config file",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(filesystem.API().Remove(configFile()))
		fmt.Printf("%s deleted %s\n", style.Success(icon.Get(icon.Success)), configFile())
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore settings to their defaults",
	Run: func(cmd *cobra.Command, args []string) {
		var fields []config.Field

		if lo.Must(cmd.Flags().GetBool("all")) {
			fields = lo.Values(config.Default)
		} else {
			key, err := keyArg(cmd, args)
			if errors.Is(err, errMissingKey) {
				err = errors.New("either --key or --all must be set")
			}
			handleErr(err)

			field, err := lookupField(key)
			handleErr(err)
			fields = []config.Field{field}
		}

		for _, field := range fields {
			viper.Set(field.Key, field.Value)
		}
		handleErr(persist())

		if len(fields) == 1 {
			fmt.Printf("%s %s reset to %s\n", style.Success(icon.Get(icon.Success)), style.Key(fields[0].Key), style.Value(fmt.Sprint(fields[0].Value)))
			return
		}
		fmt.Printf("%s %s reset\n", style.Success(icon.Get(icon.Success)), "every setting")
	},
}

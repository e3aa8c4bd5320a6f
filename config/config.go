// Package config owns the viper-backed settings registry: factory defaults, environment bindings and the on-disk TOML file.
package config

import (
	"errors"
	"strings"

	"github.com/opentube/opentube/constant"
	"github.com/opentube/opentube/filesystem"
	"github.com/opentube/opentube/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer maps dotted configuration keys onto environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup registers defaults and environment bindings, then reads the config file if one exists.
func Setup() error {
	viper.SetConfigName(constant.OpenTube)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.OpenTube)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	return nil
}

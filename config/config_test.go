package config

import (
	"testing"

	"github.com/opentube/opentube/filesystem"
	"github.com/opentube/opentube/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Given the registered defaults", t, func() {
		So(Setup(), ShouldBeNil)

		Convey("Every field is registered exactly once", func() {
			So(len(Default), ShouldEqual, key.DefinedFieldsCount)
			So(len(EnvExposed), ShouldEqual, key.DefinedFieldsCount)
		})

		Convey("Defaults are visible through viper", func() {
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
			So(viper.GetString(key.PlayerDefaultQuality), ShouldEqual, "720p")
			So(viper.GetInt(key.CacheCapacity), ShouldEqual, 50)
			So(viper.GetInt(key.ResolverMaxRetries), ShouldEqual, 3)
		})

		Convey("Env names carry the application prefix", func() {
			f := Default[key.ResolverRetryDelayMs]
			So(f.Env(), ShouldEqual, "OPENTUBE_RESOLVER_RETRY_DELAY_MS")
		})

		Convey("Fields know their section and type", func() {
			f := Default[key.PlayerLoop]
			So(f.Section(), ShouldEqual, "player")
			So(f.Type(), ShouldEqual, "bool")
			So(f.Pretty(), ShouldContainSubstring, key.PlayerLoop)
		})

		Convey("EnvKeyReplacer converts dots to underscores", func() {
			So(EnvKeyReplacer.Replace("player.default_quality"), ShouldEqual, "player_default_quality")
		})
	})
}

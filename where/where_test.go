package where

import (
	"path/filepath"
	"testing"

	"github.com/opentube/opentube/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Directory resolvers create their directories", t, func() {
		resolvers := []struct {
			name    string
			resolve func() string
		}{
			{"Config", Config},
			{"Cache", Cache},
			{"Logs", Logs},
			{"Temp", Temp},
		}

		for _, r := range resolvers {
			Convey(r.name, func() {
				path := r.resolve()
				So(path, ShouldNotBeEmpty)
				So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
			})
		}
	})

	Convey("Cache files live in the cache directory", t, func() {
		So(filepath.Dir(VersionCache()), ShouldEqual, Cache())
	})

	Convey("The config path can be overridden", t, func() {
		t.Setenv(EnvConfigPath, "/custom/opentube")
		So(Config(), ShouldEqual, "/custom/opentube")
		So(History(), ShouldEqual, filepath.Join("/custom/opentube", "history.json"))
	})
}

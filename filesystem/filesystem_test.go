package filesystem

import (
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBackend(t *testing.T) {
	Convey("Filesystem backend", t, func() {
		Convey("Defaults to the OS filesystem", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Switches to memory", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")

			Convey("And gache writes land in memory", func() {
				var fs GacheFs
				So(fs.MkdirAll("/sessions", os.ModePerm), ShouldBeNil)
				f, err := fs.OpenFile("/sessions/a.json", os.O_CREATE|os.O_WRONLY, 0o644)
				So(err, ShouldBeNil)
				_, err = f.Write([]byte("{}"))
				So(err, ShouldBeNil)
				So(f.Close(), ShouldBeNil)

				exists, err := API().Exists("/sessions/a.json")
				So(err, ShouldBeNil)
				So(exists, ShouldBeTrue)
			})
		})
	})
}

package handoff

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/opentube/opentube/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func sample() *queue.Queue {
	q := queue.NewLooping(1, []queue.Item{
		queue.NewItem(0, "A", "https://youtu.be/a", "", "", 60, nil, queue.StreamTypeVideo),
		queue.NewItem(0, "B", "https://youtu.be/b", "", "", 90, nil, queue.StreamTypeVideo),
	})
	return q
}

func TestStore(t *testing.T) {
	Convey("Given an open store", t, func() {
		store, err := Open(filepath.Join(t.TempDir(), "queues.db"))
		So(err, ShouldBeNil)
		defer store.Close()

		Convey("A saved queue loads back with its cursor and completion flag", func() {
			original := sample()
			id, err := store.Save(original)
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)

			loaded, err := store.Load(id)
			So(err, ShouldBeNil)
			So(loaded.StreamAndIndexEqual(original), ShouldBeTrue)
			So(loaded.IsComplete(), ShouldBeTrue)
		})

		Convey("Listing summarizes stored queues", func() {
			id, err := store.Save(sample())
			So(err, ShouldBeNil)

			summaries, err := store.List()
			So(err, ShouldBeNil)
			So(len(summaries), ShouldEqual, 1)
			So(summaries[0].ID, ShouldEqual, id)
			So(summaries[0].Len, ShouldEqual, 2)
			So(summaries[0].Index, ShouldEqual, 1)
			So(summaries[0].Current, ShouldEqual, "B")
			So(summaries[0].SavedAt.IsZero(), ShouldBeFalse)
		})

		Convey("Deleted and unknown ids are not found", func() {
			id, err := store.Save(sample())
			So(err, ShouldBeNil)
			So(store.Delete(id), ShouldBeNil)

			_, err = store.Load(id)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			So(errors.Is(store.Delete(id), ErrNotFound), ShouldBeTrue)
		})
	})
}

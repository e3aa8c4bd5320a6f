package queue

import (
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCodec(t *testing.T) {
	Convey("Given a looping queue positioned mid-list", t, func() {
		q := NewLooping(2, items(4))

		Convey("Decode(Encode(q)) restores items, cursor and completion", func() {
			data, err := q.Encode()
			So(err, ShouldBeNil)

			decoded, err := Decode(data)
			So(err, ShouldBeNil)
			So(decoded.StreamAndIndexEqual(q), ShouldBeTrue)
			So(decoded.IsComplete(), ShouldBeTrue)
			So(decoded.Items(), ShouldResemble, q.Items())
		})

		Convey("The queue embeds in other documents through json.Marshal", func() {
			doc := struct {
				Queue *Queue `json:"queue"`
			}{Queue: q}

			data, err := json.Marshal(doc)
			So(err, ShouldBeNil)

			var out struct {
				Queue *Queue `json:"queue"`
			}
			So(json.Unmarshal(data, &out), ShouldBeNil)
			So(out.Queue.StreamAndIndexEqual(q), ShouldBeTrue)
		})

		Convey("Unknown versions are rejected", func() {
			env := q.Envelope()
			env.Version = EnvelopeVersion + 1
			data, _ := json.Marshal(env)

			_, err := Decode(data)
			So(errors.Is(err, ErrUnsupportedVersion), ShouldBeTrue)
		})

		Convey("Malformed input is an error", func() {
			_, err := Decode([]byte("{"))
			So(err, ShouldNotBeNil)
		})

		Convey("An envelope with an out-of-range cursor is clamped", func() {
			env := q.Envelope()
			env.Index = 40
			decoded, err := FromEnvelope(env)
			So(err, ShouldBeNil)
			So(decoded.Index(), ShouldEqual, 3)
		})
	})
}

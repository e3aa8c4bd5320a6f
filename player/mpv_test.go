package player

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeMPV answers every command on a unix socket, optionally preceded by a broadcast event.
func fakeMPV(t *testing.T, reply string) (socket string, commands func() []string) {
	socket = filepath.Join(t.TempDir(), "mpv.sock")
	ln, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	var (
		mu   sync.Mutex
		seen []string
	)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						return
					}
					mu.Lock()
					seen = append(seen, strings.TrimSpace(line))
					mu.Unlock()
					_, _ = conn.Write([]byte(`{"event":"idle"}` + "\n" + reply + "\n"))
				}
			}(conn)
		}
	}()

	return socket, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), seen...)
	}
}

func TestIPC(t *testing.T) {
	Convey("Given a fake mpv socket", t, func() {
		socket, commands := fakeMPV(t, `{"data":42.5,"error":"success"}`)
		m := NewMPV("")
		m.socketPath = socket

		Convey("Replies are read past broadcast events", func() {
			data, err := m.sendCommand("get_property", "time-pos")
			So(err, ShouldBeNil)
			So(data, ShouldEqual, 42.5)
			So(commands()[0], ShouldEqual, `{"command":["get_property","time-pos"]}`)
		})

		Convey("Positions are converted to durations", func() {
			So(m.CurrentPosition(), ShouldEqual, 42500*time.Millisecond)
		})

		Convey("Seeks are sent in seconds", func() {
			So(m.SeekTo(42*time.Second), ShouldBeNil)
			So(commands()[0], ShouldEqual, `{"command":["seek",42,"absolute"]}`)
		})
	})

	Convey("mpv errors are surfaced", t, func() {
		socket, _ := fakeMPV(t, `{"data":null,"error":"property unavailable"}`)
		m := NewMPV("")
		m.socketPath = socket

		_, err := m.sendCommand("get_property", "duration")
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "property unavailable")
		So(m.Duration(), ShouldEqual, time.Duration(0))
	})

	Convey("Commands fail without a process", t, func() {
		_, err := NewMPV("").sendCommand("get_property", "pid")
		So(err, ShouldNotBeNil)
	})
}

func TestHandle(t *testing.T) {
	Convey("Given an engine with a listener", t, func() {
		m := NewMPV("")
		m.tag = 7
		var got []Event
		m.SetListener(func(evt Event) { got = append(got, evt) })

		feed := func(line string) {
			evt, ok := parseEvent([]byte(line))
			So(ok, ShouldBeTrue)
			m.handle(evt)
		}

		Convey("file-loaded becomes Ready for the current tag", func() {
			feed(`{"event":"file-loaded"}`)
			So(got, ShouldResemble, []Event{{Kind: Ready, Tag: 7}})
		})

		Convey("Pause changes are ignored until a file is loaded", func() {
			feed(`{"event":"property-change","id":1,"name":"pause","data":false}`)
			So(got, ShouldBeEmpty)

			feed(`{"event":"file-loaded"}`)
			feed(`{"event":"property-change","id":1,"name":"pause","data":false}`)
			So(got[1].Kind, ShouldEqual, Playing)
			So(m.IsPlaying(), ShouldBeTrue)

			feed(`{"event":"property-change","id":1,"name":"pause","data":true}`)
			So(got[2].Kind, ShouldEqual, Paused)
		})

		Convey("end-file maps eof to Ended and error to Error", func() {
			feed(`{"event":"end-file","reason":"eof"}`)
			feed(`{"event":"end-file","reason":"error","file_error":"loading failed"}`)
			feed(`{"event":"end-file","reason":"stop"}`)

			So(len(got), ShouldEqual, 2)
			So(got[0].Kind, ShouldEqual, Ended)
			So(got[1].Kind, ShouldEqual, Error)
			So(got[1].Err.Error(), ShouldContainSubstring, "loading failed")
		})

		Convey("Command replies are not events", func() {
			_, ok := parseEvent([]byte(`{"data":null,"error":"success"}`))
			So(ok, ShouldBeFalse)
		})
	})
}

func TestCommandLine(t *testing.T) {
	Convey("The process starts idle on the given socket", t, func() {
		args := buildArgs("/tmp/x.sock")
		So(args, ShouldContain, "--input-ipc-server=/tmp/x.sock")
		So(args, ShouldContain, "--idle=yes")
	})

	Convey("Merged sources attach the audio locator verbatim", t, func() {
		audio := "https://cdn/audio?a=1,b=2:3"
		commands := loadCommands("https://cdn/video", audio, "Title")

		encoded, err := json.Marshal(commands)
		So(err, ShouldBeNil)
		So(string(encoded), ShouldContainSubstring, `["change-list","audio-files","append","https://cdn/audio?a=1,b=2:3"]`)
		So(commands[0], ShouldResemble, []any{"set_property", "pause", true})
		So(commands[len(commands)-1], ShouldResemble, []any{"loadfile", "https://cdn/video", "replace"})
	})

	Convey("Locators are sanitized", t, func() {
		_, err := sanitizeMediaTarget("--script=evil.lua")
		So(err, ShouldNotBeNil)
		_, err = sanitizeMediaTarget("ftp://host/file")
		So(err, ShouldNotBeNil)
		_, err = sanitizeMediaTarget("https://host/a\nb")
		So(err, ShouldNotBeNil)

		ok, err := sanitizeMediaTarget(" https://host/v ")
		So(err, ShouldBeNil)
		So(ok, ShouldEqual, "https://host/v")
		So(sanitizeTitle(" a\tb\nc\x00 "), ShouldEqual, "a b c")
	})

	Convey("Prepare rejects bad locators and released engines", t, func() {
		m := NewMPV("")
		So(m.Prepare(context.Background(), MergedSource{Video: "", Audio: "https://a"}), ShouldNotBeNil)
		So(m.Release(), ShouldBeNil)
		So(m.Prepare(context.Background(), MergedSource{Video: "https://v", Audio: "https://a"}), ShouldEqual, ErrReleased)
	})
}

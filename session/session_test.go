package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/opentube/opentube/event"
	"github.com/opentube/opentube/extractor"
	"github.com/opentube/opentube/player"
	"github.com/opentube/opentube/queue"
	"github.com/opentube/opentube/schedule"
	"github.com/opentube/opentube/stream"
	. "github.com/smartystreets/goconvey/convey"
)

type inlinePool struct{}

func (inlinePool) Submit(task func()) error {
	task()
	return nil
}

// heldPool keeps tasks until the test runs them.
type heldPool struct {
	mu    sync.Mutex
	tasks []func()
}

func (p *heldPool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *heldPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

func (p *heldPool) RunAll() {
	p.mu.Lock()
	tasks := p.tasks
	p.tasks = nil
	p.mu.Unlock()

	for _, task := range tasks {
		task()
	}
}

type fakeEngine struct {
	mu       sync.Mutex
	listener func(player.Event)
	sources  []player.MergedSource
	calls    []string
	seeks    []time.Duration
	position time.Duration
	playing  bool

	onRelease func()
}

func (e *fakeEngine) Prepare(_ context.Context, source player.MergedSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources = append(e.sources, source)
	e.calls = append(e.calls, "prepare")
	e.playing = false
	return nil
}

func (e *fakeEngine) Play() error {
	e.mu.Lock()
	e.calls = append(e.calls, "play")
	e.playing = true
	e.mu.Unlock()
	e.Emit(player.Playing)
	return nil
}

func (e *fakeEngine) Pause() error {
	e.mu.Lock()
	e.calls = append(e.calls, "pause")
	wasPlaying := e.playing
	e.playing = false
	e.mu.Unlock()
	if wasPlaying {
		e.Emit(player.Paused)
	}
	return nil
}

func (e *fakeEngine) SeekTo(position time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seeks = append(e.seeks, position)
	e.position = position
	return nil
}

func (e *fakeEngine) CurrentPosition() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *fakeEngine) Duration() time.Duration { return 0 }

func (e *fakeEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "stop")
	e.playing = false
	return nil
}

func (e *fakeEngine) Release() error {
	e.mu.Lock()
	e.calls = append(e.calls, "release")
	onRelease := e.onRelease
	e.mu.Unlock()
	if onRelease != nil {
		onRelease()
	}
	return nil
}

func (e *fakeEngine) SetListener(listener func(player.Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = listener
}

// Emit reports kind for the most recently prepared source.
func (e *fakeEngine) Emit(kind player.EventKind) {
	e.mu.Lock()
	listener := e.listener
	tag := e.lastLocked().Tag
	e.mu.Unlock()
	if listener != nil {
		listener(player.Event{Kind: kind, Tag: tag})
	}
}

func (e *fakeEngine) EmitTag(kind player.EventKind, tag uint64) {
	e.mu.Lock()
	listener := e.listener
	e.mu.Unlock()
	if listener != nil {
		listener(player.Event{Kind: kind, Tag: tag})
	}
}

func (e *fakeEngine) Last() player.MergedSource {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastLocked()
}

func (e *fakeEngine) lastLocked() player.MergedSource {
	if len(e.sources) == 0 {
		return player.MergedSource{}
	}
	return e.sources[len(e.sources)-1]
}

func (e *fakeEngine) Prepared() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sources)
}

func (e *fakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *fakeEngine) Seeks() []time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]time.Duration(nil), e.seeks...)
}

func (e *fakeEngine) SetPosition(position time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = position
}

type fakeRecorder struct {
	mu      sync.Mutex
	records map[string]time.Duration
}

func (r *fakeRecorder) Record(item queue.Item, position time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records == nil {
		r.records = make(map[string]time.Duration)
	}
	r.records[item.URL] = position
}

func (r *fakeRecorder) Get(url string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	position, ok := r.records[url]
	return position, ok
}

// scripted fails every extraction of the URLs in failing and counts calls.
type scripted struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   map[string]int
	sets    map[string]*stream.Set
}

func newScripted(failing ...string) *scripted {
	s := &scripted{failing: map[string]bool{}, calls: map[string]int{}, sets: map[string]*stream.Set{}}
	for _, url := range failing {
		s.failing[url] = true
	}
	return s
}

func (s *scripted) Extract(_ context.Context, source string) (*stream.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[source]++
	if s.failing[source] {
		return nil, fmt.Errorf("extraction of %s failed", source)
	}
	if set, ok := s.sets[source]; ok {
		return set, nil
	}
	set := setFor(source, 144, 360, 480, 720, 1080)
	s.sets[source] = set
	return set, nil
}

func (s *scripted) Calls(source string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[source]
}

func setFor(source string, heights ...int) *stream.Set {
	var video []stream.VideoRendition
	for _, height := range heights {
		video = append(video, stream.VideoRendition{
			Height:   height,
			Locator:  fmt.Sprintf("%s/video/%d", source, height),
			MimeType: "video/mp4",
		})
	}
	audio := []stream.AudioRendition{
		{Bitrate: 64000, Locator: source + "/audio/64", MimeType: "audio/webm"},
		{Bitrate: 128000, Locator: source + "/audio/128", MimeType: "audio/webm"},
	}
	return stream.NewSet(source, source, time.Minute, nil, video, audio)
}

func item(name string) queue.Item {
	return queue.NewItem(0, name, "https://youtu.be/"+name, "", "", 60, nil, queue.StreamTypeVideo)
}

type collector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collector) add(evt event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *collector) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

func (c *collector) all() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

func (c *collector) failures() []event.Failure {
	var out []event.Failure
	for _, evt := range c.all() {
		if f, ok := evt.(event.Failure); ok {
			out = append(out, f)
		}
	}
	return out
}

// index returns the position of the first event matching match, or -1.
func (c *collector) index(match func(event.Event) bool) int {
	for i, evt := range c.all() {
		if match(evt) {
			return i
		}
	}
	return -1
}

type harness struct {
	o        *Orchestrator
	engine   *fakeEngine
	clock    *schedule.Manual
	events   *collector
	recorder *fakeRecorder
}

func newHarness(ex extractor.Extractor, pool interface{ Submit(func()) error }, options ...Option) *harness {
	h := &harness{
		engine:   &fakeEngine{},
		clock:    schedule.NewManual(time.Unix(0, 0)),
		events:   &collector{},
		recorder: &fakeRecorder{},
	}

	options = append([]Option{
		WithRetryDelay(2 * time.Second),
		WithMaxRetries(3),
	}, options...)

	h.o = New(Deps{
		Extractor: ex,
		Engine:    h.engine,
		Recorder:  h.recorder,
		Scheduler: h.clock,
		Pool:      pool,
	}, options...)

	for _, category := range event.Categories() {
		h.o.Subscribe(category, h.events.add)
	}
	h.drain()
	// forget the startup replay
	h.events.reset()
	return h
}

// drain waits until the control goroutine has nothing left to do.
func (h *harness) drain() {
	for i := 0; i < 1000; i++ {
		left := make(chan int, 1)
		if !h.o.post(func() { left <- h.o.mailbox.len() }) {
			return
		}
		select {
		case n := <-left:
			if n == 0 {
				return
			}
		case <-h.o.done:
			return
		}
	}
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.drain()
}

// playReady drives the prepared source through Ready and the settle delay.
func (h *harness) playReady() {
	h.engine.Emit(player.Ready)
	h.drain()
	h.advance(DefaultSettleDelay)
}

func isState(status event.Status, url string) func(event.Event) bool {
	return func(evt event.Event) bool {
		s, ok := evt.(event.StateChanged)
		return ok && s.Status == status && s.Item.URL == url
	}
}

func isMetadata(url string) func(event.Event) bool {
	return func(evt event.Event) bool {
		m, ok := evt.(event.MetadataLoaded)
		return ok && m.Item.URL == url
	}
}

func TestLoadQueue(t *testing.T) {
	Convey("Given an orchestrator", t, func() {
		h := newHarness(newScripted(), inlinePool{})
		defer h.o.Close()

		Convey("Empty queues are rejected synchronously", func() {
			So(h.o.LoadQueue(nil), ShouldEqual, ErrEmptyQueue)
			So(h.o.LoadQueue(queue.New(0, nil)), ShouldEqual, ErrEmptyQueue)
			h.drain()
			So(h.o.Status(), ShouldEqual, event.StatusIdle)
			So(h.events.all(), ShouldBeEmpty)
		})

		Convey("Loading publishes the queue before the current item and plays it", func() {
			a, b := item("a"), item("b")
			So(h.o.LoadQueue(queue.New(0, []queue.Item{a, b})), ShouldBeNil)
			h.drain()

			queueAt := h.events.index(func(evt event.Event) bool { _, ok := evt.(event.QueueChanged); return ok })
			currentAt := h.events.index(func(evt event.Event) bool { _, ok := evt.(event.CurrentItemChanged); return ok })
			So(queueAt, ShouldBeGreaterThanOrEqualTo, 0)
			So(currentAt, ShouldBeGreaterThan, queueAt)

			So(h.o.Status(), ShouldEqual, event.StatusLoading)
			So(h.engine.Prepared(), ShouldEqual, 1)
			So(h.engine.Last().Video, ShouldEqual, a.URL+"/video/720")
			So(h.engine.Last().Audio, ShouldEqual, a.URL+"/audio/128")
			So(h.engine.Last().Hints.Title, ShouldEqual, "a")

			h.playReady()
			So(h.o.Status(), ShouldEqual, event.StatusPlaying)

			metadataAt := h.events.index(isMetadata(a.URL))
			playingAt := h.events.index(isState(event.StatusPlaying, a.URL))
			So(metadataAt, ShouldBeGreaterThanOrEqualTo, 0)
			So(playingAt, ShouldBeGreaterThan, metadataAt)

			state := h.o.State()
			So(state.Index, ShouldEqual, 0)
			So(state.Quality, ShouldEqual, "720p")
			So(state.Item.MustGet().URL, ShouldEqual, a.URL)
		})

		Convey("Playback waits for the settle delay after Ready", func() {
			So(h.o.LoadQueue(queue.New(0, []queue.Item{item("a")})), ShouldBeNil)
			h.drain()
			h.engine.Emit(player.Ready)
			h.drain()

			h.advance(DefaultSettleDelay - time.Millisecond)
			So(h.engine.Calls(), ShouldNotContain, "play")
			h.advance(time.Millisecond)
			So(h.engine.Calls(), ShouldContain, "play")
		})
	})
}

func TestEndToEnd(t *testing.T) {
	Convey("Given a queue [A, B] where A never resolves", t, func() {
		a, b := item("a"), item("b")
		ex := newScripted(a.URL)
		h := newHarness(ex, inlinePool{})
		defer h.o.Close()

		So(h.o.LoadQueue(queue.New(0, []queue.Item{a, b})), ShouldBeNil)
		h.drain()

		Convey("A is retried, fails, and B plays after the advance delay", func() {
			for i := 0; i < 3; i++ {
				h.advance(2 * time.Second)
			}
			So(ex.Calls(a.URL), ShouldEqual, 4)

			failures := h.events.failures()
			So(len(failures), ShouldEqual, 1)
			So(failures[0].Kind, ShouldEqual, event.FailureExtraction)
			So(failures[0].Item.URL, ShouldEqual, a.URL)
			So(failures[0].Attempts, ShouldEqual, "4 attempts")
			So(h.o.Status(), ShouldEqual, event.StatusError)

			h.advance(DefaultAdvanceDelay)
			So(ex.Calls(b.URL), ShouldEqual, 1)
			So(h.engine.Last().Video, ShouldEqual, b.URL+"/video/720")

			h.playReady()

			state := h.o.State()
			So(state.Index, ShouldEqual, 1)
			So(state.Status, ShouldEqual, event.StatusPlaying)
			So(h.events.index(isMetadata(b.URL)), ShouldBeLessThan, h.events.index(isState(event.StatusPlaying, b.URL)))
			So(ex.Calls(a.URL), ShouldEqual, 4)
		})

		Convey("Retries are reported as loading progress", func() {
			h.advance(2 * time.Second)
			h.advance(2 * time.Second)

			var attempts []int
			for _, evt := range h.events.all() {
				if l, ok := evt.(event.LoadingChanged); ok && l.Loading {
					attempts = append(attempts, l.Attempt)
				}
			}
			So(attempts, ShouldResemble, []int{1, 2, 3, 4})
		})
	})
}

func TestEndOfStream(t *testing.T) {
	Convey("Given a playing queue [A, B]", t, func() {
		a, b := item("a"), item("b")
		h := newHarness(newScripted(), inlinePool{})
		defer h.o.Close()

		So(h.o.LoadQueue(queue.New(0, []queue.Item{a, b})), ShouldBeNil)
		h.drain()
		h.playReady()

		Convey("The end of A advances to B and records A as watched", func() {
			h.engine.Emit(player.Ended)
			h.drain()

			So(h.o.State().Index, ShouldEqual, 1)
			So(h.engine.Last().Video, ShouldEqual, b.URL+"/video/720")
			position, ok := h.recorder.Get(a.URL)
			So(ok, ShouldBeTrue)
			So(position, ShouldEqual, time.Minute)

			Convey("The end of B finishes the queue", func() {
				h.playReady()
				h.engine.Emit(player.Ended)
				h.drain()

				So(h.o.Status(), ShouldEqual, event.StatusEnded)
				finished := h.events.index(func(evt event.Event) bool { _, ok := evt.(event.QueueFinished); return ok })
				So(finished, ShouldBeGreaterThanOrEqualTo, 0)
			})
		})

		Convey("Playback errors advance after the delay without retrying", func() {
			h.engine.Emit(player.Error)
			h.drain()

			failures := h.events.failures()
			So(len(failures), ShouldEqual, 1)
			So(failures[0].Kind, ShouldEqual, event.FailurePlayback)
			So(h.o.State().Index, ShouldEqual, 0)

			h.advance(DefaultAdvanceDelay)
			So(h.o.State().Index, ShouldEqual, 1)
			So(h.engine.Last().Video, ShouldEqual, b.URL+"/video/720")
		})
	})
}

func TestExhaustion(t *testing.T) {
	Convey("Given a queue where nothing resolves", t, func() {
		items := []queue.Item{item("a"), item("b"), item("c")}
		ex := newScripted(items[0].URL, items[1].URL, items[2].URL)
		h := newHarness(ex, inlinePool{}, WithMaxRetries(0), WithMaxFailures(2))
		defer h.o.Close()

		So(h.o.LoadQueue(queue.New(0, items)), ShouldBeNil)
		h.drain()
		h.advance(DefaultAdvanceDelay)
		h.advance(DefaultAdvanceDelay)

		Convey("The session stops after the consecutive failure bound", func() {
			So(h.o.Status(), ShouldEqual, event.StatusEnded)
			So(h.o.State().Index, ShouldEqual, 1)
			So(ex.Calls(items[2].URL), ShouldEqual, 0)

			failures := h.events.failures()
			So(len(failures), ShouldEqual, 3)
			So(failures[0].Attempts, ShouldEqual, "1 attempt")
			So(failures[2].Kind, ShouldEqual, event.FailureExhausted)
			So(errors.Is(failures[2], ErrExhausted), ShouldBeTrue)
			So(h.clock.Pending(), ShouldEqual, 0)
		})
	})

	Convey("A failing last item ends the session", t, func() {
		only := item("only")
		h := newHarness(newScripted(only.URL), inlinePool{}, WithMaxRetries(0))
		defer h.o.Close()

		So(h.o.LoadQueue(queue.New(0, []queue.Item{only})), ShouldBeNil)
		h.drain()

		So(h.o.Status(), ShouldEqual, event.StatusEnded)
		failures := h.events.failures()
		So(len(failures), ShouldEqual, 2)
		So(failures[1].Kind, ShouldEqual, event.FailureExhausted)
	})
}

func TestSelectionFailure(t *testing.T) {
	Convey("Given an item without audio", t, func() {
		a, b := item("a"), item("b")
		ex := newScripted()
		ex.sets[a.URL] = stream.NewSet(a.URL, "a", time.Minute, nil,
			[]stream.VideoRendition{{Height: 720, Locator: "https://cdn/v"}}, nil)
		h := newHarness(ex, inlinePool{})
		defer h.o.Close()

		So(h.o.LoadQueue(queue.New(0, []queue.Item{a, b})), ShouldBeNil)
		h.drain()

		Convey("Metadata is published, a selection failure reported and B follows", func() {
			So(h.events.index(isMetadata(a.URL)), ShouldBeGreaterThanOrEqualTo, 0)
			failures := h.events.failures()
			So(len(failures), ShouldEqual, 1)
			So(failures[0].Kind, ShouldEqual, event.FailureSelection)
			So(errors.Is(failures[0], stream.ErrNoPlayablePair), ShouldBeTrue)
			So(h.engine.Prepared(), ShouldEqual, 0)

			h.advance(DefaultAdvanceDelay)
			So(h.engine.Last().Video, ShouldEqual, b.URL+"/video/720")
		})

		Convey("Changing quality reports the unplayable set and keeps the preference", func() {
			h.o.ChangeQuality("1080p")
			h.drain()

			failures := h.events.failures()
			So(len(failures), ShouldEqual, 2)
			So(failures[1].Kind, ShouldEqual, event.FailureSelection)
			So(h.o.Quality(), ShouldEqual, "720p")
			So(h.engine.Prepared(), ShouldEqual, 0)
		})
	})
}

func TestQualityContinuity(t *testing.T) {
	Convey("Given item A playing at 480p", t, func() {
		a := item("a")
		h := newHarness(newScripted(), inlinePool{}, WithQuality("480p"))
		defer h.o.Close()

		So(h.o.LoadQueue(queue.New(0, []queue.Item{a})), ShouldBeNil)
		h.drain()
		So(h.engine.Last().Video, ShouldEqual, a.URL+"/video/480")
		h.playReady()
		h.engine.SetPosition(42000 * time.Millisecond)

		Convey("Switching to 1080p restarts on the new pair at the same position", func() {
			first := h.engine.Last().Tag
			h.o.ChangeQuality("1080p")
			h.drain()

			So(h.o.Quality(), ShouldEqual, "1080p")
			So(h.engine.Last().Video, ShouldEqual, a.URL+"/video/1080")
			So(h.engine.Last().Tag, ShouldNotEqual, first)
			So(h.o.Status(), ShouldEqual, event.StatusLoading)

			h.playReady()
			So(h.engine.Seeks(), ShouldResemble, []time.Duration{42000 * time.Millisecond})
			So(h.o.Status(), ShouldEqual, event.StatusPlaying)
			So(h.o.State().Position, ShouldEqual, 42000*time.Millisecond)

			quality := h.events.index(func(evt event.Event) bool {
				q, ok := evt.(event.QualityChanged)
				return ok && q.Quality == "1080p"
			})
			So(quality, ShouldBeGreaterThanOrEqualTo, 0)
		})

		Convey("A paused item stays paused after the switch", func() {
			h.o.Pause()
			h.drain()
			So(h.o.Status(), ShouldEqual, event.StatusPaused)

			h.o.ChangeQuality("1080p")
			h.drain()
			h.playReady()

			So(h.engine.Seeks(), ShouldResemble, []time.Duration{42000 * time.Millisecond})
			So(h.o.Status(), ShouldEqual, event.StatusPaused)
			calls := h.engine.Calls()
			So(calls[len(calls)-1], ShouldEqual, "pause")
		})

		Convey("The same label is a no-op", func() {
			h.o.ChangeQuality("480p")
			h.drain()
			So(h.engine.Prepared(), ShouldEqual, 1)
		})

		Convey("Labels without an exact rendition fall back to the closest one", func() {
			h.o.ChangeQuality("1440p")
			h.drain()
			So(h.engine.Prepared(), ShouldEqual, 2)
			So(h.engine.Last().Video, ShouldEqual, a.URL+"/video/1080")
			So(h.o.Quality(), ShouldEqual, "1440p")
		})
	})

	Convey("Given a set with a single video rendition", t, func() {
		a := item("a")
		ex := newScripted()
		ex.sets[a.URL] = stream.NewSet(a.URL, "a", time.Minute, nil,
			[]stream.VideoRendition{{Height: 480, Locator: "https://cdn/480"}},
			[]stream.AudioRendition{{Bitrate: 1, Locator: "https://cdn/a"}})
		h := newHarness(ex, inlinePool{}, WithQuality("480p"))
		defer h.o.Close()

		So(h.o.LoadQueue(queue.New(0, []queue.Item{a})), ShouldBeNil)
		h.drain()
		h.playReady()

		Convey("Switching picks the closest rendition available", func() {
			h.o.ChangeQuality("1080p")
			h.drain()
			So(h.engine.Last().Video, ShouldEqual, "https://cdn/480")
			So(h.o.Quality(), ShouldEqual, "1080p")
		})
	})

	Convey("Before anything is loaded only the preference changes", t, func() {
		h := newHarness(newScripted(), inlinePool{})
		defer h.o.Close()

		h.o.ChangeQuality("garbage")
		h.drain()
		So(h.o.Quality(), ShouldEqual, "720p")

		h.o.ChangeQuality("1080")
		h.drain()
		So(h.o.Quality(), ShouldEqual, "1080p")
		So(h.engine.Prepared(), ShouldEqual, 0)
	})

	Convey("The preference sticks for the next item", t, func() {
		a, b := item("a"), item("b")
		h := newHarness(newScripted(), inlinePool{})
		defer h.o.Close()

		So(h.o.LoadQueue(queue.New(0, []queue.Item{a, b})), ShouldBeNil)
		h.drain()
		h.playReady()
		h.o.ChangeQuality("360p")
		h.drain()

		h.o.Next()
		h.drain()
		So(h.engine.Last().Video, ShouldEqual, b.URL+"/video/360")
	})
}

func TestNavigation(t *testing.T) {
	Convey("Given a playing queue [A, B, C]", t, func() {
		items := []queue.Item{item("a"), item("b"), item("c")}
		ex := newScripted()
		h := newHarness(ex, inlinePool{})
		defer h.o.Close()

		So(h.o.LoadQueue(queue.New(0, items)), ShouldBeNil)
		h.drain()
		h.playReady()
		h.engine.SetPosition(10 * time.Second)

		Convey("Next records the position and plays the following item", func() {
			h.o.Next()
			h.drain()

			position, ok := h.recorder.Get(items[0].URL)
			So(ok, ShouldBeTrue)
			So(position, ShouldEqual, 10*time.Second)
			So(h.o.State().Index, ShouldEqual, 1)
			So(h.engine.Last().Video, ShouldEqual, items[1].URL+"/video/720")
		})

		Convey("Previous at the start does nothing", func() {
			h.o.Previous()
			h.drain()
			So(h.engine.Prepared(), ShouldEqual, 1)
		})

		Convey("Returning to a resolved item uses the cache", func() {
			h.o.SkipTo(2)
			h.drain()
			h.o.SkipTo(0)
			h.drain()

			So(ex.Calls(items[0].URL), ShouldEqual, 1)
			So(h.engine.Prepared(), ShouldEqual, 3)
			So(h.engine.Last().Video, ShouldEqual, items[0].URL+"/video/720")
			So(h.events.index(isMetadata(items[0].URL)), ShouldBeGreaterThanOrEqualTo, 0)
		})

		Convey("Next at the end of a non-looping queue does nothing", func() {
			h.o.SkipTo(2)
			h.drain()
			h.o.Next()
			h.drain()
			So(h.o.State().Index, ShouldEqual, 2)
			So(h.engine.Prepared(), ShouldEqual, 2)
		})

		Convey("Pause, resume and toggle drive the engine", func() {
			h.o.TogglePause()
			h.drain()
			So(h.o.Status(), ShouldEqual, event.StatusPaused)

			h.o.Resume()
			h.drain()
			So(h.o.Status(), ShouldEqual, event.StatusPlaying)

			h.o.SeekTo(30 * time.Second)
			h.drain()
			So(h.engine.Seeks(), ShouldResemble, []time.Duration{30 * time.Second})
		})

		Convey("Stop goes idle and Resume starts over", func() {
			h.o.Stop()
			h.drain()
			So(h.o.Status(), ShouldEqual, event.StatusIdle)
			So(h.engine.Calls(), ShouldContain, "stop")

			h.o.Resume()
			h.drain()
			So(h.o.Status(), ShouldEqual, event.StatusLoading)
			So(h.engine.Prepared(), ShouldEqual, 2)
		})
	})
}

func TestStaleResults(t *testing.T) {
	Convey("Given a resolution still in flight", t, func() {
		a, b := item("a"), item("b")
		ex := newScripted()
		pool := &heldPool{}
		h := newHarness(ex, pool)
		defer h.o.Close()

		So(h.o.LoadQueue(queue.New(0, []queue.Item{a, b})), ShouldBeNil)
		h.drain()
		So(pool.Len(), ShouldEqual, 1)

		Convey("Moving on abandons the result for the previous item", func() {
			h.o.Next()
			h.drain()

			pool.RunAll()
			h.drain()

			So(ex.Calls(a.URL), ShouldEqual, 0)
			So(ex.Calls(b.URL), ShouldEqual, 1)
			So(h.events.index(isMetadata(a.URL)), ShouldEqual, -1)
			So(h.engine.Last().Video, ShouldEqual, b.URL+"/video/720")
		})

		Convey("Late results of an older generation are dropped", func() {
			pool.RunAll()
			h.drain()
			stale := h.engine.Last().Tag

			h.o.Next()
			h.drain()
			h.engine.EmitTag(player.Ready, stale)
			h.drain()
			So(h.clock.Pending(), ShouldEqual, 0)

			h.o.post(func() { h.o.onResolved(stale, a, setFor(a.URL, 720)) })
			h.drain()
			So(h.engine.Prepared(), ShouldEqual, 1)
		})
	})
}

func TestSubscriptions(t *testing.T) {
	Convey("Given a fresh session", t, func() {
		h := newHarness(newScripted(), inlinePool{}, WithQuality("1080p"))
		defer h.o.Close()

		Convey("A subscriber is replayed the idle status and the preferred quality", func() {
			late := &collector{}
			h.o.Subscribe(event.PlaybackState, late.add)
			h.o.Subscribe(event.Quality, late.add)
			h.drain()

			events := late.all()
			So(len(events), ShouldEqual, 2)
			So(events[0].(event.StateChanged).Status, ShouldEqual, event.StatusIdle)
			So(events[1].(event.QualityChanged).Quality, ShouldEqual, "1080p")
		})
	})

	Convey("Given a playing session", t, func() {
		a := item("a")
		h := newHarness(newScripted(), inlinePool{})
		defer h.o.Close()

		So(h.o.LoadQueue(queue.New(0, []queue.Item{a})), ShouldBeNil)
		h.drain()
		h.playReady()

		Convey("A late subscriber receives the current state first", func() {
			late := &collector{}
			h.o.Subscribe(event.PlaybackState, late.add)
			h.drain()

			events := late.all()
			So(len(events), ShouldEqual, 1)
			So(events[0].(event.StateChanged).Status, ShouldEqual, event.StatusPlaying)
		})

		Convey("Unsubscribed handlers receive nothing more", func() {
			late := &collector{}
			sub := h.o.Subscribe(event.PlaybackState, late.add)
			h.drain()
			h.o.Unsubscribe(sub)
			h.o.Unsubscribe(sub)

			h.o.Pause()
			h.drain()
			So(len(late.all()), ShouldEqual, 1)
		})
	})
}

func TestClose(t *testing.T) {
	Convey("Given a session with a cached item and a resolution in flight", t, func() {
		a, b := item("a"), item("b")
		pool := &heldPool{}
		h := newHarness(newScripted(), pool)

		So(h.o.LoadQueue(queue.New(0, []queue.Item{a, b})), ShouldBeNil)
		h.drain()
		pool.RunAll()
		h.drain()
		h.engine.Emit(player.Ready)
		h.drain()
		h.advance(DefaultSettleDelay)
		So(h.o.Status(), ShouldEqual, event.StatusPlaying)

		h.o.Next()
		h.drain()
		So(h.o.resolver.Busy(), ShouldBeTrue)

		var (
			busyAtRelease   bool
			cachedAtRelease int
			subsAtRelease   int
		)
		h.engine.onRelease = func() {
			busyAtRelease = h.o.resolver.Busy()
			cachedAtRelease = h.o.cache.Len()
			subsAtRelease = h.o.bus.Len()
		}

		Convey("Teardown cancels, releases, clears the cache and then the listeners", func() {
			h.o.Close()

			So(busyAtRelease, ShouldBeFalse)
			So(cachedAtRelease, ShouldEqual, 1)
			So(subsAtRelease, ShouldBeGreaterThan, 0)
			So(h.o.cache.Len(), ShouldEqual, 0)
			So(h.o.bus.Len(), ShouldEqual, 0)

			calls := h.engine.Calls()
			So(calls[len(calls)-1], ShouldEqual, "release")

			Convey("The session refuses further work", func() {
				So(h.o.LoadQueue(queue.New(0, []queue.Item{a})), ShouldEqual, ErrClosed)
				h.o.Next()
				h.o.Close()
				So(h.o.Queue(), ShouldBeNil)
			})
		})
	})
}

// Package session drives playback of a queue: it resolves each item's
// streams, picks a video and audio pair at the preferred quality, hands the
// pair to a playback engine and advances through the queue.
//
// Every state transition and every event delivery happens on one control
// goroutine owned by the Orchestrator. Public methods post work to it and
// return immediately.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/opentube/opentube/event"
	"github.com/opentube/opentube/extractor"
	"github.com/opentube/opentube/history"
	"github.com/opentube/opentube/log"
	"github.com/opentube/opentube/player"
	"github.com/opentube/opentube/queue"
	"github.com/opentube/opentube/resolver"
	"github.com/opentube/opentube/schedule"
	"github.com/opentube/opentube/stream"
	"github.com/opentube/opentube/worker"
	"github.com/samber/mo"
)

const (
	DefaultSettleDelay  = 300 * time.Millisecond
	DefaultAdvanceDelay = 1500 * time.Millisecond
	DefaultMaxFailures  = 5
)

var (
	ErrEmptyQueue = errors.New("queue is empty")
	ErrClosed     = errors.New("session closed")
	ErrExhausted  = errors.New("no playable item left in the queue")
)

// Deps are the collaborators of an Orchestrator. Extractor and Engine are required.
type Deps struct {
	Extractor extractor.Extractor
	Engine    player.Engine
	Recorder  history.Recorder
	Scheduler schedule.Scheduler
	Pool      resolver.Pool
}

// State is a point-in-time view of a session.
type State struct {
	Status   event.Status
	Index    int
	Quality  string
	Item     mo.Option[queue.Item]
	Position time.Duration
}

// restore is applied once the engine reports a prepared source as ready.
type restore struct {
	position time.Duration
	play     bool
}

// Orchestrator is the playback state machine.
type Orchestrator struct {
	engine    player.Engine
	recorder  history.Recorder
	scheduler schedule.Scheduler
	pool      resolver.Pool
	ownedPool *worker.Pool
	resolver  *resolver.Resolver
	cache     *stream.Cache
	bus       *event.Bus

	settleDelay   time.Duration
	advanceDelay  time.Duration
	maxFailures   int
	cacheCapacity int
	retryOptions  []resolver.Option

	ctx       context.Context
	cancel    context.CancelFunc
	mailbox   *mailbox
	done      chan struct{}
	closeOnce sync.Once

	// owned by the control goroutine
	queue      *queue.Queue
	quality    string
	status     event.Status
	statusURL  string
	generation uint64
	failures   int
	item       mo.Option[queue.Item]
	set        *stream.Set
	handle     *resolver.Handle
	timer      schedule.Timer
	pending    restore
	prepared   bool
	stopped    bool

	mu       sync.RWMutex
	snapshot State
}

// New builds an orchestrator and starts its control goroutine.
func New(deps Deps, options ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		engine:        deps.Engine,
		recorder:      deps.Recorder,
		scheduler:     deps.Scheduler,
		pool:          deps.Pool,
		settleDelay:   DefaultSettleDelay,
		advanceDelay:  DefaultAdvanceDelay,
		maxFailures:   DefaultMaxFailures,
		cacheCapacity: stream.DefaultCapacity,
		quality:       stream.DefaultQuality,
		ctx:           ctx,
		cancel:        cancel,
		mailbox:       newMailbox(),
		done:          make(chan struct{}),
	}

	for _, option := range options {
		option(o)
	}

	if o.scheduler == nil {
		o.scheduler = schedule.Real()
	}
	if o.pool == nil {
		o.ownedPool = worker.New(worker.DefaultSize)
		o.pool = o.ownedPool
	}

	o.cache = stream.NewCache(o.cacheCapacity)
	o.bus = event.NewBus(func(f func()) { o.post(f) })
	o.resolver = resolver.New(
		deps.Extractor,
		append([]resolver.Option{
			resolver.WithScheduler(o.scheduler),
			resolver.WithPool(o.pool),
		}, o.retryOptions...)...,
	)
	o.snapshot = State{Status: event.StatusIdle, Quality: o.quality}

	o.post(func() {
		o.bus.Publish(event.StateChanged{Status: o.status})
		o.bus.Publish(event.QualityChanged{Quality: o.quality})
	})

	o.engine.SetListener(func(evt player.Event) {
		o.post(func() { o.onEngineEvent(evt) })
	})

	go o.loop()
	return o
}

func (o *Orchestrator) loop() {
	defer close(o.done)

	for {
		f := o.mailbox.take()
		f()
		o.sync()
		if o.stopped {
			o.mailbox.close()
			return
		}
	}
}

// post queues f for the control goroutine. It never blocks, so engine and
// worker callbacks cannot stall on a busy loop, and work runs in the order
// it was posted. It reports false once the session is closed.
func (o *Orchestrator) post(f func()) bool {
	return o.mailbox.put(f)
}

// sync publishes the loop-owned fields to the snapshot read by Status and State.
func (o *Orchestrator) sync() {
	index := 0
	if o.queue != nil {
		index = o.queue.Index()
	}

	o.mu.Lock()
	o.snapshot = State{
		Status:  o.status,
		Index:   index,
		Quality: o.quality,
		Item:    o.item,
	}
	o.mu.Unlock()
}

// Subscribe registers handler for category. Retained state of the category
// is replayed to the handler first. Handlers run on the control goroutine
// and must not call Close.
func (o *Orchestrator) Subscribe(category event.Category, handler event.Handler) event.Subscription {
	return o.bus.Subscribe(category, handler)
}

// Unsubscribe removes a subscription. Removing twice is a no-op.
func (o *Orchestrator) Unsubscribe(s event.Subscription) {
	o.bus.Unsubscribe(s)
}

// Status returns the current playback status.
func (o *Orchestrator) Status() event.Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot.Status
}

// Quality returns the preferred quality label.
func (o *Orchestrator) Quality() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot.Quality
}

// State returns a snapshot of the session including the engine position.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	state := o.snapshot
	o.mu.RUnlock()

	if state.Status == event.StatusPlaying || state.Status == event.StatusPaused {
		state.Position = o.engine.CurrentPosition()
	}
	return state
}

// Close tears the session down and waits for the control goroutine to exit.
// In-flight resolution is cancelled, the engine is stopped and released,
// the stream cache is cleared and every subscription is dropped, in that order.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		if !o.post(o.teardown) {
			return
		}
		<-o.done

		o.resolver.Close()
		if o.ownedPool != nil {
			o.ownedPool.Wait()
		}
	})
	<-o.done
}

func (o *Orchestrator) teardown() {
	o.recordPosition()

	o.cancelPending()
	o.resolver.Cancel()
	o.generation++
	o.cancel()

	o.engine.SetListener(nil)
	if err := o.engine.Stop(); err != nil {
		log.Warnf("stop engine: %s", err)
	}
	if err := o.engine.Release(); err != nil {
		log.Warnf("release engine: %s", err)
	}

	o.cache.Clear()
	o.bus.Clear()

	o.status = event.StatusIdle
	o.stopped = true
	log.Infof("session closed")
}

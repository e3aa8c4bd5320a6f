package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/opentube/opentube/event"
	"github.com/opentube/opentube/log"
	"github.com/opentube/opentube/player"
	"github.com/opentube/opentube/queue"
	"github.com/opentube/opentube/resolver"
	"github.com/opentube/opentube/schedule"
	"github.com/opentube/opentube/stream"
	"github.com/samber/mo"
)

// playCurrent starts the item under the cursor, from the cache when possible.
// Anything still pending for the previous item is abandoned.
func (o *Orchestrator) playCurrent() {
	o.cancelPending()
	o.generation++
	o.set = nil
	o.pending = restore{play: true}

	if o.prepared {
		if err := o.engine.Stop(); err != nil {
			log.Warnf("stop engine: %s", err)
		}
		o.prepared = false
	}

	if o.queue == nil {
		o.item = mo.None[queue.Item]()
		o.setStatus(event.StatusIdle)
		return
	}

	item, ok := o.queue.Current().Get()
	if !ok {
		o.item = mo.None[queue.Item]()
		o.setStatus(event.StatusIdle)
		return
	}
	o.item = mo.Some(item)
	o.setStatus(event.StatusLoading)

	if set, ok := o.cache.Get(item.URL).Get(); ok {
		if resolver.Evaluate(set, nil, o.quality) == resolver.Succeeded {
			log.With(log.Fields{"url": item.URL, "quality": o.quality}).Debugf("stream cache hit")
			o.loaded(item, set)
			o.start(item, set)
			return
		}
		o.cache.Invalidate(item.URL)
	}

	o.resolve(item)
}

// resolve extracts item's streams off the loop. Results are posted back and
// dropped when the generation moved on in the meantime.
func (o *Orchestrator) resolve(item queue.Item) {
	gen := o.generation

	handle, err := o.resolver.Resolve(o.ctx, item.URL, resolver.Callbacks{
		OnLoading: func(string) {
			o.post(func() {
				if gen == o.generation {
					o.bus.Publish(event.LoadingChanged{Loading: true, Item: item, Attempt: 1})
				}
			})
		},
		OnRetry: func(_ string, attempt int, _ error) {
			o.post(func() {
				if gen == o.generation {
					o.bus.Publish(event.LoadingChanged{Loading: true, Item: item, Attempt: attempt})
				}
			})
		},
		OnSuccess: func(_ string, set *stream.Set) {
			o.post(func() { o.onResolved(gen, item, set) })
		},
		OnFailure: func(_ string, failure *resolver.ExtractionError) {
			o.post(func() { o.onResolveFailed(gen, item, failure) })
		},
	})

	switch {
	case errors.Is(err, resolver.ErrBusy):
		// the previous handle was cancelled above, so this is a caller bug
		log.Debugf("resolution of %s skipped: %s", item.URL, err)
	case err != nil:
		o.fail(event.FailureExtraction, err, "")
	default:
		o.handle = handle
	}
}

func (o *Orchestrator) onResolved(gen uint64, item queue.Item, set *stream.Set) {
	if gen != o.generation {
		log.Debugf("dropping stale streams of %s", item.URL)
		return
	}
	o.handle = nil
	o.bus.Publish(event.LoadingChanged{Loading: false, Item: item})

	o.cache.Put(item.URL, set)
	outcome := resolver.Evaluate(set, nil, o.quality)
	o.loaded(item, set)

	log.With(log.Fields{"url": item.URL, "outcome": outcome.String()}).Debugf("resolved")
	if outcome == resolver.SelectionInvalid {
		o.fail(event.FailureSelection, fmt.Errorf("%w at %s", stream.ErrNoPlayablePair, o.quality), "")
		return
	}

	o.start(item, set)
}

func (o *Orchestrator) onResolveFailed(gen uint64, item queue.Item, failure *resolver.ExtractionError) {
	if gen != o.generation {
		log.Debugf("dropping stale failure of %s", item.URL)
		return
	}
	o.handle = nil
	o.bus.Publish(event.LoadingChanged{Loading: false, Item: item, Attempt: failure.Attempts})

	log.With(log.Fields{"url": item.URL, "outcome": resolver.ExtractionFailed.String()}).Debugf("resolved")
	o.fail(event.FailureExtraction, failure.Err, failure.AttemptCount())
}

// loaded announces the streams of item. It always precedes the first Playing of the item.
func (o *Orchestrator) loaded(item queue.Item, set *stream.Set) {
	o.set = set
	o.bus.Publish(event.MetadataLoaded{Item: item, Set: set})
	o.bus.Publish(event.QualitiesAvailable{
		Qualities: stream.AvailableQualities(set),
		Current:   o.quality,
	})
}

// start hands the selected pair to the engine. Playback begins after the
// engine reports ready and the settle delay elapsed.
func (o *Orchestrator) start(item queue.Item, set *stream.Set) {
	selection := set.Selection()

	err := o.engine.Prepare(o.ctx, player.MergedSource{
		Video: selection.Video.Locator,
		Audio: selection.Audio.Locator,
		Hints: player.Hints{
			Title:     item.Title,
			VideoMime: selection.Video.MimeType,
			AudioMime: selection.Audio.MimeType,
		},
		Tag: o.generation,
	})
	if err != nil {
		o.fail(event.FailurePlayback, err, "")
		return
	}

	o.prepared = true
	log.With(log.Fields{
		"url":    item.URL,
		"height": selection.Video.Height,
		"audio":  selection.Audio.Bitrate,
	}).Infof("preparing merged source")
}

func (o *Orchestrator) onEngineEvent(evt player.Event) {
	if evt.Tag != o.generation || !o.prepared {
		log.Tracef("dropping stale engine event %s", evt.Kind)
		return
	}

	switch evt.Kind {
	case player.Ready:
		gen := o.generation
		o.after(o.settleDelay, func() {
			if gen == o.generation {
				o.settled()
			}
		})
	case player.Playing:
		o.failures = 0
		o.setStatus(event.StatusPlaying)
	case player.Paused:
		if o.status == event.StatusPlaying {
			o.setStatus(event.StatusPaused)
		}
	case player.Ended:
		o.onEnded()
	case player.Error:
		o.prepared = false
		o.fail(event.FailurePlayback, evt.Err, "")
	}
}

// settled applies the pending restore once the merged source had time to prepare.
func (o *Orchestrator) settled() {
	if o.pending.position > 0 {
		if err := o.engine.SeekTo(o.pending.position); err != nil {
			log.Warnf("restore position: %s", err)
		}
	}

	if !o.pending.play {
		if err := o.engine.Pause(); err != nil {
			log.Warnf("pause engine: %s", err)
		}
		o.setStatus(event.StatusPaused)
		return
	}

	if err := o.engine.Play(); err != nil {
		o.prepared = false
		o.fail(event.FailurePlayback, err, "")
	}
}

func (o *Orchestrator) onEnded() {
	item, ok := o.item.Get()
	if ok {
		position := time.Duration(item.Duration) * time.Second
		if position <= 0 {
			position = o.engine.Duration()
		}
		o.record(item, position)
	}
	o.prepared = false
	o.failures = 0

	if o.queue.HasNext() {
		o.queue.Advance()
		o.publishQueue()
		o.playCurrent()
		return
	}

	o.setStatus(event.StatusEnded)
	o.bus.Publish(event.QueueFinished{})
}

// fail reports a failed item and schedules a skip to the next one unless
// the consecutive failure bound is hit or nothing is left to play.
func (o *Orchestrator) fail(kind event.FailureKind, err error, attempts string) {
	item := o.item.OrEmpty()
	o.failures++

	log.With(log.Fields{"url": item.URL, "kind": kind.String(), "failures": o.failures}).Errorf("%s", err)
	o.bus.Publish(event.Failure{Kind: kind, Item: item, Err: err, Attempts: attempts})
	o.setStatus(event.StatusError)

	if o.failures >= o.maxFailures || o.queue == nil || !o.queue.HasNext() {
		o.bus.Publish(event.Failure{
			Kind: event.FailureExhausted,
			Item: item,
			Err:  fmt.Errorf("%w after %d consecutive failures", ErrExhausted, o.failures),
		})
		o.setStatus(event.StatusEnded)
		return
	}

	gen := o.generation
	o.after(o.advanceDelay, func() {
		if gen != o.generation {
			return
		}
		o.queue.Advance()
		o.publishQueue()
		o.playCurrent()
	})
}

// after runs f on the loop once d elapsed. Only one such timer is pending at a time.
func (o *Orchestrator) after(d time.Duration, f func()) {
	if o.timer != nil {
		o.timer.Stop()
	}

	var timer schedule.Timer
	timer = o.scheduler.AfterFunc(d, func() {
		o.post(func() {
			if o.timer == timer {
				o.timer = nil
			}
			f()
		})
	})
	o.timer = timer
}

// cancelPending stops the pending timer and abandons the in-flight resolution.
func (o *Orchestrator) cancelPending() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.handle != nil {
		o.handle.Cancel()
		o.handle = nil
	}
}

// setStatus publishes a StateChanged when the status or the item it refers to changed.
func (o *Orchestrator) setStatus(status event.Status) {
	item := o.item.OrEmpty()
	if o.status == status && o.statusURL == item.URL {
		return
	}
	o.status = status
	o.statusURL = item.URL
	o.bus.Publish(event.StateChanged{Status: status, Item: item})
}

func (o *Orchestrator) publishQueue() {
	items, index, complete := o.queue.Snapshot()
	o.bus.Publish(event.QueueChanged{Items: items, Index: index, Complete: complete})

	item, _ := o.queue.At(index).Get()
	o.bus.Publish(event.CurrentItemChanged{Index: index, Item: item})
}

// recordPosition saves how far the current item was watched.
func (o *Orchestrator) recordPosition() {
	if o.status != event.StatusPlaying && o.status != event.StatusPaused {
		return
	}
	if item, ok := o.item.Get(); ok {
		o.record(item, o.engine.CurrentPosition())
	}
}

func (o *Orchestrator) record(item queue.Item, position time.Duration) {
	if o.recorder == nil || position <= 0 {
		return
	}
	if err := o.pool.Submit(func() { o.recorder.Record(item, position) }); err != nil {
		log.Debugf("position of %s not recorded: %s", item.URL, err)
	}
}

package session

import (
	"fmt"
	"time"

	"github.com/opentube/opentube/event"
	"github.com/opentube/opentube/log"
	"github.com/opentube/opentube/queue"
	"github.com/opentube/opentube/stream"
)

// LoadQueue binds q to the session and plays its current item.
// It fails synchronously for a nil or empty queue.
func (o *Orchestrator) LoadQueue(q *queue.Queue) error {
	if q == nil || q.IsEmpty() {
		return ErrEmptyQueue
	}

	if !o.post(func() {
		o.recordPosition()
		o.queue = q
		o.failures = 0
		o.publishQueue()
		o.playCurrent()
	}) {
		return ErrClosed
	}
	return nil
}

// Queue returns the bound queue, nil before LoadQueue. Mutating it directly
// does not restart playback. It waits for the control goroutine, so handlers must not call it.
func (o *Orchestrator) Queue() *queue.Queue {
	done := make(chan *queue.Queue, 1)
	if !o.post(func() { done <- o.queue }) {
		return nil
	}
	select {
	case q := <-done:
		return q
	case <-o.done:
		return nil
	}
}

// PlayCurrent (re)starts the item under the cursor.
func (o *Orchestrator) PlayCurrent() {
	o.post(func() {
		o.failures = 0
		o.playCurrent()
	})
}

// Next moves to the following item. At the end of a non-looping queue it does nothing.
func (o *Orchestrator) Next() {
	o.post(func() {
		if o.queue == nil || !o.queue.HasNext() {
			log.Debugf("next ignored: nothing after the current item")
			return
		}
		o.navigate(func(q *queue.Queue) { q.Advance() })
	})
}

// Previous moves to the preceding item. At the start of a non-looping queue it does nothing.
func (o *Orchestrator) Previous() {
	o.post(func() {
		if o.queue == nil || !o.queue.HasPrevious() {
			log.Debugf("previous ignored: nothing before the current item")
			return
		}
		o.navigate(func(q *queue.Queue) { q.Rewind() })
	})
}

// SkipTo jumps to index, clamped into the queue.
func (o *Orchestrator) SkipTo(index int) {
	o.post(func() {
		if o.queue == nil {
			return
		}
		o.navigate(func(q *queue.Queue) { q.SetIndex(index) })
	})
}

func (o *Orchestrator) navigate(move func(*queue.Queue)) {
	o.recordPosition()
	o.failures = 0
	move(o.queue)
	o.publishQueue()
	o.playCurrent()
}

// Pause suspends playback. While the item is still loading it will start paused.
func (o *Orchestrator) Pause() {
	o.post(o.pause)
}

// Resume continues playback, or restarts the current item after Stop or an error.
func (o *Orchestrator) Resume() {
	o.post(o.resume)
}

// TogglePause switches between playing and paused.
func (o *Orchestrator) TogglePause() {
	o.post(func() {
		switch o.status {
		case event.StatusPlaying:
			o.pause()
		case event.StatusLoading:
			o.pending.play = !o.pending.play
		default:
			o.resume()
		}
	})
}

func (o *Orchestrator) pause() {
	switch o.status {
	case event.StatusPlaying:
		if err := o.engine.Pause(); err != nil {
			log.Warnf("pause: %s", err)
			return
		}
		o.setStatus(event.StatusPaused)
	case event.StatusLoading:
		o.pending.play = false
	}
}

func (o *Orchestrator) resume() {
	switch o.status {
	case event.StatusPaused:
		if err := o.engine.Play(); err != nil {
			log.Warnf("resume: %s", err)
			return
		}
		o.setStatus(event.StatusPlaying)
	case event.StatusLoading:
		o.pending.play = true
	case event.StatusIdle, event.StatusError, event.StatusEnded:
		if o.queue != nil {
			o.failures = 0
			o.playCurrent()
		}
	}
}

// SeekTo moves playback to position. While loading, the position is applied once ready.
func (o *Orchestrator) SeekTo(position time.Duration) {
	o.post(func() {
		if position < 0 {
			position = 0
		}
		switch o.status {
		case event.StatusPlaying, event.StatusPaused:
			if err := o.engine.SeekTo(position); err != nil {
				log.Warnf("seek: %s", err)
			}
		case event.StatusLoading:
			o.pending.position = position
		}
	})
}

// Stop halts playback and keeps the queue. Resume or PlayCurrent starts again.
func (o *Orchestrator) Stop() {
	o.post(func() {
		o.recordPosition()
		o.cancelPending()
		o.generation++
		if o.prepared {
			if err := o.engine.Stop(); err != nil {
				log.Warnf("stop engine: %s", err)
			}
			o.prepared = false
		}
		o.setStatus(event.StatusIdle)
	})
}

// ChangeQuality switches the preferred quality. The preference sticks for
// later items. When the current item is loaded it restarts on the new pair at
// the same position and in the same play or pause state. A label the current
// item cannot be played at is reported as a selection failure and changes nothing.
func (o *Orchestrator) ChangeQuality(label string) {
	o.post(func() { o.changeQuality(label) })
}

func (o *Orchestrator) changeQuality(label string) {
	label = stream.NormalizeQuality(label)
	if label == o.quality {
		return
	}

	item, ok := o.item.Get()
	if !ok || o.set == nil {
		o.quality = label
		o.bus.Publish(event.QualityChanged{Quality: label})
		return
	}

	selection := stream.Select(o.set, label)
	if !selection.Valid {
		o.bus.Publish(event.Failure{
			Kind: event.FailureSelection,
			Item: item,
			Err:  fmt.Errorf("%w at %s", stream.ErrNoPlayablePair, label),
		})
		return
	}

	o.quality = label
	o.set.Apply(selection)
	o.bus.Publish(event.QualityChanged{Quality: label})
	o.bus.Publish(event.QualitiesAvailable{Qualities: stream.AvailableQualities(o.set), Current: label})

	if !o.prepared {
		return
	}

	resume := restore{play: o.status != event.StatusPaused}
	switch o.status {
	case event.StatusPlaying, event.StatusPaused:
		resume.position = o.engine.CurrentPosition()
	case event.StatusLoading:
		resume = o.pending
	}

	log.With(log.Fields{"url": item.URL, "quality": label, "position": resume.position}).Infof("switching quality")

	o.cancelPending()
	o.generation++
	o.pending = resume
	o.setStatus(event.StatusLoading)
	o.start(item, o.set)
}

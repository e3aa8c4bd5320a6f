// Package player defines the playback engine a session drives and an mpv
// implementation that merges a video-only and an audio-only stream into one timeline.
package player

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrReleased is returned by an engine after Release.
var ErrReleased = errors.New("engine released")

// Hints describe the merged source to the engine.
type Hints struct {
	Title     string
	VideoMime string
	AudioMime string
}

// MergedSource is a video locator and an audio locator presented as one timeline.
// Tag is echoed back in every Event the source produces so that callers can
// discard events of a source they already replaced.
type MergedSource struct {
	Video string
	Audio string
	Hints Hints
	Tag   uint64
}

// EventKind enumerates engine notifications.
type EventKind int

const (
	// Ready means both streams are buffered and the engine is paused at the start.
	Ready EventKind = iota
	Playing
	Paused
	Ended
	Error
)

func (k EventKind) String() string {
	switch k {
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a state change reported by an engine.
type Event struct {
	Kind EventKind
	Tag  uint64
	Err  error
}

// Engine plays merged sources.
//
// Prepare must not block on buffering: readiness is reported with a Ready
// event carrying the source tag. Listener callbacks may arrive on any goroutine.
type Engine interface {
	Prepare(ctx context.Context, source MergedSource) error
	Play() error
	Pause() error
	SeekTo(position time.Duration) error
	CurrentPosition() time.Duration
	Duration() time.Duration
	IsPlaying() bool
	Stop() error
	Release() error
	SetListener(listener func(Event))
}

// Package stream holds resolved stream metadata, the quality selection rules
// applied to it, and the bounded cache the session keeps it in.
package stream

import (
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"
)

// ErrNoPlayablePair is reported when a set has no video and audio locator for a quality.
var ErrNoPlayablePair = errors.New("no playable video and audio pair")

// VideoRendition is a video-only elementary stream.
type VideoRendition struct {
	Height   int
	Locator  string
	MimeType string
}

// AudioRendition is an audio-only elementary stream.
type AudioRendition struct {
	Bitrate  int
	Locator  string
	MimeType string
}

// Selection is the locator pair chosen for a quality label.
type Selection struct {
	Video   VideoRendition
	Audio   AudioRendition
	Quality string
	Valid   bool
}

// Set is the result of resolving one source URL.
// The renditions are fixed after construction; the selection is re-applied in place when quality changes.
type Set struct {
	Source   string
	Title    string
	Duration time.Duration
	Raw      any

	Video []VideoRendition
	Audio []AudioRendition

	mu        sync.RWMutex
	selection Selection
}

// NewSet builds a set from the extracted renditions. No selection is applied yet.
func NewSet(source, title string, duration time.Duration, raw any, video []VideoRendition, audio []AudioRendition) *Set {
	return &Set{
		Source:   source,
		Title:    title,
		Duration: duration,
		Raw:      raw,
		Video:    append([]VideoRendition(nil), video...),
		Audio:    append([]AudioRendition(nil), audio...),
	}
}

// Selection returns the current selection.
func (s *Set) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// Apply stores sel as the current selection.
func (s *Set) Apply(sel Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
}

// SelectQuality computes the selection for label and stores it,
// marking the set unplayable when no pair exists.
func (s *Set) SelectQuality(label string) Selection {
	sel := Select(s, label)
	s.Apply(sel)
	return sel
}

// Playable reports whether the current selection has both locators.
func (s *Set) Playable() bool {
	return s.Selection().Valid
}

// AvailableQualities lists the distinct "{height}p" labels of the video renditions in first-seen order.
func AvailableQualities(s *Set) []string {
	if s == nil {
		return nil
	}

	heights := lo.Filter(s.Video, func(v VideoRendition, _ int) bool {
		return v.Height > 0
	})

	return lo.Uniq(lo.Map(heights, func(v VideoRendition, _ int) string {
		return Label(v.Height)
	}))
}

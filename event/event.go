// Package event defines the notifications a playback session publishes and
// the bus that fans them out to subscribers.
package event

import (
	"fmt"

	"github.com/opentube/opentube/queue"
	"github.com/opentube/opentube/stream"
)

// Category groups events so subscribers only see what they asked for.
type Category int

const (
	PlaybackState Category = iota
	Metadata
	Queue
	Error
	Loading
	Quality
)

var categoryNames = map[Category]string{
	PlaybackState: "playback",
	Metadata:      "metadata",
	Queue:         "queue",
	Error:         "error",
	Loading:       "loading",
	Quality:       "quality",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Categories lists every category in declaration order.
func Categories() []Category {
	return []Category{PlaybackState, Metadata, Queue, Error, Loading, Quality}
}

// Event is a notification published by a session.
type Event interface {
	Category() Category
	// Name identifies the concrete event. The bus retains the latest event of each name for replay.
	Name() string
}

// Status is the playback status of a session.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusEnded
	StatusError
)

var statusNames = map[Status]string{
	StatusIdle:    "idle",
	StatusLoading: "loading",
	StatusPlaying: "playing",
	StatusPaused:  "paused",
	StatusEnded:   "ended",
	StatusError:   "error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// StateChanged reports a status transition.
type StateChanged struct {
	Status Status
	Item   queue.Item
}

// MetadataLoaded reports that the streams of an item were resolved.
type MetadataLoaded struct {
	Item queue.Item
	Set  *stream.Set
}

// QueueChanged carries a snapshot of the queue after a mutation or navigation.
type QueueChanged struct {
	Items    []queue.Item
	Index    int
	Complete bool
}

// CurrentItemChanged reports the item under the cursor.
type CurrentItemChanged struct {
	Index int
	Item  queue.Item
}

// QueueFinished is published when playback runs off the end of the queue.
type QueueFinished struct{}

// FailureKind classifies a Failure.
type FailureKind int

const (
	FailureExtraction FailureKind = iota
	FailureSelection
	FailurePlayback
	FailureExhausted
)

var failureNames = map[FailureKind]string{
	FailureExtraction: "extraction",
	FailureSelection:  "selection",
	FailurePlayback:   "playback",
	FailureExhausted:  "exhausted",
}

func (k FailureKind) String() string {
	if name, ok := failureNames[k]; ok {
		return name
	}
	return fmt.Sprintf("failure(%d)", int(k))
}

// Failure reports a non-fatal error. Attempts is a human readable count
// and is only set for extraction failures.
type Failure struct {
	Kind     FailureKind
	Item     queue.Item
	Err      error
	Attempts string
}

func (f Failure) Error() string {
	if f.Attempts != "" {
		return fmt.Sprintf("%s failed for %q after %s: %s", f.Kind, f.Item.Title, f.Attempts, f.Err)
	}
	return fmt.Sprintf("%s failed for %q: %s", f.Kind, f.Item.Title, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// LoadingChanged reports resolution progress. Attempt is 1 for the first
// extraction and grows with every retry.
type LoadingChanged struct {
	Loading bool
	Item    queue.Item
	Attempt int
}

// QualityChanged reports the active quality label.
type QualityChanged struct {
	Quality string
}

// QualitiesAvailable lists the labels the current item can be played at.
type QualitiesAvailable struct {
	Qualities []string
	Current   string
}

func (StateChanged) Category() Category       { return PlaybackState }
func (MetadataLoaded) Category() Category     { return Metadata }
func (QueueChanged) Category() Category       { return Queue }
func (CurrentItemChanged) Category() Category { return Queue }
func (QueueFinished) Category() Category      { return Queue }
func (Failure) Category() Category            { return Error }
func (LoadingChanged) Category() Category     { return Loading }
func (QualityChanged) Category() Category     { return Quality }
func (QualitiesAvailable) Category() Category { return Quality }

func (StateChanged) Name() string       { return "state" }
func (MetadataLoaded) Name() string     { return "metadata" }
func (QueueChanged) Name() string       { return "queue" }
func (CurrentItemChanged) Name() string { return "current" }
func (QueueFinished) Name() string      { return "finished" }
func (Failure) Name() string            { return "failure" }
func (LoadingChanged) Name() string     { return "loading" }
func (QualityChanged) Name() string     { return "quality" }
func (QualitiesAvailable) Name() string { return "qualities" }

package queue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EnvelopeVersion is the current hand-off format revision.
const EnvelopeVersion = 1

// ErrUnsupportedVersion is returned when decoding an envelope written by an unknown revision.
var ErrUnsupportedVersion = errors.New("unsupported queue envelope version")

// Envelope is the serialized form of a queue. It carries the cursor and the
// completion flag next to the items so a session can resume where it left off.
type Envelope struct {
	Version  int    `json:"version" jsonschema:"description=Envelope format revision."`
	Index    int    `json:"index" jsonschema:"description=Cursor position at the time of encoding."`
	Complete bool   `json:"complete" jsonschema:"description=Whether navigation wraps around."`
	Items    []Item `json:"items"`
}

// Envelope captures the queue in its serializable form.
func (q *Queue) Envelope() Envelope {
	items, index, complete := q.Snapshot()
	return Envelope{
		Version:  EnvelopeVersion,
		Index:    index,
		Complete: complete,
		Items:    items,
	}
}

// Encode serializes the queue for hand-off.
func (q *Queue) Encode() ([]byte, error) {
	data, err := json.Marshal(q.Envelope())
	if err != nil {
		return nil, fmt.Errorf("encode queue: %w", err)
	}
	return data, nil
}

// Decode rebuilds a queue produced by Encode.
func Decode(data []byte) (*Queue, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return FromEnvelope(env)
}

// FromEnvelope validates an envelope and builds the queue it describes.
func FromEnvelope(env Envelope) (*Queue, error) {
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}

	q := New(env.Index, env.Items)
	q.complete = env.Complete
	return q, nil
}

// MarshalJSON encodes the queue as its envelope.
func (q *Queue) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Envelope())
}

// UnmarshalJSON replaces the queue's contents with a decoded envelope.
func (q *Queue) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}

	items, index, complete := decoded.Snapshot()

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = items
	q.index = index
	q.complete = complete
	return nil
}

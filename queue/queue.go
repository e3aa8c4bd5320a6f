package queue

import (
	"sync"

	"github.com/opentube/opentube/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Queue is an ordered list of items with a cursor.
//
// The cursor is always a valid index into the list, or 0 when the list is empty.
// The completion flag selects wrap-around (true) or clamping (false) when
// navigation runs past either end. One mutex guards the list and the cursor
// together, so readers never observe a half-applied mutation.
type Queue struct {
	mu       sync.RWMutex
	items    []Item
	index    int
	complete bool
}

// New builds a queue positioned at index, clamped into range.
func New(index int, items []Item) *Queue {
	q := &Queue{items: cloneItems(items)}
	q.index = q.clampLocked(index)
	return q
}

// NewLooping builds a queue whose navigation wraps around.
func NewLooping(index int, items []Item) *Queue {
	q := New(index, items)
	q.complete = true
	return q
}

// clampLocked maps i into [0, len) without wrapping.
func (q *Queue) clampLocked(i int) int {
	if len(q.items) == 0 {
		return 0
	}
	return lo.Clamp(i, 0, len(q.items)-1)
}

// normalizeLocked applies the wrap-or-clamp rule used by SetIndex.
func (q *Queue) normalizeLocked(i int) int {
	size := len(q.items)
	switch {
	case size == 0, i < 0:
		return 0
	case i < size:
		return i
	case q.complete:
		return ((i % size) + size) % size
	default:
		return size - 1
	}
}

// SetComplete toggles wrap-around navigation.
func (q *Queue) SetComplete(complete bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.complete = complete
}

// IsComplete reports whether navigation wraps around.
func (q *Queue) IsComplete() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.complete
}

// Len returns the number of items.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// IsEmpty reports whether the queue has no items.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Index returns the cursor.
func (q *Queue) Index() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.index
}

// Current returns the item under the cursor.
func (q *Queue) Current() mo.Option[Item] {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.atLocked(q.index)
}

// At returns the item at i, or None when i is out of range.
func (q *Queue) At(i int) mo.Option[Item] {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.atLocked(i)
}

func (q *Queue) atLocked(i int) mo.Option[Item] {
	if i < 0 || i >= len(q.items) {
		return mo.None[Item]()
	}
	return mo.Some(q.items[i].clone())
}

// Items returns a copy of the list.
func (q *Queue) Items() []Item {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return cloneItems(q.items)
}

// Snapshot returns the list, cursor and completion flag read under one lock.
func (q *Queue) Snapshot() (items []Item, index int, complete bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return cloneItems(q.items), q.index, q.complete
}

// SetIndex moves the cursor to i and returns where it landed.
// Negative values clamp to 0. Values past the end wrap when the queue is
// complete and clamp to the last item otherwise.
func (q *Queue) SetIndex(i int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.index = q.normalizeLocked(i)
	return q.index
}

// Advance moves one step forward and returns the new cursor.
func (q *Queue) Advance() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.index = q.normalizeLocked(q.index + 1)
	return q.index
}

// Rewind moves one step back and returns the new cursor.
func (q *Queue) Rewind() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	size := len(q.items)
	switch {
	case size == 0:
		q.index = 0
	case q.index > 0:
		q.index--
	case q.complete:
		q.index = size - 1
	}
	return q.index
}

// HasNext reports whether Advance would land on a playable item.
// A complete queue always has a next item while it is non-empty.
func (q *Queue) HasNext() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items) > 0 && (q.complete || q.index < len(q.items)-1)
}

// HasPrevious reports whether Rewind would land on a playable item.
func (q *Queue) HasPrevious() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items) > 0 && (q.complete || q.index > 0)
}

// Insert adds items at position, clamped into [0, len].
// Inserting at or before the cursor shifts the cursor so it keeps pointing at the same item.
func (q *Queue) Insert(position int, items ...Item) {
	if len(items) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	wasEmpty := len(q.items) == 0
	position = lo.Clamp(position, 0, len(q.items))

	inserted := make([]Item, 0, len(q.items)+len(items))
	inserted = append(inserted, q.items[:position]...)
	inserted = append(inserted, cloneItems(items)...)
	inserted = append(inserted, q.items[position:]...)
	q.items = inserted

	if !wasEmpty && position <= q.index {
		q.index += len(items)
	}
}

// Append adds items to the end of the queue.
func (q *Queue) Append(items ...Item) {
	q.Insert(q.Len(), items...)
}

// Remove deletes the item at index. Out of range indexes are ignored.
func (q *Queue) Remove(index int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.items) {
		return
	}

	q.items = append(q.items[:index:index], q.items[index+1:]...)

	size := len(q.items)
	switch {
	case size == 0:
		q.index = 0
	case index < q.index:
		q.index--
	case index == q.index:
		q.index = util.Min(index, size-1)
	default:
		q.index = q.clampLocked(q.index)
	}
}

// Move relocates the item at source to target.
// The cursor follows the moved item, or shifts by one when the move slides the item under the cursor.
func (q *Queue) Move(source, target int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	size := len(q.items)
	if source == target || source < 0 || target < 0 || source >= size || target >= size {
		return
	}

	moved := q.items[source]
	rest := append(q.items[:source:source], q.items[source+1:]...)

	items := make([]Item, 0, size)
	items = append(items, rest[:target]...)
	items = append(items, moved)
	items = append(items, rest[target:]...)
	q.items = items

	switch {
	case q.index == source:
		q.index = target
	case source < q.index && q.index <= target:
		q.index--
	case target <= q.index && q.index < source:
		q.index++
	}
}

// ReplaceAll swaps in a new list and cursor, clamping the cursor like New.
func (q *Queue) ReplaceAll(items []Item, index int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = cloneItems(items)
	q.index = q.clampLocked(index)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.index = 0
}

// StreamEqual reports whether both queues list the same streams in the same order.
func (q *Queue) StreamEqual(other *Queue) bool {
	if other == nil {
		return false
	}
	a, _, _ := q.Snapshot()
	b, _, _ := other.Snapshot()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].SameStream(b[i]) {
			return false
		}
	}
	return true
}

// StreamAndIndexEqual is StreamEqual plus an equal cursor.
func (q *Queue) StreamAndIndexEqual(other *Queue) bool {
	return q.StreamEqual(other) && q.Index() == other.Index()
}

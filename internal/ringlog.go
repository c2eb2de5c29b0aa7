package internal

import (
	"iter"
)

const (
	// HistorySize is the number of events each node keeps in its history.
	HistorySize = 32
)

type slot[T any] struct {
	value T
	ok    bool
}

// RingLog is a fixed size circular buffer holding the most recent
// HistorySize entries. Once full, inserting overwrites the oldest entry.
//
// Note this is not thread safe.
type RingLog[T any] struct {
	slots [HistorySize]slot[T]
	// pointer is the slot the next entry is written to. Since slots is a
	// circular buffer this wraps around, so once the log is full it also
	// points to the oldest entry.
	pointer int
	// count is the number of occupied slots. This can't be derived from
	// pointer since pointer resets to 0 each time the log wraps.
	count int
}

func NewRingLog[T any]() *RingLog[T] {
	return &RingLog[T]{}
}

// restoreRingLog rebuilds a log from the raw slots and cursor of a snapshot.
// Slots beyond HistorySize are ignored.
func restoreRingLog[T any](pointer int, values []T, occupied []bool) *RingLog[T] {
	l := NewRingLog[T]()
	l.pointer = pointer % HistorySize
	if l.pointer < 0 {
		l.pointer = 0
	}
	for i := 0; i != len(values) && i != HistorySize; i++ {
		if i < len(occupied) && occupied[i] {
			l.slots[i] = slot[T]{value: values[i], ok: true}
			l.count++
		}
	}
	return l
}

// Insert writes item at the cursor and advances the cursor, evicting the
// oldest entry if the log is full.
func (l *RingLog[T]) Insert(item T) {
	if !l.slots[l.pointer].ok {
		l.count++
	}
	l.slots[l.pointer] = slot[T]{value: item, ok: true}
	l.pointer = (l.pointer + 1) % HistorySize
}

// All returns the live entries ordered from oldest to newest. The returned
// sequence can be iterated multiple times.
func (l *RingLog[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		// Start from the cursor, which is either the oldest entry or the next
		// free slot if the log hasn't wrapped yet.
		c := l.pointer
		for i := 0; i != HistorySize; i++ {
			if s := l.slots[c]; s.ok {
				if !yield(s.value) {
					return
				}
			}
			c = (c + 1) % HistorySize
		}
	}
}

// Count returns the number of live entries, which is at most HistorySize.
func (l *RingLog[T]) Count() int {
	return l.count
}

// Pointer returns the slot index the next entry will be written to.
func (l *RingLog[T]) Pointer() int {
	return l.pointer
}

// Get returns the entry in the raw slot with the given index. Most callers
// should use All instead.
func (l *RingLog[T]) Get(index int) (T, bool) {
	if index < 0 || index >= HistorySize || !l.slots[index].ok {
		var zero T
		return zero, false
	}
	return l.slots[index].value, true
}

// GetMut returns a pointer to the entry in the raw slot with the given
// index, or nil if the slot is empty.
func (l *RingLog[T]) GetMut(index int) *T {
	if index < 0 || index >= HistorySize || !l.slots[index].ok {
		return nil
	}
	return &l.slots[index].value
}

// Package eventbuffer implements the bounded FIFO event buffer shared by
// the Agent Session Manager (replay on attach) and the Command Run Manager
// (polling clients). One generic type serves both: the session buffer is
// drained wholesale via SnapshotAndClear, the command-run buffer is read
// incrementally via Since.
package eventbuffer

import "sync"

// NoCursor is the sentinel passed to Since to mean "everything ever
// appended". It is strictly less than any real event id (which starts at
// 0), so the first appended event is never mistaken for "no cursor".
const NoCursor int64 = -1

// entry is one buffered record.
type entry struct {
	id      int64
	payload interface{}
}

// Buffer is a fixed-capacity FIFO keyed by a monotonically increasing id.
// On overflow the oldest entry is evicted and droppedBefore advances past
// it. Safe for concurrent use.
type Buffer struct {
	mu            sync.Mutex
	capacity      int
	nextID        int64
	droppedBefore int64
	entries       []entry
}

// New builds an empty buffer with the given capacity. capacity <= 0 is
// treated as 1 so the buffer always retains at least the latest entry.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{capacity: capacity}
}

// Append assigns the next id to payload, stores it, and returns the
// assigned id. On overflow the oldest entry is evicted and DroppedBefore
// advances to the evicted entry's id plus one.
func (b *Buffer) Append(payload interface{}) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.entries = append(b.entries, entry{id: id, payload: payload})

	if len(b.entries) > b.capacity {
		evicted := b.entries[0]
		b.entries = b.entries[1:]
		b.droppedBefore = evicted.id + 1
	}
	return id
}

// Since returns every entry whose id is strictly greater than cursor (or
// every entry when cursor == NoCursor), the id of the most recently
// appended entry (or NoCursor when nothing has ever been appended), and
// the current drop counter.
func (b *Buffer) Since(cursor int64) (payloads []interface{}, nextCursor int64, droppedBefore int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.entries {
		if e.id > cursor {
			payloads = append(payloads, e.payload)
		}
	}

	nextCursor = NoCursor
	if b.nextID > 0 {
		nextCursor = b.nextID - 1
	}
	return payloads, nextCursor, b.droppedBefore
}

// SnapshotAndClear atomically returns every currently buffered payload, in
// order, and empties the buffer. Ids and the drop counter are untouched:
// a clear is not an eviction. This is the primitive the Agent Session
// Manager's attach/replay protocol (§4.5.5) builds on — swap the buffer
// out from under the mutex, then iterate the snapshot outside it.
func (b *Buffer) SnapshotAndClear() []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) == 0 {
		return nil
	}
	out := make([]interface{}, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.payload
	}
	b.entries = nil
	return out
}

// Len reports the number of entries currently retained.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// DroppedBefore reports the current drop counter without affecting state.
func (b *Buffer) DroppedBefore() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.droppedBefore
}

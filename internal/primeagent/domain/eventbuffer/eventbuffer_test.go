package eventbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_MonotonicIDs(t *testing.T) {
	b := New(10)
	for i := 0; i < 5; i++ {
		id := b.Append(i)
		assert.EqualValues(t, i, id)
	}
	assert.Equal(t, 5, b.Len())
}

func TestBuffer_OverflowEvictsOldestAndAdvancesDroppedBefore(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Append(i)
	}
	assert.Equal(t, 3, b.Len())
	// ids 0,1 evicted; dropped_before is the evicted id + 1.
	assert.EqualValues(t, 2, b.DroppedBefore())

	payloads, next, dropped := b.Since(NoCursor)
	assert.Equal(t, []interface{}{2, 3, 4}, payloads)
	assert.EqualValues(t, 4, next)
	assert.EqualValues(t, 2, dropped)
}

func TestBuffer_SinceNoCursorNeverSkipsEventZero(t *testing.T) {
	b := New(10)
	b.Append("first")

	payloads, next, dropped := b.Since(NoCursor)
	assert.Equal(t, []interface{}{"first"}, payloads)
	assert.EqualValues(t, 0, next)
	assert.EqualValues(t, 0, dropped)
}

func TestBuffer_SinceEmptyReturnsSentinelCursor(t *testing.T) {
	b := New(10)
	_, next, dropped := b.Since(NoCursor)
	assert.EqualValues(t, NoCursor, next)
	assert.EqualValues(t, 0, dropped)
}

func TestBuffer_SinceIsStrictlyAfterCursor(t *testing.T) {
	b := New(10)
	for i := 0; i < 4; i++ {
		b.Append(i)
	}
	payloads, next, _ := b.Since(1)
	assert.Equal(t, []interface{}{2, 3}, payloads)
	assert.EqualValues(t, 3, next)
}

func TestBuffer_SnapshotAndClearEmptiesButKeepsCounters(t *testing.T) {
	b := New(10)
	b.Append("a")
	b.Append("b")

	snap := b.SnapshotAndClear()
	assert.Equal(t, []interface{}{"a", "b"}, snap)
	assert.Equal(t, 0, b.Len())

	// A subsequent append continues the id sequence rather than restarting.
	id := b.Append("c")
	assert.EqualValues(t, 2, id)
}

func TestBuffer_SnapshotAndClearOnEmptyReturnsNil(t *testing.T) {
	b := New(10)
	assert.Nil(t, b.SnapshotAndClear())
}

package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutex_SerializesHolders(t *testing.T) {
	mu := NewMutex()
	ctx := context.Background()

	require.NoError(t, mu.Lock(ctx))

	acquired := make(chan struct{})
	go func() {
		require.NoError(t, mu.Lock(ctx))
		close(acquired)
		mu.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock succeeded while first holder still held the mutex")
	case <-time.After(20 * time.Millisecond):
	}

	mu.Unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock never acquired after release")
	}
}

func TestMutex_LockRespectsContextCancellation(t *testing.T) {
	mu := NewMutex()
	require.NoError(t, mu.Lock(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := mu.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMutex_UnlockOfUnlockedPanics(t *testing.T) {
	mu := NewMutex()
	assert.Panics(t, func() { mu.Unlock() })
}

func TestMutex_ResetForcesUnlocked(t *testing.T) {
	mu := NewMutex()
	require.NoError(t, mu.Lock(context.Background()))
	mu.Reset()
	require.NoError(t, mu.Lock(context.Background()))
}

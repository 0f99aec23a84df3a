package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/roomwatch/internal/logging"
)

type scriptedCycler struct {
	calls  atomic.Int32
	panics int32
	err    error
	cancel context.CancelFunc
	stopAt int32
}

func (s *scriptedCycler) Cycle(context.Context) (CycleStats, error) {
	n := s.calls.Add(1)
	if s.cancel != nil && n >= s.stopAt {
		s.cancel()
	}
	if n <= s.panics {
		panic("parser exploded")
	}
	return CycleStats{}, s.err
}

func TestLoop_OnceReturnsCycleError(t *testing.T) {
	c := &scriptedCycler{err: errors.New("boom")}
	err := Loop(context.Background(), c, time.Hour, true, logging.Discard())
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int32(1), c.calls.Load())
}

func TestLoop_OnceRecoversPanic(t *testing.T) {
	c := &scriptedCycler{panics: 1}
	err := Loop(context.Background(), c, time.Hour, true, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parser exploded")
}

func TestLoop_RetriesAfterPanicUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &scriptedCycler{panics: 2, cancel: cancel, stopAt: 3}

	done := make(chan error, 1)
	go func() { done <- Loop(ctx, c, time.Millisecond, false, logging.Discard()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
	assert.GreaterOrEqual(t, c.calls.Load(), int32(3))
}

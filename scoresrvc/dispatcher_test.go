package scoresrvc

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A participation marked dirty while its recompute is in flight gets
// exactly one follow-up pass, regardless of how many marks arrived.
func TestDispatcherCoalescesDirtyWhileRunning(t *testing.T) {
	var runs atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	d := newDispatcher(4, func(ctx context.Context, id uuid.UUID) error {
		runs.Add(1)
		once.Do(func() {
			close(started)
			<-release
		})
		return nil
	}, slog.Default())
	defer d.Close()

	id := uuid.New()
	d.MarkDirty(id)
	<-started

	// burst of triggers while the first pass is still running
	d.MarkDirty(id)
	d.MarkDirty(id)
	d.MarkDirty(id)
	close(release)

	d.WaitIdle()
	assert.Equal(t, int32(2), runs.Load())
}

func TestDispatcherCoalescesWhileQueued(t *testing.T) {
	var runs atomic.Int32
	gate := make(chan struct{})

	d := newDispatcher(1, func(ctx context.Context, id uuid.UUID) error {
		<-gate
		runs.Add(1)
		return nil
	}, slog.Default())
	defer d.Close()

	blocker := uuid.New()
	d.MarkDirty(blocker)

	id := uuid.New()
	d.MarkDirty(id)
	d.MarkDirty(id)
	d.MarkDirty(id)
	close(gate)

	d.WaitIdle()
	assert.Equal(t, int32(2), runs.Load()) // blocker once, id once
}

func TestDispatcherRunsParticipationsInParallel(t *testing.T) {
	var inFlight atomic.Int32
	var peak atomic.Int32

	d := newDispatcher(8, func(ctx context.Context, id uuid.UUID) error {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}, slog.Default())
	defer d.Close()

	for i := 0; i < 16; i++ {
		d.MarkDirty(uuid.New())
	}
	d.WaitIdle()

	assert.Greater(t, peak.Load(), int32(1))
}

// A failing job is retried and a persistent failure is eventually dropped
// rather than spinning the pool forever.
func TestDispatcherRetriesFailedJob(t *testing.T) {
	var runs atomic.Int32
	d := newDispatcher(1, func(ctx context.Context, id uuid.UUID) error {
		runs.Add(1)
		return errors.New("storage unavailable")
	}, slog.Default())
	defer d.Close()

	d.MarkDirty(uuid.New())
	d.WaitIdle()

	require.Equal(t, int32(maxConsecutiveFails), runs.Load())
}

// A mark that lands while the final failing attempt is in flight is work
// from a later event and must start with a fresh retry budget, not inherit
// the spent one.
func TestDispatcherDirtyMarkGrantsFreshRetryBudget(t *testing.T) {
	var runs atomic.Int32
	lastAttempt := make(chan struct{})
	release := make(chan struct{})

	d := newDispatcher(1, func(ctx context.Context, id uuid.UUID) error {
		if runs.Add(1) == maxConsecutiveFails {
			close(lastAttempt)
			<-release
		}
		return errors.New("storage unavailable")
	}, slog.Default())
	defer d.Close()

	id := uuid.New()
	d.MarkDirty(id)
	<-lastAttempt
	d.MarkDirty(id)
	close(release)

	d.WaitIdle()
	assert.Equal(t, int32(2*maxConsecutiveFails), runs.Load())
}

func TestDispatcherRecoversAfterTransientFailure(t *testing.T) {
	var runs atomic.Int32
	d := newDispatcher(1, func(ctx context.Context, id uuid.UUID) error {
		if runs.Add(1) == 1 {
			return errors.New("conflict, retry")
		}
		return nil
	}, slog.Default())
	defer d.Close()

	d.MarkDirty(uuid.New())
	d.WaitIdle()

	assert.Equal(t, int32(2), runs.Load())
}

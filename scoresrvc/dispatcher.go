package scoresrvc

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// dispatcher serializes recompute jobs per participation. Each
// participation is Clean, Dirty (queued) or Recomputing; marking a
// Recomputing participation dirty again coalesces into exactly one
// follow-up pass. Jobs for different participations run in parallel on a
// fixed worker pool.
type dispatcher struct {
	recompute func(ctx context.Context, participationID uuid.UUID) error
	logger    *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []uuid.UUID
	states  map[uuid.UUID]*jobState
	running int
	closed  bool

	wg sync.WaitGroup
}

type jobState struct {
	queued  bool
	running bool
	dirty   bool // marked while running; forces one more pass
	fails   int
}

// maxConsecutiveFails bounds retries of a job that keeps failing, so a
// deterministic error (participation deleted mid-flight) cannot spin the
// pool. A later event re-enqueues the participation with a fresh budget.
const maxConsecutiveFails = 3

func newDispatcher(workers int, recompute func(ctx context.Context, participationID uuid.UUID) error, logger *slog.Logger) *dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &dispatcher{
		recompute: recompute,
		logger:    logger,
		states:    map[uuid.UUID]*jobState{},
	}
	d.cond = sync.NewCond(&d.mu)
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// MarkDirty enqueues a recompute for the participation. Already-queued and
// currently-running participations coalesce; nothing is lost and nothing
// runs more than one extra time.
func (d *dispatcher) MarkDirty(participationID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	st, ok := d.states[participationID]
	if !ok {
		st = &jobState{}
		d.states[participationID] = st
	}
	if st.running {
		st.dirty = true
		return
	}
	if st.queued {
		return
	}
	st.queued = true
	d.queue = append(d.queue, participationID)
	d.cond.Broadcast()
}

// WaitIdle blocks until the queue is drained and no job is in flight.
// Useful after a bulk rescore and in tests.
func (d *dispatcher) WaitIdle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.queue) > 0 || d.running > 0 {
		d.cond.Wait()
	}
}

// Close stops accepting work and waits for in-flight jobs to finish.
func (d *dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *dispatcher) worker() {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 && d.closed {
			d.mu.Unlock()
			return
		}
		id := d.queue[0]
		d.queue = d.queue[1:]
		st := d.states[id]
		st.queued = false
		st.running = true
		d.running++
		d.mu.Unlock()

		err := d.recompute(context.Background(), id)

		d.mu.Lock()
		st.running = false
		requeue := false
		if err != nil {
			st.fails++
			if st.fails < maxConsecutiveFails {
				// leave the last fully-committed state in place and retry
				d.logger.Error("recompute failed, retrying",
					"participation_id", id, "error", err)
				requeue = true
			} else {
				d.logger.Error("recompute failed repeatedly, dropping job",
					"participation_id", id, "fails", st.fails, "error", err)
			}
		} else {
			st.fails = 0
		}
		if st.dirty {
			// work marked by a later event starts with a fresh retry budget
			st.dirty = false
			st.fails = 0
			requeue = true
		}
		if requeue {
			st.queued = true
			d.queue = append(d.queue, id)
		} else {
			delete(d.states, id)
		}
		d.running--
		d.cond.Broadcast()
		d.mu.Unlock()
	}
}

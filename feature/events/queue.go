package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueClosed is returned by Take after Close.
var ErrQueueClosed = errors.New("event queue closed")

// Queue is an unbounded FIFO of storage events with a time-windowed signature cache.
// Signatures are written when an event is enqueued and removed by Complete.
type Queue struct {
	mu         sync.Mutex
	cond       *sync.Cond
	items      []StorageEvent
	signatures map[string]time.Time
	ttl        time.Duration
	stopped    bool
	closed     bool
	now        func() time.Time
}

// NewQueue creates a queue whose signatures expire after ttl.
func NewQueue(ttl time.Duration) *Queue {
	q := &Queue{
		signatures: make(map[string]time.Time),
		ttl:        ttl,
		now:        time.Now,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// AddEvent enqueues e. It returns false when the queue is stopped or an identical,
// unexpired signature is already cached.
func (q *Queue) AddEvent(e StorageEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped || q.closed {
		return false
	}

	now := q.now()
	q.pruneLocked(now)

	sig := Signature(e)
	if _, seen := q.signatures[sig]; seen {
		return false
	}
	q.signatures[sig] = now

	e.signature = sig
	q.items = append(q.items, e)
	q.cond.Signal()
	return true
}

// Take blocks until an event is available, ctx ends or the queue is closed.
func (q *Queue) Take(ctx context.Context) (StorageEvent, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.closed {
			return StorageEvent{}, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return StorageEvent{}, err
		}
		q.cond.Wait()
	}

	e := q.items[0]
	q.items[0] = StorageEvent{}
	q.items = q.items[1:]
	return e, nil
}

// Complete releases the signature of a taken event, whatever the handling outcome,
// so a later notification for the same object is accepted again.
func (q *Queue) Complete(e StorageEvent) {
	if e.signature == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.signatures, e.signature)
}

// Stop rejects new events. Queued events stay queued.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
}

// Start accepts new events again.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = false
}

// Stopped reports whether new events are rejected.
func (q *Queue) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// Close rejects new events and wakes blocked takers once the queue drains.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Signatures returns the number of cached signatures.
func (q *Queue) Signatures() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.signatures)
}

// Prune drops expired signatures and returns how many were removed.
func (q *Queue) Prune() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pruneLocked(q.now())
}

func (q *Queue) pruneLocked(now time.Time) int {
	if q.ttl <= 0 {
		return 0
	}
	removed := 0
	for sig, seen := range q.signatures {
		if now.Sub(seen) >= q.ttl {
			delete(q.signatures, sig)
			removed++
		}
	}
	return removed
}

// RunPruner prunes on every tick until ctx ends.
func (q *Queue) RunPruner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.Prune()
		}
	}
}

package recordstore

import (
	"sync"
	"time"

	"github.com/roach88/travelog/internal/entry"
)

// opKind names a mutating operation.
type opKind string

const (
	opUpsert opKind = "upsert"
	opDelete opKind = "delete"
	opUpdate opKind = "update"
)

// transform maps the current collection to the next one. changed=false
// means the mutation is a no-op and nothing is written.
type transform func(current entry.Collection) (next entry.Collection, changed bool)

// mutation is one queued read-modify-write cycle.
type mutation struct {
	op       opKind
	id       string
	apply    transform
	queuedAt time.Time

	// done receives exactly one result. Buffered so the writer never blocks
	// on a caller that stopped waiting.
	done chan error
}

func newMutation(op opKind, id string, apply transform) *mutation {
	return &mutation{
		op:       op,
		id:       id,
		apply:    apply,
		queuedAt: time.Now(),
		done:     make(chan error, 1),
	}
}

// mutationQueue is a thread-safe unbounded FIFO of mutations.
//
// Any goroutine may Enqueue; only the store's writer goroutine dequeues.
// The signal channel coalesces wake-ups (buffer of 1) and is closed by Close
// so the writer wakes up to drain and exit.
type mutationQueue struct {
	mu     sync.Mutex
	items  []*mutation
	closed bool
	signal chan struct{}
}

func newMutationQueue() *mutationQueue {
	return &mutationQueue{
		items:  make([]*mutation, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds m to the back of the queue.
// Returns false if the queue is closed.
func (q *mutationQueue) Enqueue(m *mutation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, m)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes and returns the front mutation without blocking.
func (q *mutationQueue) TryDequeue() (*mutation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	m := q.items[0]
	// Nil out the slot so the backing array does not pin finished mutations
	q.items[0] = nil
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return m, true
}

// Wait returns a channel that fires when mutations may be available.
// It is closed once the queue is closed.
func (q *mutationQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued mutations.
func (q *mutationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drained reports whether the queue is closed and empty.
func (q *mutationQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}

// Close stops accepting mutations and wakes the writer.
// Already-queued mutations are still handed out by TryDequeue.
func (q *mutationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

package recordstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/travelog/internal/entry"
	"github.com/roach88/travelog/internal/kv"
)

// DefaultKey is the storage key the mobile app has always used.
const DefaultKey = "@travel_entries"

// CorruptionPolicy decides what a read does with a blob that does not decode.
type CorruptionPolicy int

const (
	// PolicyFail surfaces DATA_CORRUPTION. Mutations refuse to overwrite
	// the blob, so nothing is lost until someone repairs or resets it.
	PolicyFail CorruptionPolicy = iota

	// PolicyReset reads the corrupt blob as an empty collection and logs a
	// warning. The next mutation overwrites it.
	PolicyReset
)

func (p CorruptionPolicy) String() string {
	switch p {
	case PolicyFail:
		return "fail"
	case PolicyReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithCorruptionPolicy sets the policy for undecodable blobs.
func WithCorruptionPolicy(p CorruptionPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithMetrics registers the store's collectors on reg. Several stores may
// share one Registerer; their counts are summed.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Store) { s.registerer = reg }
}

// Store owns the journal collection persisted under one key.
//
// Thread-safety model:
//   - LoadAll/Get: safe from any goroutine, run concurrently, read the
//     backend directly
//   - Upsert/Delete/Update: safe from any goroutine; each becomes one mutation on a
//     FIFO queue drained by a single writer goroutine, so every
//     read-modify-write cycle sees the previous one's result
//
// A mutation call returns after its write completed (or failed), so a
// caller always observes its own writes. If the caller's context ends first
// the call returns ctx.Err(), but the queued mutation still runs.
//
// The Store does not own the backend: Close stops the writer, the caller
// closes the backend afterwards.
type Store struct {
	backend    kv.Backend
	key        string
	logger     *slog.Logger
	policy     CorruptionPolicy
	registerer prometheus.Registerer
	metrics    *metrics

	queue     *mutationQueue
	stopped   chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates a Store over backend and starts its writer goroutine.
func New(backend kv.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		key:     DefaultKey,
		logger:  slog.Default(),
		policy:  PolicyFail,
		queue:   newMutationQueue(),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "recordstore"), slog.String("key", s.key))
	s.metrics = newMetrics(s.registerer)

	go s.run()
	return s
}

// Key returns the storage key.
func (s *Store) Key() string {
	return s.key
}

// LoadAll returns the full collection in persisted order. An absent blob is
// the first-run state and yields an empty collection.
func (s *Store) LoadAll(ctx context.Context) (c entry.Collection, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("load", start, err) }()

	if s.closed.Load() {
		return nil, &Error{Code: CodeClosed, Op: "load", Key: s.key}
	}
	return s.load(ctx, "load")
}

// Get returns the entry with id. found is false when it is absent.
func (s *Store) Get(ctx context.Context, id string) (entry.Entry, bool, error) {
	c, err := s.LoadAll(ctx)
	if err != nil {
		return entry.Entry{}, false, err
	}
	if i := c.IndexOf(id); i >= 0 {
		return c[i], true, nil
	}
	return entry.Entry{}, false, nil
}

// Upsert replaces the entry with e.ID in place, or appends e if no entry
// has that id. An identical entry is not rewritten.
func (s *Store) Upsert(ctx context.Context, e entry.Entry) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe(string(opUpsert), start, err) }()

	if err := e.Validate(); err != nil {
		return &Error{Code: CodeInvalidRecord, Op: string(opUpsert), Key: s.key, Err: err}
	}
	rec := e.Clone()

	return s.submit(ctx, newMutation(opUpsert, rec.ID, func(c entry.Collection) (entry.Collection, bool) {
		i := c.IndexOf(rec.ID)
		if i < 0 {
			return append(c, rec), true
		}
		if c[i].Equal(rec) {
			return c, false
		}
		c[i] = rec
		return c, true
	}))
}

// Delete removes the entry with id. An absent id is a no-op and writes
// nothing.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe(string(opDelete), start, err) }()

	if id == "" {
		return &Error{Code: CodeInvalidRecord, Op: string(opDelete), Key: s.key, Err: entry.ErrMissingID}
	}

	return s.submit(ctx, newMutation(opDelete, id, func(c entry.Collection) (entry.Collection, bool) {
		i := c.IndexOf(id)
		if i < 0 {
			return c, false
		}
		next := make(entry.Collection, 0, len(c)-1)
		next = append(next, c[:i]...)
		next = append(next, c[i+1:]...)
		return next, true
	}))
}

// Update applies fn to the entry with id inside the writer, so the read and
// the write are one mutation. found is false when no entry has that id; fn
// is not called and nothing is written. fn may not change the id. A panic
// in fn is recovered and reported as INVALID_RECORD; nothing is written.
func (s *Store) Update(ctx context.Context, id string, fn func(*entry.Entry)) (_ entry.Entry, _ bool, err error) {
	start := time.Now()
	defer func() { s.metrics.observe(string(opUpdate), start, err) }()

	if id == "" {
		return entry.Entry{}, false, &Error{Code: CodeInvalidRecord, Op: string(opUpdate), Key: s.key, Err: entry.ErrMissingID}
	}

	// Written by the writer goroutine, read here only after done delivers.
	var (
		updated entry.Entry
		found   bool
		invalid error
	)
	err = s.submit(ctx, newMutation(opUpdate, id, func(c entry.Collection) (entry.Collection, bool) {
		i := c.IndexOf(id)
		if i < 0 {
			return c, false
		}
		found = true
		rec := c[i].Clone()
		if perr := callUpdate(fn, &rec); perr != nil {
			invalid = perr
			return c, false
		}
		rec.ID = id
		if verr := rec.Validate(); verr != nil {
			invalid = verr
			return c, false
		}
		updated = rec.Clone()
		if c[i].Equal(rec) {
			return c, false
		}
		c[i] = rec
		return c, true
	}))
	if err != nil {
		return entry.Entry{}, false, err
	}
	if invalid != nil {
		return entry.Entry{}, true, &Error{Code: CodeInvalidRecord, Op: string(opUpdate), Key: s.key, Err: invalid}
	}
	return updated, found, nil
}

// callUpdate runs fn on the writer goroutine, turning a panic into an error
// so the writer keeps serving the queue.
func callUpdate(fn func(*entry.Entry), rec *entry.Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("update function panicked: %v", r)
		}
	}()
	fn(rec)
	return nil
}

// Close stops accepting mutations, waits for queued ones to finish and
// stops the writer. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.queue.Close()
	})
	<-s.stopped
	return nil
}

// submit queues m and waits for its result or for ctx to end.
func (s *Store) submit(ctx context.Context, m *mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.queue.Enqueue(m) {
		return &Error{Code: CodeClosed, Op: string(m.op), Key: s.key}
	}
	s.metrics.queueDepth.Inc()

	select {
	case err := <-m.done:
		return err
	case <-ctx.Done():
		s.logger.Debug("caller stopped waiting, mutation continues",
			slog.String("op", string(m.op)),
			slog.String("id", m.id),
		)
		return ctx.Err()
	}
}

// run is the single writer. CRITICAL: it is the only goroutine that calls
// backend.Set.
func (s *Store) run() {
	defer close(s.stopped)

	for {
		if m, ok := s.queue.TryDequeue(); ok {
			s.metrics.queueDepth.Dec()
			m.done <- s.apply(m)
			continue
		}
		if s.queue.Drained() {
			s.logger.Debug("writer stopped")
			return
		}
		<-s.queue.Wait()
	}
}

// apply runs one load-modify-save cycle. It deliberately ignores the
// caller's context: a started mutation runs to completion or failure.
func (s *Store) apply(m *mutation) error {
	ctx := context.Background()

	current, err := s.load(ctx, string(m.op))
	if err != nil {
		s.logger.Error("mutation failed on load",
			slog.String("op", string(m.op)),
			slog.String("id", m.id),
			slog.Any("error", err),
		)
		return err
	}

	next, changed := m.apply(current)
	if !changed {
		s.logger.Debug("mutation is a no-op", slog.String("op", string(m.op)), slog.String("id", m.id))
		return nil
	}

	data, err := entry.EncodeCollection(next)
	if err != nil {
		return &Error{Code: CodeInvalidRecord, Op: string(m.op), Key: s.key, Err: err}
	}

	if err := s.backend.Set(ctx, s.key, data); err != nil {
		s.logger.Error("mutation failed on save",
			slog.String("op", string(m.op)),
			slog.String("id", m.id),
			slog.Any("error", err),
		)
		return &Error{Code: CodeStorageUnavailable, Op: string(m.op), Key: s.key, Err: err}
	}

	s.logger.Debug("mutation applied",
		slog.String("op", string(m.op)),
		slog.String("id", m.id),
		slog.Int("entries", len(next)),
		slog.Duration("queued", time.Since(m.queuedAt)),
	)
	return nil
}

// load reads and decodes the collection, applying the corruption policy.
func (s *Store) load(ctx context.Context, op string) (entry.Collection, error) {
	data, found, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, &Error{Code: CodeStorageUnavailable, Op: op, Key: s.key, Err: err}
	}
	if !found {
		return entry.Collection{}, nil
	}

	c, err := entry.DecodeCollection(data)
	if err != nil {
		s.metrics.corruptions.Inc()
		if s.policy == PolicyReset {
			s.logger.Warn("stored collection is corrupt, treating as empty",
				slog.String("op", op),
				slog.Int("bytes", len(data)),
				slog.Any("error", err),
			)
			return entry.Collection{}, nil
		}
		return nil, &Error{Code: CodeDataCorruption, Op: op, Key: s.key, Err: err}
	}
	return c, nil
}

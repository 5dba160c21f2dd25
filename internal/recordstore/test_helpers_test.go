package recordstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/roach88/travelog/internal/entry"
	"github.com/roach88/travelog/internal/kv"
	"github.com/roach88/travelog/internal/kv/memkv"
	"github.com/roach88/travelog/internal/kv/sqlitekv"
)

var errInjected = errors.New("injected backend failure")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backendFactories lists the backends the store is exercised against.
func backendFactories() map[string]func(t *testing.T) kv.Backend {
	return map[string]func(t *testing.T) kv.Backend{
		"memkv": func(t *testing.T) kv.Backend {
			b := memkv.New()
			t.Cleanup(func() { b.Close() })
			return b
		},
		"sqlitekv": func(t *testing.T) kv.Backend {
			b, err := sqlitekv.Open(filepath.Join(t.TempDir(), "test.db"))
			if err != nil {
				t.Fatalf("sqlitekv.Open() failed: %v", err)
			}
			t.Cleanup(func() { b.Close() })
			return b
		},
	}
}

// createTestStore wraps backend in a Store that is closed at cleanup.
// Registered before the backend's own cleanup runs, so the writer stops first.
func createTestStore(t *testing.T, backend kv.Backend, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	s := New(backend, opts...)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry creates an entry with all required fields.
func createTestEntry(id, address string, ts int64) entry.Entry {
	return entry.Entry{
		ID:        id,
		ImageURI:  "img://" + id,
		Address:   address,
		Timestamp: ts,
	}
}

func ids(c entry.Collection) []string {
	out := make([]string, len(c))
	for i, e := range c {
		out[i] = e.ID
	}
	return out
}

// faultyBackend wraps a backend and fails Get or Set on demand.
type faultyBackend struct {
	kv.Backend
	failGet atomic.Bool
	failSet atomic.Bool
	sets    atomic.Int64
}

func (f *faultyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.failGet.Load() {
		return nil, false, errInjected
	}
	return f.Backend.Get(ctx, key)
}

func (f *faultyBackend) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet.Load() {
		return errInjected
	}
	f.sets.Add(1)
	return f.Backend.Set(ctx, key, value)
}

// gatedBackend blocks every Set until release is closed.
type gatedBackend struct {
	kv.Backend
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedBackend(inner kv.Backend) *gatedBackend {
	return &gatedBackend{
		Backend: inner,
		entered: make(chan struct{}, 64),
		release: make(chan struct{}),
	}
}

func (g *gatedBackend) Set(ctx context.Context, key string, value []byte) error {
	g.entered <- struct{}{}
	<-g.release
	return g.Backend.Set(ctx, key, value)
}

func (g *gatedBackend) open() {
	g.once.Do(func() { close(g.release) })
}

// racyBackend widens the window between a load and the following save so
// an unserialized read-modify-write would lose updates reliably.
type racyBackend struct {
	kv.Backend
	gets atomic.Int64
}

func (r *racyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r.gets.Add(1)
	v, found, err := r.Backend.Get(ctx, key)
	runtime.Gosched()
	return v, found, err
}

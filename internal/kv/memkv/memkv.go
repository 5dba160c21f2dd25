// Package memkv is an in-process kv.Backend. Nothing survives Close.
package memkv

import (
	"bytes"
	"context"
	"sync"

	"github.com/roach88/travelog/internal/kv"
)

// Store is a mutex-guarded map of copied blobs.
type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

var _ kv.Backend = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, kv.ErrClosed
	}

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// Set stores a copy of value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}

	v := bytes.Clone(value)
	if v == nil {
		v = []byte{}
	}
	s.data[key] = v
	return nil
}

// Close drops all data.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

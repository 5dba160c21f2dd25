// Package kv defines the durable key-value contract the record store is
// built on.
//
// Implementations:
//   - sqlitekv: SQLite file in WAL mode (default)
//   - filekv: one file per key, temp write -> fsync -> rename
//   - rediskv: Redis string keys
//   - memkv: in-process map, for tests and dry runs
//
// Every implementation guarantees that Set is all-or-nothing from the point
// of view of a later Get: a reader sees either the previous value or the new
// one, never a partial blob.
package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("kv: backend closed")

// Backend is a key-value store holding opaque blobs.
type Backend interface {
	// Get returns the value stored under key. found is false when the key
	// has never been set; that is not an error.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set atomically replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases resources. Safe to call more than once.
	Close() error
}

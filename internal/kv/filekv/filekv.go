// Package filekv is a kv.Backend that keeps one file per key in a directory.
//
// Writes follow temp file -> fsync -> rename -> fsync(dir), so a reader sees
// either the old file or the new one.
package filekv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/roach88/travelog/internal/kv"
)

const (
	fileSuffix = ".json"
	tmpSuffix  = ".tmp"
)

// Store is a directory-backed kv.Backend.
type Store struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ kv.Backend = (*Store)(nil)

// Open prepares dir for use, creating it if needed, and removes temp files
// left behind by an interrupted write.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	s := &Store{
		dir:    dir,
		logger: logger.With(slog.String("component", "filekv")),
	}
	if err := s.removeStaleTemps(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string {
	return s.dir
}

// Get reads the file for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, kv.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return data, true, nil
}

// Set writes value to a temp file and renames it over the file for key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return kv.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target := s.path(key)
	f, err := os.CreateTemp(s.dir, filepath.Base(target)+".*"+tmpSuffix)
	if err != nil {
		return fmt.Errorf("set %q: create temp file: %w", key, err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(value); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("set %q: write: %w", key, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("set %q: fsync: %w", key, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("set %q: close: %w", key, err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("set %q: rename: %w", key, err)
	}

	if err := s.syncDir(); err != nil {
		s.logger.Warn("directory fsync failed", slog.String("key", key), slog.Any("error", err))
	}
	return nil
}

// Close marks the store closed. Files stay on disk.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// path maps a key to a file name. Keys are path-escaped so "/" cannot
// leave the directory.
func (s *Store) path(key string) string {
	name := url.PathEscape(key)
	if strings.HasPrefix(name, ".") {
		name = "%2E" + name[1:]
	}
	return filepath.Join(s.dir, name+fileSuffix)
}

func (s *Store) syncDir() error {
	d, err := os.Open(s.dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

func (s *Store) removeStaleTemps() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", s.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		p := filepath.Join(s.dir, e.Name())
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("failed to remove stale temp file %s: %w", p, err)
		}
		s.logger.Info("removed stale temp file", slog.String("path", p))
	}
	return nil
}

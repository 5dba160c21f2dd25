// Package kvtest holds the behavioural contract every kv.Backend must meet.
// Backend packages call Run from their own tests.
package kvtest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/travelog/internal/kv"
)

// Factory returns a fresh, empty backend. The factory owns cleanup.
type Factory func(t *testing.T) kv.Backend

// Run executes the contract suite against backends produced by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Helper()

	t.Run("get absent key", func(t *testing.T) {
		b := newBackend(t)
		v, found, err := b.Get(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		require.NoError(t, b.Set(ctx, "k", []byte(`[{"id":"a"}]`)))

		v, found, err := b.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `[{"id":"a"}]`, string(v))
	})

	t.Run("set replaces", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		require.NoError(t, b.Set(ctx, "k", []byte("first, longer value")))
		require.NoError(t, b.Set(ctx, "k", []byte("second")))

		v, _, err := b.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "second", string(v))
	})

	t.Run("empty value is found", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		require.NoError(t, b.Set(ctx, "k", []byte{}))

		v, found, err := b.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, v)
	})

	t.Run("keys are independent", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		require.NoError(t, b.Set(ctx, "@travel_entries", []byte("a")))
		require.NoError(t, b.Set(ctx, "other/key", []byte("b")))

		v, _, err := b.Get(ctx, "@travel_entries")
		require.NoError(t, err)
		assert.Equal(t, "a", string(v))

		v, _, err = b.Get(ctx, "other/key")
		require.NoError(t, err)
		assert.Equal(t, "b", string(v))
	})

	t.Run("returned value is not aliased", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		in := []byte("abc")
		require.NoError(t, b.Set(ctx, "k", in))
		in[0] = 'X'

		v, _, err := b.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(v))
	})

	t.Run("readers never see partial values", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		values := make([]string, 20)
		valid := make(map[string]bool, len(values))
		for i := range values {
			values[i] = fmt.Sprintf("%03d-%s", i, string(make([]byte, 512*(i+1))))
			valid[values[i]] = true
		}
		require.NoError(t, b.Set(ctx, "k", []byte(values[0])))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, v := range values {
				_ = b.Set(ctx, "k", []byte(v))
			}
		}()

		for i := 0; i < 50; i++ {
			v, found, err := b.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, found)
			require.True(t, valid[string(v)], "read a value that was never written (len=%d)", len(v))
		}
		wg.Wait()
	})

	t.Run("closed backend", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Close())
		require.NoError(t, b.Close(), "second Close should not error")

		_, _, err := b.Get(context.Background(), "k")
		assert.ErrorIs(t, err, kv.ErrClosed)
		assert.ErrorIs(t, b.Set(context.Background(), "k", []byte("x")), kv.ErrClosed)
	})
}

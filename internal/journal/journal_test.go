package journal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/travelog/internal/entry"
	"github.com/roach88/travelog/internal/geo"
	"github.com/roach88/travelog/internal/kv/memkv"
	"github.com/roach88/travelog/internal/recordstore"
	"github.com/roach88/travelog/internal/testutil"
)

var errBoom = errors.New("boom")

type failingGeocoder struct{}

func (failingGeocoder) Reverse(context.Context, geo.Coordinates) (geo.Place, error) {
	return geo.Place{}, errBoom
}

type recordingNotifier struct {
	saved []string
	err   error
}

func (n *recordingNotifier) EntrySaved(_ context.Context, e entry.Entry) error {
	n.saved = append(n.saved, e.ID)
	return n.err
}

var paris = geo.StaticGeocoder{Place: geo.Place{Name: "Louvre", City: "Paris", Country: "France"}}

// createTestService builds a Service over an in-memory store with a clock
// that starts at 1_700_000_000_000 ms and advances one second per entry.
func createTestService(t *testing.T, opts ...Option) (*Service, *recordstore.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := recordstore.New(memkv.New(), recordstore.WithLogger(logger))
	t.Cleanup(func() { store.Close() })

	base := []Option{
		WithGeocoder(paris),
		WithClock(testutil.NewDeterministicClock(time.UnixMilli(1_700_000_000_000), time.Second)),
		WithIDGenerator(testutil.NewSequenceIDs("e")),
		WithLogger(logger),
	}
	return New(store, append(base, opts...)...), store
}

func TestCreate(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, store := createTestService(t, WithNotifier(notifier))
	ctx := context.Background()

	e, err := svc.Create(ctx, CreateInput{
		ImageURI: " file:///DCIM/1.jpg ",
		Note:     "  first day  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "e-1", e.ID)
	assert.Equal(t, "file:///DCIM/1.jpg", e.ImageURI)
	assert.Equal(t, "Louvre, Paris, France", e.Address)
	assert.Equal(t, int64(1_700_000_000_000), e.Timestamp)
	assert.Equal(t, "first day", e.Note())
	assert.False(t, e.IsFavorite)
	assert.Equal(t, []string{"e-1"}, notifier.saved)

	stored, found, err := store.Get(ctx, "e-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, stored.Equal(e))
}

func TestCreate_BlankNoteIsAbsent(t *testing.T) {
	svc, _ := createTestService(t)
	e, err := svc.Create(context.Background(), CreateInput{ImageURI: "img://1", Note: "   "})
	require.NoError(t, err)
	assert.Nil(t, e.Description)
}

func TestCreate_RequiresImage(t *testing.T) {
	svc, store := createTestService(t)
	_, err := svc.Create(context.Background(), CreateInput{ImageURI: "  "})
	assert.ErrorIs(t, err, ErrNoImage)

	all, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreate_NoteTooLong(t *testing.T) {
	svc, _ := createTestService(t)
	_, err := svc.Create(context.Background(), CreateInput{
		ImageURI: "img://1",
		Note:     strings.Repeat("é", entry.MaxNoteLength+1),
	})
	assert.ErrorIs(t, err, ErrNoteTooLong)

	_, err = svc.Create(context.Background(), CreateInput{
		ImageURI: "img://1",
		Note:     strings.Repeat("é", entry.MaxNoteLength),
	})
	assert.NoError(t, err, "multi-byte runes count once")
}

func TestCreate_GeocoderFailureSavesNothing(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, store := createTestService(t, WithGeocoder(failingGeocoder{}), WithNotifier(notifier))

	_, err := svc.Create(context.Background(), CreateInput{ImageURI: "img://1"})
	assert.ErrorIs(t, err, errBoom)

	all, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, notifier.saved)
}

func TestCreate_EmptyPlaceSavesNothing(t *testing.T) {
	svc, _ := createTestService(t, WithGeocoder(geo.StaticGeocoder{}))
	_, err := svc.Create(context.Background(), CreateInput{ImageURI: "img://1"})
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestCreate_NotificationFailureDoesNotFailSave(t *testing.T) {
	notifier := &recordingNotifier{err: errBoom}
	svc, store := createTestService(t, WithNotifier(notifier))

	e, err := svc.Create(context.Background(), CreateInput{ImageURI: "img://1"})
	require.NoError(t, err)
	assert.Equal(t, []string{e.ID}, notifier.saved)

	_, found, err := store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCreate_StoreClosed(t *testing.T) {
	svc, store := createTestService(t)
	require.NoError(t, store.Close())

	_, err := svc.Create(context.Background(), CreateInput{ImageURI: "img://1"})
	assert.True(t, recordstore.IsClosed(err), "got %v", err)
}

func TestList_NewestFirstWithTieBreak(t *testing.T) {
	svc, store := createTestService(t)
	ctx := context.Background()

	for _, e := range []entry.Entry{
		{ID: "b", ImageURI: "i", Address: "X", Timestamp: 100},
		{ID: "c", ImageURI: "i", Address: "X", Timestamp: 300},
		{ID: "a", ImageURI: "i", Address: "X", Timestamp: 100},
		{ID: "d", ImageURI: "i", Address: "X", Timestamp: 200},
	} {
		require.NoError(t, store.Upsert(ctx, e))
	}

	got, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", "a", "b"}, entryIDs(got))

	// Persisted order is untouched
	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a", "d"}, entryIDs(all))
}

func TestList_FavoritesOnly(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateInput{ImageURI: "img://1", Favorite: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{ImageURI: "img://2"})
	require.NoError(t, err)
	third, err := svc.Create(ctx, CreateInput{ImageURI: "img://3", Favorite: true})
	require.NoError(t, err)

	got, err := svc.List(ctx, Filter{FavoritesOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{third.ID, first.ID}, entryIDs(got))
}

func TestList_Empty(t *testing.T) {
	svc, _ := createTestService(t)
	got, err := svc.List(context.Background(), Filter{FavoritesOnly: true})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGet(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{ImageURI: "img://1"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Equal(created))

	_, err = svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleFavorite(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{ImageURI: "img://1"})
	require.NoError(t, err)

	on, err := svc.ToggleFavorite(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, on.IsFavorite)

	off, err := svc.ToggleFavorite(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, off.IsFavorite)

	_, err = svc.ToggleFavorite(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateNote(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{ImageURI: "img://1"})
	require.NoError(t, err)

	updated, err := svc.UpdateNote(ctx, created.ID, " Café au lait ")
	require.NoError(t, err)
	assert.Equal(t, "Café au lait", updated.Note())

	cleared, err := svc.UpdateNote(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.Description)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Description)
	assert.Equal(t, created.Timestamp, got.Timestamp, "editing a note keeps the capture time")
}

func TestUpdateNote_Errors(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateNote(ctx, "nope", "hi")
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := svc.Create(ctx, CreateInput{ImageURI: "img://1", Note: "keep"})
	require.NoError(t, err)
	_, err = svc.UpdateNote(ctx, created.ID, strings.Repeat("x", entry.MaxNoteLength+1))
	assert.ErrorIs(t, err, ErrNoteTooLong)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Note())
}

func TestRemove(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{ImageURI: "img://1"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateInput{ImageURI: "img://2"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, a.ID))
	require.NoError(t, svc.Remove(ctx, a.ID), "removing twice is not an error")

	got, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, entryIDs(got))
}

func entryIDs(es []entry.Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

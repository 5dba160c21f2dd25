// Package journal is the use-case layer over the record store: capturing
// moments, browsing them and editing favorites and notes.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/roach88/travelog/internal/entry"
	"github.com/roach88/travelog/internal/geo"
	"github.com/roach88/travelog/internal/notify"
)

// Errors returned by Service.
var (
	ErrNotFound    = errors.New("entry not found")
	ErrNoImage     = errors.New("an image is required")
	ErrNoteTooLong = fmt.Errorf("note exceeds %d characters", entry.MaxNoteLength)
	ErrNoAddress   = errors.New("location did not resolve to an address")
)

// Repository is the subset of *recordstore.Store the service needs.
type Repository interface {
	LoadAll(ctx context.Context) (entry.Collection, error)
	Get(ctx context.Context, id string) (entry.Entry, bool, error)
	Upsert(ctx context.Context, e entry.Entry) error
	Update(ctx context.Context, id string, fn func(*entry.Entry)) (entry.Entry, bool, error)
	Delete(ctx context.Context, id string) error
}

// Clock supplies the capture time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Service.
type Option func(*Service)

// WithGeocoder sets the reverse geocoder. Defaults to geo.CoordinateGeocoder.
func WithGeocoder(g geo.Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithNotifier sets the saved-entry notifier. Defaults to notify.Nop.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock sets the clock used for capture timestamps.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDGenerator sets the id generator. Defaults to UUIDv7.
func WithIDGenerator(g entry.IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service implements the journal screens on top of a Repository.
//
// Thread-safety: safe for concurrent use when the Repository is.
type Service struct {
	repo     Repository
	geocoder geo.Geocoder
	notifier notify.Notifier
	clock    Clock
	ids      entry.IDGenerator
	logger   *slog.Logger
}

// New creates a Service.
func New(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		geocoder: geo.CoordinateGeocoder{},
		notifier: notify.Nop{},
		clock:    systemClock{},
		ids:      entry.UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "journal"))
	return s
}

// CreateInput describes a newly captured moment.
type CreateInput struct {
	ImageURI    string
	Coordinates geo.Coordinates
	Note        string
	Favorite    bool
}

// Create resolves the capture location, saves a new entry and notifies.
// If the location cannot be resolved nothing is saved. A failed
// notification is logged and does not fail the call.
func (s *Service) Create(ctx context.Context, in CreateInput) (entry.Entry, error) {
	if strings.TrimSpace(in.ImageURI) == "" {
		return entry.Entry{}, ErrNoImage
	}
	if err := checkNote(in.Note); err != nil {
		return entry.Entry{}, err
	}

	place, err := s.geocoder.Reverse(ctx, in.Coordinates)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("resolve address: %w", err)
	}
	address := geo.FormatAddress(place)
	if address == "" {
		return entry.Entry{}, ErrNoAddress
	}

	e := entry.Normalize(entry.Entry{
		ID:          s.ids.Generate(),
		ImageURI:    strings.TrimSpace(in.ImageURI),
		Address:     address,
		Timestamp:   s.clock.Now().UnixMilli(),
		Description: entry.NoteFrom(in.Note),
		IsFavorite:  in.Favorite,
	})
	if err := s.repo.Upsert(ctx, e); err != nil {
		return entry.Entry{}, fmt.Errorf("save entry: %w", err)
	}
	s.logger.Debug("entry created", slog.String("id", e.ID))

	if err := s.notifier.EntrySaved(ctx, e); err != nil {
		s.logger.Warn("saved notification failed",
			slog.String("id", e.ID),
			slog.Any("error", err),
		)
	}
	return e, nil
}

// Filter narrows List.
type Filter struct {
	FavoritesOnly bool
}

// List returns entries newest first. Entries with the same timestamp are
// ordered by id.
func (s *Service) List(ctx context.Context, f Filter) ([]entry.Entry, error) {
	all, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]entry.Entry, 0, len(all))
	for _, e := range all {
		if f.FavoritesOnly && !e.IsFavorite {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get returns one entry or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (entry.Entry, error) {
	e, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return entry.Entry{}, err
	}
	if !found {
		return entry.Entry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return e, nil
}

// ToggleFavorite flips the favorite flag and returns the updated entry.
func (s *Service) ToggleFavorite(ctx context.Context, id string) (entry.Entry, error) {
	e, found, err := s.repo.Update(ctx, id, func(e *entry.Entry) {
		e.IsFavorite = !e.IsFavorite
	})
	if err != nil {
		return entry.Entry{}, err
	}
	if !found {
		return entry.Entry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return e, nil
}

// UpdateNote replaces the note. A blank note removes it.
func (s *Service) UpdateNote(ctx context.Context, id, note string) (entry.Entry, error) {
	if err := checkNote(note); err != nil {
		return entry.Entry{}, err
	}

	e, found, err := s.repo.Update(ctx, id, func(e *entry.Entry) {
		e.Description = entry.NoteFrom(note)
		*e = entry.Normalize(*e)
	})
	if err != nil {
		return entry.Entry{}, err
	}
	if !found {
		return entry.Entry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return e, nil
}

// Remove deletes an entry. Removing an absent id succeeds.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func checkNote(note string) error {
	if utf8.RuneCountInString(strings.TrimSpace(note)) > entry.MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/roach88/travelog/internal/entry"
	"github.com/roach88/travelog/internal/geo"
	"github.com/roach88/travelog/internal/journal"
	"github.com/roach88/travelog/internal/kv"
	"github.com/roach88/travelog/internal/kv/memkv"
	"github.com/roach88/travelog/internal/kv/sqlitekv"
	"github.com/roach88/travelog/internal/recordstore"
	"github.com/roach88/travelog/internal/testutil"
)

// Epoch is the first capture time handed out by the harness clock.
var Epoch = time.UnixMilli(1_700_000_000_000).UTC()

// Harness drives one scenario against a fresh store.
type Harness struct {
	store   *recordstore.Store
	journal *journal.Service

	// place is the fixed address for the create step being run, if any.
	place string
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Open a fresh backend and store
// 2. Write the setup entries
// 3. Run the flow steps, checking each expectation
// 4. Load the final collection and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	backend, err := openBackend(scenario.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to open backend: %w", err)
	}
	defer backend.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := recordstore.New(backend, recordstore.WithLogger(logger))
	defer st.Close()

	h := &Harness{store: st}
	h.journal = journal.New(st,
		journal.WithGeocoder(stepGeocoder{h: h}),
		journal.WithClock(testutil.NewDeterministicClock(Epoch, time.Minute)),
		journal.WithIDGenerator(testutil.NewSequenceIDs("e")),
		journal.WithLogger(logger),
	)

	ctx := context.Background()

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i+1, step, result)
	}

	final, err := st.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load final collection: %w", err)
	}
	result.Final = final

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func openBackend(name string) (kv.Backend, error) {
	if name == "sqlite" {
		return sqlitekv.Open(":memory:")
	}
	return memkv.New(), nil
}

// executeSetup writes seed entries directly, bypassing the journal.
func (h *Harness) executeSetup(ctx context.Context, setup []SeedEntry) error {
	for i, seed := range setup {
		e := entry.Entry{
			ID:          seed.ID,
			ImageURI:    seed.Image,
			Address:     seed.Address,
			Timestamp:   seed.Timestamp,
			Description: seed.Note,
			IsFavorite:  seed.Favorite,
		}
		if err := h.store.Upsert(ctx, e); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	return nil
}

// executeStep runs one step, records it in the trace and checks its
// expectation.
func (h *Harness) executeStep(ctx context.Context, seq int, step Step, result *Result) {
	event := TraceEvent{Seq: seq, Op: step.Do, ID: step.ID}

	var err error
	switch step.Do {
	case OpCreate:
		h.place = step.Place
		var e entry.Entry
		e, err = h.journal.Create(ctx, journal.CreateInput{
			ImageURI:    step.Image,
			Coordinates: geo.Coordinates{Latitude: step.Lat, Longitude: step.Lon},
			Note:        step.Note,
			Favorite:    step.Favorite,
		})
		h.place = ""
		event.ID = e.ID
	case OpToggleFavorite:
		_, err = h.journal.ToggleFavorite(ctx, step.ID)
	case OpUpdateNote:
		_, err = h.journal.UpdateNote(ctx, step.ID, step.Note)
	case OpRemove:
		err = h.journal.Remove(ctx, step.ID)
	case OpList:
		var entries []entry.Entry
		entries, err = h.journal.List(ctx, journal.Filter{FavoritesOnly: step.FavoritesOnly})
		if err == nil {
			event.IDs = make([]string, len(entries))
			for i, e := range entries {
				event.IDs[i] = e.ID
			}
		}
	default:
		err = fmt.Errorf("unknown operation %q", step.Do)
	}
	event.Outcome = outcomeOf(err)
	result.Trace = append(result.Trace, event)

	want := "ok"
	if step.Expect != nil && step.Expect.Outcome != "" {
		want = step.Expect.Outcome
	}
	if event.Outcome != want {
		detail := ""
		if err != nil {
			detail = fmt.Sprintf(" (%v)", err)
		}
		result.AddError(fmt.Sprintf("flow[%d] %s: outcome %q, expected %q%s", seq, step.Do, event.Outcome, want, detail))
		return
	}
	if step.Expect != nil && step.Expect.IDs != nil && !slices.Equal(event.IDs, step.Expect.IDs) {
		result.AddError(fmt.Sprintf("flow[%d] %s: ids %v, expected %v", seq, step.Do, event.IDs, step.Expect.IDs))
	}
}

// outcomeOf names an error for the trace.
func outcomeOf(err error) string {
	var storeErr *recordstore.Error
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, journal.ErrNotFound):
		return "not_found"
	case errors.Is(err, journal.ErrNoImage):
		return "no_image"
	case errors.Is(err, journal.ErrNoteTooLong):
		return "note_too_long"
	case errors.Is(err, journal.ErrNoAddress):
		return "no_address"
	case errors.Is(err, geo.ErrInvalidCoordinates):
		return "invalid_coordinates"
	case errors.As(err, &storeErr):
		return strings.ToLower(string(storeErr.Code))
	default:
		return "error"
	}
}

// stepGeocoder answers with the current step's place, or the coordinates
// when the step has none.
type stepGeocoder struct {
	h *Harness
}

func (g stepGeocoder) Reverse(ctx context.Context, c geo.Coordinates) (geo.Place, error) {
	if g.h.place != "" {
		return geo.Place{Name: g.h.place}, nil
	}
	return geo.CoordinateGeocoder{}.Reverse(ctx, c)
}

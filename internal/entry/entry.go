package entry

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// MaxNoteLength is the longest note, in runes, the journal accepts.
// The store itself does not enforce it.
const MaxNoteLength = 500

// Entry is one journal record.
type Entry struct {
	// ID is unique within the collection and never changes once assigned.
	ID string `json:"id"`

	// ImageURI is an opaque reference to the captured photo.
	ImageURI string `json:"imageUri"`

	// Address is the human-readable label of the capture location.
	Address string `json:"address"`

	// Timestamp is the capture time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Description is the optional user note. nil means absent.
	Description *string `json:"description,omitempty"`

	IsFavorite bool `json:"isFavorite"`
}

// Validation errors returned by Validate.
var (
	ErrMissingID      = errors.New("entry id is empty")
	ErrMissingImage   = errors.New("entry imageUri is empty")
	ErrMissingAddress = errors.New("entry address is empty")
	ErrInvalidUTF8    = errors.New("entry field is not valid UTF-8")
)

// Validate checks the fields the store requires to be present, and that
// every text field is valid UTF-8 so it survives encoding unchanged.
func (e Entry) Validate() error {
	if e.ID == "" {
		return ErrMissingID
	}
	if !utf8.ValidString(e.ID) {
		return fmt.Errorf("entry id: %w", ErrInvalidUTF8)
	}
	for _, f := range []struct{ name, value string }{
		{"imageUri", e.ImageURI},
		{"address", e.Address},
		{"description", e.Note()},
	} {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("entry %s: %s: %w", e.ID, f.name, ErrInvalidUTF8)
		}
	}
	if e.ImageURI == "" {
		return fmt.Errorf("entry %s: %w", e.ID, ErrMissingImage)
	}
	if e.Address == "" {
		return fmt.Errorf("entry %s: %w", e.ID, ErrMissingAddress)
	}
	return nil
}

// CapturedAt returns Timestamp as a UTC time.
func (e Entry) CapturedAt() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// Note returns the note text, or "" when absent.
func (e Entry) Note() string {
	if e.Description == nil {
		return ""
	}
	return *e.Description
}

// Clone returns a deep copy so callers cannot alias the note pointer.
func (e Entry) Clone() Entry {
	c := e
	if e.Description != nil {
		d := *e.Description
		c.Description = &d
	}
	return c
}

// Equal reports whether two entries are field-equal.
func (e Entry) Equal(o Entry) bool {
	if e.ID != o.ID || e.ImageURI != o.ImageURI || e.Address != o.Address ||
		e.Timestamp != o.Timestamp || e.IsFavorite != o.IsFavorite {
		return false
	}
	if (e.Description == nil) != (o.Description == nil) {
		return false
	}
	return e.Description == nil || *e.Description == *o.Description
}

// Normalize trims surrounding whitespace and NFC-normalizes the address and
// note. A note that is empty after trimming becomes absent.
func Normalize(e Entry) Entry {
	n := e.Clone()
	n.Address = norm.NFC.String(strings.TrimSpace(n.Address))
	if n.Description != nil {
		d := norm.NFC.String(strings.TrimSpace(*n.Description))
		if d == "" {
			n.Description = nil
		} else {
			n.Description = &d
		}
	}
	return n
}

// NoteFrom returns a note pointer for s, or nil when s is blank.
func NoteFrom(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// IDGenerator produces record identifiers.
// Implemented by UUIDv7Generator (production) and testutil.SequenceIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 identifiers: a millisecond
// timestamp prefix followed by random bits.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewID is shorthand for UUIDv7Generator{}.Generate().
func NewID() string {
	return UUIDv7Generator{}.Generate()
}

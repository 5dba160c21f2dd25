package entry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection is the ordered list of entries persisted under one key.
type Collection []Entry

// ErrDuplicateID is returned by DecodeCollection when two entries share an id.
var ErrDuplicateID = errors.New("duplicate entry id")

// wireEntry accepts both the written field names and their aliases.
type wireEntry struct {
	ID             string  `json:"id"`
	ImageURI       string  `json:"imageUri"`
	ImageReference string  `json:"imageReference"`
	Address        string  `json:"address"`
	Timestamp      *int64  `json:"timestamp"`
	CapturedAt     *int64  `json:"capturedAt"`
	Description    *string `json:"description"`
	Note           *string `json:"note"`
	IsFavorite     bool    `json:"isFavorite"`
}

// UnmarshalJSON decodes an entry, accepting imageReference, capturedAt and
// note as aliases. The primary name wins when both are present.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*e = Entry{
		ID:          w.ID,
		ImageURI:    w.ImageURI,
		Address:     w.Address,
		Description: w.Description,
		IsFavorite:  w.IsFavorite,
	}
	if e.ImageURI == "" {
		e.ImageURI = w.ImageReference
	}
	switch {
	case w.Timestamp != nil:
		e.Timestamp = *w.Timestamp
	case w.CapturedAt != nil:
		e.Timestamp = *w.CapturedAt
	}
	if e.Description == nil {
		e.Description = w.Note
	}
	return nil
}

// EncodeCollection serializes entries as a compact JSON array.
// HTML escaping is disabled so addresses like "A & B" round-trip verbatim.
// A nil collection encodes as [].
func EncodeCollection(c Collection) ([]byte, error) {
	if c == nil {
		c = Collection{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeCollection parses a serialized collection.
//
// An empty or "null" blob decodes as an empty collection. Every entry must
// pass Validate and ids must be pairwise distinct; anything else is an error.
func DecodeCollection(data []byte) (Collection, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Collection{}, nil
	}

	var c Collection
	if err := json.Unmarshal(trimmed, &c); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}

	seen := make(map[string]struct{}, len(c))
	for i, e := range c {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("decode collection: [%d]: %w", i, err)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("decode collection: [%d]: %w: %s", i, ErrDuplicateID, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	if c == nil {
		c = Collection{}
	}
	return c, nil
}

// IndexOf returns the position of the entry with id, or -1.
func (c Collection) IndexOf(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone deep-copies the collection.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for i, e := range c {
		out[i] = e.Clone()
	}
	return out
}

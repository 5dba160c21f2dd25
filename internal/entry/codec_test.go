package entry

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func fixtureCollection() Collection {
	return Collection{
		{ID: "a", ImageURI: "img://1", Address: "Paris, FR", Timestamp: 1000},
		{
			ID:          "b",
			ImageURI:    "file:///photos/2.jpg",
			Address:     "Café <Le> & Co, Lyon, FR",
			Timestamp:   2000,
			Description: strPtr("croissants"),
			IsFavorite:  true,
		},
	}
}

func TestEncodeCollection_Golden(t *testing.T) {
	data, err := EncodeCollection(fixtureCollection())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "collection", data)
}

func TestEncodeCollection_NilIsEmptyArray(t *testing.T) {
	data, err := EncodeCollection(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestEncodeCollection_NoTrailingNewline(t *testing.T) {
	data, err := EncodeCollection(fixtureCollection())
	require.NoError(t, err)
	assert.NotEqual(t, byte('\n'), data[len(data)-1])
}

func TestCollection_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		c    Collection
	}{
		{"empty", Collection{}},
		{"absent note", Collection{{ID: "x", ImageURI: "img://x", Address: "Oslo, NO", Timestamp: 5}}},
		{"empty note kept", Collection{{ID: "y", ImageURI: "img://y", Address: "Rome, IT", Description: strPtr("")}}},
		{"mixed", fixtureCollection()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeCollection(tt.c)
			require.NoError(t, err)

			got, err := DecodeCollection(data)
			require.NoError(t, err)
			require.Len(t, got, len(tt.c))
			for i := range tt.c {
				assert.True(t, tt.c[i].Equal(got[i]), "entry %d: want %+v, got %+v", i, tt.c[i], got[i])
			}
		})
	}
}

func TestDecodeCollection_EmptyInputs(t *testing.T) {
	for _, in := range []string{"", "   ", "null", "[]"} {
		t.Run(in, func(t *testing.T) {
			got, err := DecodeCollection([]byte(in))
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestDecodeCollection_Aliases(t *testing.T) {
	blob := `[{"id":"a","imageReference":"img://1","address":"Paris, FR","capturedAt":1000,"note":"hi","isFavorite":true}]`

	got, err := DecodeCollection([]byte(blob))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "img://1", got[0].ImageURI)
	assert.Equal(t, int64(1000), got[0].Timestamp)
	require.NotNil(t, got[0].Description)
	assert.Equal(t, "hi", *got[0].Description)
	assert.True(t, got[0].IsFavorite)
}

func TestDecodeCollection_PrimaryNameWins(t *testing.T) {
	blob := `[{"id":"a","imageUri":"img://primary","imageReference":"img://alias","address":"X","timestamp":1,"capturedAt":2}]`

	got, err := DecodeCollection([]byte(blob))
	require.NoError(t, err)
	assert.Equal(t, "img://primary", got[0].ImageURI)
	assert.Equal(t, int64(1), got[0].Timestamp)
}

func TestDecodeCollection_MissingOptionalFields(t *testing.T) {
	blob := `[{"id":"a","imageUri":"img://1","address":"Paris, FR","extra":{"nested":true}}]`

	got, err := DecodeCollection([]byte(blob))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Description)
	assert.False(t, got[0].IsFavorite)
	assert.Zero(t, got[0].Timestamp)
}

func TestDecodeCollection_Invalid(t *testing.T) {
	tests := []struct {
		name string
		blob string
		is   error
	}{
		{"truncated", `[{"id":"a","imageUri":"img://1"`, nil},
		{"object not array", `{"id":"a"}`, nil},
		{"wrong type", `[{"id":1}]`, nil},
		{"missing id", `[{"imageUri":"img://1","address":"X"}]`, ErrMissingID},
		{"missing address", `[{"id":"a","imageUri":"img://1"}]`, ErrMissingAddress},
		{"duplicate id", `[{"id":"a","imageUri":"i","address":"X"},{"id":"a","imageUri":"j","address":"Y"}]`, ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCollection([]byte(tt.blob))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestCollection_IndexOf(t *testing.T) {
	c := fixtureCollection()
	assert.Equal(t, 0, c.IndexOf("a"))
	assert.Equal(t, 1, c.IndexOf("b"))
	assert.Equal(t, -1, c.IndexOf("zzz"))
}

func TestCollection_CloneIsDeep(t *testing.T) {
	c := fixtureCollection()
	cp := c.Clone()
	*cp[1].Description = "changed"
	assert.Equal(t, "croissants", *c[1].Description)
}

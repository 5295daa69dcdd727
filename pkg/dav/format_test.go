package dav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHref(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"Root", "/", "/"},
		{"Unreserved", "/dandisets/000001/draft/a-b_c.d~e", "/dandisets/000001/draft/a-b_c.d~e"},
		{"Reserved", "/foo bar/baz_quux.gnusto/red&green?blue", "/foo%20bar/baz_quux.gnusto/red%26green%3Fblue"},
		{"Percent", "/100%", "/100%25"},
		{"Plus", "/a+b", "/a%2Bb"},
		{"NonASCII", "/café", "/caf%C3%A9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Href(tt.path))
		})
	}
}

func TestFormatModifiedDate(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	ts := time.Date(1994, 11, 6, 3, 49, 37, 0, loc)

	assert.Equal(t, "Sun, 06 Nov 1994 08:49:37 GMT", FormatModifiedDate(ts))
}

func TestFormatCreationDate(t *testing.T) {
	loc := time.FixedZone("", 2*60*60)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 500_000_000, loc)

	got := FormatCreationDate(ts)
	assert.Equal(t, "2024-03-01T10:00:00.5Z", got)

	parsed, err := time.Parse(time.RFC3339, got)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
}

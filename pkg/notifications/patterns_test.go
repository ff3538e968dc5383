package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		typ     string
		pattern string
		want    bool
	}{
		{name: "exact", typ: "a.b", pattern: "a.b", want: true},
		{name: "global wildcard", typ: "a.b", pattern: "*", want: true},
		{name: "prefix wildcard", typ: "a.b.c", pattern: "a.*", want: true},
		{name: "prefix itself does not match", typ: "a", pattern: "a.*", want: false},
		{name: "partial segment", typ: "ab.c", pattern: "a.*", want: false},
		{name: "different", typ: "a.b", pattern: "a.c", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeMatches(tt.typ, tt.pattern))
		})
	}
}

func TestLookupPattern(t *testing.T) {
	t.Parallel()

	m := map[string]string{
		"a.b.c": "exact",
		"a.b.*": "ab",
		"a.*":   "a",
		"*":     "all",
	}

	tests := []struct {
		typ  string
		want string
	}{
		{typ: "a.b.c", want: "exact"},
		{typ: "a.b.d", want: "ab"},
		{typ: "a.x.y", want: "a"},
		{typ: "z", want: "all"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			got, ok := lookupPattern(m, tt.typ)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := lookupPattern(map[string]string{"a.*": "a"}, "b.c")
	assert.False(t, ok)
}

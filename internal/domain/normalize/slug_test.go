package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple name", input: "Supreme Court", want: "supreme-court"},
		{name: "punctuation collapsed", input: "U.S. Court of Appeals, Ninth Circuit", want: "u-s-court-of-appeals-ninth-circuit"},
		{name: "leading and trailing separators trimmed", input: "  --Tax Court-- ", want: "tax-court"},
		{name: "digits preserved", input: "9th Circuit", want: "9th-circuit"},
		{name: "empty", input: "", want: ""},
		{name: "only punctuation", input: "?!*", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.input))
		})
	}
}

func TestSlug_BoundsLength(t *testing.T) {
	long := strings.Repeat("appellate ", 20)
	slug := Slug(long)

	assert.LessOrEqual(t, len(slug), maxSlugLength)
	assert.False(t, strings.HasSuffix(slug, "-"))
	assert.True(t, strings.HasSuffix(slug, "appellate"))
}

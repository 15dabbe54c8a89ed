package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersonName(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		want           string
		wantConfidence float64
	}{
		{
			name:           "already canonical",
			input:          "Sonia Sotomayor",
			want:           "Sonia Sotomayor",
			wantConfidence: 1.0,
		},
		{
			name:           "strips judge title",
			input:          "Judge John Smith",
			want:           "John Smith",
			wantConfidence: 0.9,
		},
		{
			name:           "strips chief justice before justice",
			input:          "Chief Justice John Roberts",
			want:           "John Roberts",
			wantConfidence: 0.9,
		},
		{
			name:           "strips stacked honorifics",
			input:          "Hon. Judge Mary Jones",
			want:           "Mary Jones",
			wantConfidence: 0.9,
		},
		{
			name:           "repairs all caps",
			input:          "RUTH BADER GINSBURG",
			want:           "Ruth Bader Ginsburg",
			wantConfidence: 0.95,
		},
		{
			name:           "mixed case left untouched",
			input:          "maria de la Cruz",
			want:           "maria de la Cruz",
			wantConfidence: 1.0,
		},
		{
			name:           "keeps particles lowercase when recasing",
			input:          "LUIS DE LA TORRE",
			want:           "Luis de la Torre",
			wantConfidence: 0.95,
		},
		{
			name:           "resolves surname-first ordering",
			input:          "Sotomayor, Sonia",
			want:           "Sonia Sotomayor",
			wantConfidence: 0.85,
		},
		{
			name:           "keeps suffix after comma",
			input:          "Martin Luther King, Jr.",
			want:           "Martin Luther King, Jr.",
			wantConfidence: 1.0,
		},
		{
			name:           "drops invalid characters",
			input:          "John * Smith #3",
			want:           "John Smith",
			wantConfidence: 0.6,
		},
		{
			name:           "preserves apostrophes and hyphens",
			input:          "SANDRA O'CONNOR-DAY",
			want:           "Sandra O'Connor-Day",
			wantConfidence: 0.95,
		},
		{
			name:           "uppercases roman numeral suffix",
			input:          "john paul stevens iii",
			want:           "John Paul Stevens III",
			wantConfidence: 0.95,
		},
		{
			name:           "collapses interior whitespace",
			input:          "  Elena   Kagan ",
			want:           "Elena Kagan",
			wantConfidence: 1.0,
		},
		{
			name:           "empty input",
			input:          "   ",
			want:           "",
			wantConfidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PersonName(tt.input)
			assert.Equal(t, tt.want, got.Value)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 0.0001)
		})
	}
}

func TestNameViolations(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "clean name", input: "Sonia Sotomayor", want: nil},
		{name: "title prefix", input: "Justice Elena Kagan", want: []string{"title_prefix"}},
		{name: "all caps", input: "ELENA KAGAN", want: []string{"all_caps"}},
		{name: "all lowercase", input: "elena kagan", want: []string{"all_lowercase"}},
		{name: "invalid characters", input: "Elena Kagan <3", want: []string{"invalid_characters"}},
		{name: "surname first", input: "Kagan, Elena", want: []string{"surname_first"}},
		{
			name:  "multiple violations",
			input: "JUDGE SMITH*",
			want:  []string{"title_prefix", "all_caps", "invalid_characters"},
		},
		{name: "blank", input: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NameViolations(tt.input))
		})
	}
}

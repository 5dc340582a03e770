package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Charlotte Bronte":          "charlotte bronte",
		"  Charlotte    Bronte ":    "charlotte bronte",
		"BRONTE, Charlotte":         "charlotte bronte",
		"  Bronte ,  Charlotte  ":   "charlotte bronte",
		"Austen, Jane, 1775-1817":   "jane austen",
		"Flannery O'Connor":         "flannery oconnor",
		"H. G. Wells":               "h g wells",
		"Saint-Exupéry, Antoine de": "antoine de saintexupéry",
		"Twain,":                    "twain",
		"":                          "",
		"   ":                       "",
	}

	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, want, NormalizeName(input))
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{"mary shelley", "mary shelley", authorExact},
		{"m shelley", "mary shelley", authorInitial},
		{"mary shelley", "m shelley", authorInitial},
		{"shelley", "shelley", authorSurnameOnly},
		{"shelley", "percy bysshe shelley", authorSurnameOnly},
		{"mary shelley", "percy shelley", authorConflict},
		{"mary shelley", "bram stoker", 0},
		{"mary shelley", "", 0},
		{"", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, nameSimilarity(tt.a, tt.b))
			assert.Equal(t, tt.want, nameSimilarity(tt.b, tt.a))
		})
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Austen, Jane":            "Jane Austen",
		"Austen, Jane, 1775-1817": "Jane Austen",
		"Homer":                   "Homer",
		"  Mark Twain ":           "Mark Twain",
		"Anonymous, 1800-":        "Anonymous",
	}

	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, want, DisplayName(input))
		})
	}
}

func TestSplitAuthors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"william strunk", "e b white"}, splitAuthors("William Strunk and E. B. White"))
	assert.Equal(t, []string{"jane austen", "john doe"}, splitAuthors("Austen, Jane; John Doe"))
	assert.Equal(t, []string{"a smith", "b jones"}, splitAuthors("A. Smith & B. Jones"))
	assert.Empty(t, splitAuthors(" ; "))
}

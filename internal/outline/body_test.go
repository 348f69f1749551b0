package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dgallion1/docoutline/internal/doctree"
)

func sized(sizes ...float64) []doctree.Fragment {
	out := make([]doctree.Fragment, len(sizes))
	for i, s := range sizes {
		out[i] = frag("x", s, "Serif", 1, float64(i))
	}
	return out
}

func TestBodySize(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name  string
		sizes []float64
		want  float64
	}{
		{"empty uses default", nil, 12},
		{"clear mode", []float64{10, 10, 10, 14, 18}, 10},
		{"large display text ignored", []float64{36, 36, 36, 11, 11}, 11},
		{"tie goes to first seen", []float64{11, 10, 10, 11}, 11},
		{"all above cutoff fall back to everything", []float64{24, 30, 30}, 30},
		{"cutoff is strict", []float64{20, 20, 19}, 19},
		{"single fragment", []float64{9.5}, 9.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BodySize(sized(tt.sizes...), p))
		})
	}
}

func TestBodySize_CustomCutoff(t *testing.T) {
	p := DefaultParams()
	p.BodySizeCutoff = 30
	assert.Equal(t, 24.0, BodySize(sized(24, 24, 12), p))
}

func TestSelectTitle(t *testing.T) {
	title, ok := SelectTitle([]doctree.Fragment{
		frag("Draft", 14, "Serif", 1, 10),
		frag("Field Guide", 24, "Serif", 1, 200),
		frag("by the authors", 14, "Serif", 1, 240),
	})
	assert.True(t, ok)
	assert.Equal(t, doctree.Title{Text: "Field Guide", Page: 1}, title)
}

func TestSelectTitle_FirstOfEqualSizesWins(t *testing.T) {
	title, ok := SelectTitle([]doctree.Fragment{
		frag("Cover", 30, "Serif", 2, 10),
		frag("First", 20, "Serif", 1, 300),
		frag("Second", 20, "Serif", 1, 10),
	})
	assert.True(t, ok)
	assert.Equal(t, "First", title.Text)
}

func TestSelectTitle_NoFirstPage(t *testing.T) {
	_, ok := SelectTitle([]doctree.Fragment{frag("Later", 20, "Serif", 2, 10)})
	assert.False(t, ok)
}

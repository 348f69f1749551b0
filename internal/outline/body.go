package outline

import "github.com/dgallion1/docoutline/internal/doctree"

// BodySize returns the font size most representative of running text: the
// mode of sizes below p.BodySizeCutoff, or of all sizes if none are below
// it. Ties go to the size seen first. An empty stream yields
// p.DefaultBodySize.
func BodySize(frags []doctree.Fragment, p Params) float64 {
	if len(frags) == 0 {
		return p.DefaultBodySize
	}

	sizes := make([]float64, 0, len(frags))
	for _, f := range frags {
		if f.FontSize < p.BodySizeCutoff {
			sizes = append(sizes, f.FontSize)
		}
	}
	if len(sizes) == 0 {
		for _, f := range frags {
			sizes = append(sizes, f.FontSize)
		}
	}

	counts := make(map[float64]int, len(sizes))
	best, bestCount := sizes[0], 0
	for _, s := range sizes {
		counts[s]++
	}
	// Walk in first-occurrence order so a strict > keeps the earliest size.
	for _, s := range sizes {
		if c := counts[s]; c > bestCount {
			best, bestCount = s, c
		}
	}
	return best
}

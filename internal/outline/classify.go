package outline

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// unicodeSpace is any Unicode whitespace: ASCII controls, separators (NBSP, EM
// SPACE, ...), information separators and NEL.
const unicodeSpace = `[\s\p{Z}\x0b\x1c-\x1f\x85]`

// numberedRe matches leading enumerations like "1 ", "2.3. ", "4.1.7 " or
// "A. ". Digits are any decimal digit, not only ASCII.
var numberedRe = regexp.MustCompile(`^` + unicodeSpace + `*(\p{Nd}+(?:\.\p{Nd}+)*\.?|[A-Z]\.)` + unicodeSpace + `+`)

// Score rates how heading-like a fragment is. Each criterion is independent
// and adds its weight:
//
//   - font size more than p.SizeDelta above body: p.SizeWeight
//   - font name contains p.BoldMarker: p.BoldWeight
//   - leading enumeration: p.NumberedWeight
//   - fewer than p.MaxWords words: p.ShortWeight
//   - all caps and longer than p.UpperMinLen: p.UpperWeight
func Score(f doctree.Fragment, body float64, p Params) int {
	score := 0
	if f.FontSize > body+p.SizeDelta {
		score += p.SizeWeight
	}
	if p.BoldMarker != "" && strings.Contains(strings.ToLower(f.FontName), strings.ToLower(p.BoldMarker)) {
		score += p.BoldWeight
	}
	if numberedRe.MatchString(f.Text) {
		score += p.NumberedWeight
	}
	if len(strings.Fields(f.Text)) < p.MaxWords {
		score += p.ShortWeight
	}
	if isUpper(f.Text) && utf8.RuneCountInString(f.Text) > p.UpperMinLen {
		score += p.UpperWeight
	}
	return score
}

// isUpper reports whether s has at least one cased letter and no
// lowercase or titlecase ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

// candidates returns fragments scoring at or above the threshold, in stream
// order. The title fragment is never scored.
func candidates(frags []doctree.Fragment, body float64, title *doctree.Title, p Params) []doctree.Fragment {
	var out []doctree.Fragment
	for _, f := range frags {
		if isTitle(f, title) {
			continue
		}
		if Score(f, body, p) >= p.ScoreThreshold {
			out = append(out, f)
		}
	}
	return out
}

// levelMap ranks distinct candidate sizes largest first and maps the top
// p.MaxLevels of them to H1..H3.
func levelMap(cands []doctree.Fragment, p Params) map[float64]doctree.Level {
	sizes := distinctSizes(cands)
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))

	m := make(map[float64]doctree.Level)
	for rank, size := range sizes {
		if rank >= p.maxLevels() {
			break
		}
		lvl, ok := doctree.LevelFor(rank)
		if !ok {
			break
		}
		m[size] = lvl
	}
	return m
}

// ClassifyHeadings scores every fragment against body, keeps candidates,
// assigns levels by size rank and returns them in reading order
// (page, then y). title may be nil.
func ClassifyHeadings(frags []doctree.Fragment, body float64, title *doctree.Title, p Params) []doctree.Heading {
	cands := candidates(frags, body, title, p)
	if len(cands) == 0 {
		return nil
	}

	levels := levelMap(cands, p)
	var headings []doctree.Heading
	for _, c := range cands {
		lvl, ok := levels[c.FontSize]
		if !ok {
			continue
		}
		headings = append(headings, doctree.Heading{
			Level:    lvl,
			Text:     c.Text,
			Page:     c.Page,
			YPos:     c.YPos,
			FontSize: c.FontSize,
		})
	}

	sort.SliceStable(headings, func(i, j int) bool {
		if headings[i].Page != headings[j].Page {
			return headings[i].Page < headings[j].Page
		}
		return headings[i].YPos < headings[j].YPos
	})
	return headings
}

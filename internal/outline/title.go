package outline

import "github.com/dgallion1/docoutline/internal/doctree"

// SelectTitle picks the first page-1 fragment set in the largest font on
// that page. ok is false when page 1 has no fragments.
func SelectTitle(frags []doctree.Fragment) (doctree.Title, bool) {
	var (
		title   doctree.Title
		maxSize float64
		found   bool
	)
	for _, f := range frags {
		if f.Page != 1 {
			continue
		}
		if !found || f.FontSize > maxSize {
			title = doctree.Title{Text: f.Text, Page: 1}
			maxSize = f.FontSize
			found = true
		}
	}
	return title, found
}

func isTitle(f doctree.Fragment, title *doctree.Title) bool {
	return title != nil && f.Page == 1 && f.Text == title.Text
}

package outline

import (
	"math"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

type textPage struct {
	text string
	page int
}

// PartitionSections slices the fragment stream into one section per
// heading. A section holds the fragments strictly after its heading's
// (page, y) and strictly before the next heading's; the last section runs
// to the end of the document. Fragments whose (text, page) equals any
// heading's are never content. Content joins fragments with "\n" in stream
// order.
//
// Because both bounds are strict, a non-heading fragment sitting at exactly
// a boundary heading's (page, y) lands in no section.
func PartitionSections(frags []doctree.Fragment, headings []doctree.Heading) []doctree.Section {
	if len(headings) == 0 {
		return nil
	}

	isHeading := make(map[textPage]bool, len(headings))
	for _, h := range headings {
		isHeading[textPage{h.Text, h.Page}] = true
	}

	sections := make([]doctree.Section, 0, len(headings))
	for i, h := range headings {
		endPage, endY := math.Inf(1), math.Inf(1)
		if i+1 < len(headings) {
			endPage, endY = float64(headings[i+1].Page), headings[i+1].YPos
		}

		var content []string
		for _, f := range frags {
			page := float64(f.Page)
			afterStart := f.Page > h.Page || (f.Page == h.Page && f.YPos > h.YPos)
			beforeEnd := page < endPage || (page == endPage && f.YPos < endY)
			if afterStart && beforeEnd && !isHeading[textPage{f.Text, f.Page}] {
				content = append(content, f.Text)
			}
		}

		sections = append(sections, doctree.Section{
			HeadingText:  h.Text,
			HeadingLevel: h.Level,
			Page:         h.Page,
			Content:      strings.Join(content, "\n"),
		})
	}
	return sections
}

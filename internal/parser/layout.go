package parser

import (
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Formats without a page model (markdown, html, docx, plain text) are laid
// out on a virtual page: each block gets a fixed face and size and is
// stacked top to bottom.
const (
	bodyFont     = "Helvetica"
	boldFont     = "Helvetica-Bold"
	bodyFontSize = 11.0
	lineSpacing  = 1.4
)

// headingSizes is the virtual size for heading levels 1-6.
var headingSizes = [7]float64{0, 24, 18, 15, 13, 12, 11}

func headingSize(level int) float64 {
	if level < 1 || level >= len(headingSizes) {
		return bodyFontSize
	}
	return headingSizes[level]
}

// flow stacks fragments onto virtual pages.
type flow struct {
	doc  *doctree.Document
	page int
	y    float64
}

func newFlow(filename string) *flow {
	return &flow{doc: &doctree.Document{Filename: filename}, page: 1}
}

// add places one line of text. Blank lines only advance the cursor.
func (f *flow) add(text string, size float64, font string) {
	text = strings.TrimSpace(text)
	if text == "" {
		f.y += size * lineSpacing
		return
	}
	if n := len(f.doc.Pages); n == 0 || f.doc.Pages[n-1].Number != f.page {
		f.doc.Pages = append(f.doc.Pages, doctree.Page{Number: f.page})
	}
	pg := &f.doc.Pages[len(f.doc.Pages)-1]
	pg.Fragments = append(pg.Fragments, doctree.Fragment{
		Text:     text,
		FontSize: size,
		FontName: font,
		Page:     f.page,
		YPos:     f.y,
	})
	f.y += size * lineSpacing
}

// addLines places each line of a multi-line block.
func (f *flow) addLines(text string, size float64, font string) {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		f.add(line, size, font)
	}
}

func (f *flow) newPage() {
	f.page++
	f.y = 0
}

func (f *flow) document() *doctree.Document {
	return f.doc
}

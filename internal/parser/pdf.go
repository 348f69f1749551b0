package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// defaultPageHeight is US Letter, used when a page has no readable MediaBox.
const defaultPageHeight = 792.0

// PDFParser handles PDF files. It reads glyph runs with the Go library and,
// when enabled, falls back to pdftotext -bbox if the library fails.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docoutline-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc, err := readPDF(tmpPath)
	if err != nil && p.FallbackPdftotext {
		doc, err = readPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf fragments: %w", err)
	}
	doc.Filename = filename
	return doc, nil
}

// readPDF decodes every page. The library reports malformed input by
// panicking, so that is turned back into an error here.
func readPDF(path string) (doc *doctree.Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("pdf decode: %v", rec)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc = &doctree.Document{}
	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, errors.New("pdf has no pages")
	}
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		height := pageHeight(page.V)
		doc.Pages = append(doc.Pages, doctree.Page{
			Number:    i,
			Fragments: mergeGlyphs(page.Content().Text, i, height),
		})
	}
	return doc, nil
}

// pageHeight reads MediaBox from the page or the nearest ancestor that
// defines it.
func pageHeight(v pdflib.Value) float64 {
	for node := v; !node.IsNull(); node = node.Key("Parent") {
		box := node.Key("MediaBox")
		if box.Len() == 4 {
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if h > 0 {
				return h
			}
		}
	}
	return defaultPageHeight
}

// mergeGlyphs joins the library's per-glyph runs into spans: consecutive
// glyphs that share a face, a size and a baseline and sit close together
// on the line. YPos is the distance from the top of the page to the top of
// the span.
func mergeGlyphs(glyphs []pdflib.Text, page int, height float64) []doctree.Fragment {
	var out []doctree.Fragment
	var buf strings.Builder
	var cur pdflib.Text
	var endX float64
	open := false

	flush := func() {
		if !open {
			return
		}
		text := strings.TrimSpace(buf.String())
		if text != "" {
			out = append(out, doctree.Fragment{
				Text:     text,
				FontSize: round2(cur.FontSize),
				FontName: cur.Font,
				Page:     page,
				YPos:     round2(height - (cur.Y + cur.FontSize)),
			})
		}
		buf.Reset()
		open = false
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if open && continues(cur, endX, g) {
			if gap := g.X - endX; gap > 0.15*g.FontSize && !strings.HasSuffix(buf.String(), " ") && !strings.HasPrefix(g.S, " ") {
				buf.WriteByte(' ')
			}
			buf.WriteString(g.S)
			endX = g.X + g.W
			continue
		}
		flush()
		cur = g
		endX = g.X + g.W
		buf.WriteString(g.S)
		open = true
	}
	flush()
	return out
}

// continues reports whether g belongs to the span started by cur.
func continues(cur pdflib.Text, endX float64, g pdflib.Text) bool {
	if g.Font != cur.Font || math.Abs(g.FontSize-cur.FontSize) > 0.01 {
		return false
	}
	if math.Abs(g.Y-cur.Y) > 1 {
		return false
	}
	gap := g.X - endX
	return gap >= -g.FontSize && gap < 3*g.FontSize
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// readPdftotext runs poppler's pdftotext in bbox mode. It has no font
// information, so sizes come from word box heights and every word gets
// an empty font name.
func readPdftotext(path string) (*doctree.Document, error) {
	cmd := exec.Command("pdftotext", "-bbox", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return parseBBox(bytes.NewReader(out))
}

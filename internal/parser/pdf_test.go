package parser

import (
	"strings"
	"testing"

	pdflib "github.com/ledongthuc/pdf"
)

func glyphs(font string, size, x, y float64, s string) []pdflib.Text {
	var out []pdflib.Text
	w := size * 0.5
	for _, r := range s {
		out = append(out, pdflib.Text{Font: font, FontSize: size, X: x, Y: y, W: w, S: string(r)})
		x += w
	}
	return out
}

func TestMergeGlyphs_JoinsRunsOnALine(t *testing.T) {
	var in []pdflib.Text
	in = append(in, glyphs("Arial-Bold", 18, 72, 700, "Intro")...)
	in = append(in, glyphs("Arial", 12, 72, 650, "body")...)

	frags := mergeGlyphs(in, 1, 792)
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d: %+v", len(frags), frags)
	}
	h := frags[0]
	if h.Text != "Intro" || h.FontName != "Arial-Bold" || h.FontSize != 18 || h.Page != 1 {
		t.Errorf("unexpected heading fragment %+v", h)
	}
	// Top of an 18pt line at baseline 700 on a 792pt page.
	if h.YPos != 74 {
		t.Errorf("expected y 74, got %v", h.YPos)
	}
	if frags[1].YPos != 130 {
		t.Errorf("expected y 130, got %v", frags[1].YPos)
	}
}

func TestMergeGlyphs_InsertsSpaceAtWordGap(t *testing.T) {
	in := glyphs("Times", 10, 0, 500, "two")
	in = append(in, glyphs("Times", 10, 20, 500, "words")...)
	frags := mergeGlyphs(in, 3, 792)
	if len(frags) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(frags))
	}
	if frags[0].Text != "two words" {
		t.Errorf("expected %q, got %q", "two words", frags[0].Text)
	}
}

func TestMergeGlyphs_SplitsOnFontChangeAndLargeGap(t *testing.T) {
	in := glyphs("Times", 10, 0, 500, "left")
	in = append(in, glyphs("Times-Bold", 10, 20, 500, "bold")...)
	in = append(in, glyphs("Times-Bold", 10, 300, 500, "far")...)
	frags := mergeGlyphs(in, 1, 792)
	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments, got %d: %+v", len(frags), frags)
	}
	if frags[1].Text != "bold" || frags[2].Text != "far" {
		t.Errorf("unexpected split %+v", frags)
	}
}

func TestMergeGlyphs_DropsBlankSpans(t *testing.T) {
	in := glyphs("Times", 10, 0, 500, "   ")
	if frags := mergeGlyphs(in, 1, 792); len(frags) != 0 {
		t.Errorf("expected no fragments, got %+v", frags)
	}
}

func TestParseBBox(t *testing.T) {
	input := `<!DOCTYPE html><html><head><title></title></head><body>
<doc>
  <page width="612.000000" height="792.000000">
    <word xMin="72.0" yMin="60.0" xMax="120.0" yMax="78.0">Annual</word>
    <word xMin="125.0" yMin="60.2" xMax="180.0" yMax="78.2">Report</word>
    <word xMin="72.0" yMin="100.0" xMax="90.0" yMax="111.0">body</word>
  </page>
  <page width="612.000000" height="792.000000">
    <word xMin="72.0" yMin="50.0" xMax="90.0" yMax="61.0">later</word>
  </page>
</doc>
</body></html>`
	doc, err := parseBBox(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(doc.Pages))
	}
	one := doc.Pages[0].Fragments
	if len(one) != 2 {
		t.Fatalf("expected 2 fragments on page 1, got %d: %+v", len(one), one)
	}
	if one[0].Text != "Annual Report" || one[0].FontSize != 18 || one[0].YPos != 60 {
		t.Errorf("unexpected first line %+v", one[0])
	}
	if one[1].FontSize != 11 {
		t.Errorf("expected size 11, got %v", one[1].FontSize)
	}
	if doc.Pages[1].Fragments[0].Page != 2 {
		t.Errorf("expected page 2, got %d", doc.Pages[1].Fragments[0].Page)
	}
}

func TestParseBBox_NoPages(t *testing.T) {
	if _, err := parseBBox(strings.NewReader("<html><body></body></html>")); err == nil {
		t.Fatal("expected error")
	}
}

func TestPDFParser_RejectsGarbage(t *testing.T) {
	_, err := Open(&PDFParser{}, strings.NewReader("not a pdf at all"), "broken.pdf")
	if err == nil {
		t.Fatal("expected error for non-pdf input")
	}
}

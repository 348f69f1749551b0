package parser

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// bboxWord is one <word> element from pdftotext -bbox output.
type bboxWord struct {
	text       string
	xMin, yMin float64
	xMax, yMax float64
}

// parseBBox reads pdftotext -bbox XHTML. Words on the same line with the
// same box height are joined into one fragment; the height stands in for
// the font size.
func parseBBox(r io.Reader) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse bbox output: %w", err)
	}

	doc := &doctree.Document{}
	number := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "page" {
			number++
			doc.Pages = append(doc.Pages, doctree.Page{
				Number:    number,
				Fragments: bboxLines(pageWords(n), number),
			})
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if number == 0 {
		return nil, fmt.Errorf("bbox output has no pages")
	}
	return doc, nil
}

func pageWords(page *html.Node) []bboxWord {
	var words []bboxWord
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "word" {
			w := bboxWord{text: textContent(n)}
			for _, a := range n.Attr {
				v, err := strconv.ParseFloat(a.Val, 64)
				if err != nil {
					continue
				}
				switch strings.ToLower(a.Key) {
				case "xmin":
					w.xMin = v
				case "ymin":
					w.yMin = v
				case "xmax":
					w.xMax = v
				case "ymax":
					w.yMax = v
				}
			}
			if w.text != "" {
				words = append(words, w)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(page)
	return words
}

func bboxLines(words []bboxWord, page int) []doctree.Fragment {
	var out []doctree.Fragment
	var parts []string
	var first bboxWord

	flush := func() {
		if len(parts) == 0 {
			return
		}
		out = append(out, doctree.Fragment{
			Text:     strings.Join(parts, " "),
			FontSize: round2(first.yMax - first.yMin),
			Page:     page,
			YPos:     round2(first.yMin),
		})
		parts = parts[:0]
	}

	for _, w := range words {
		if len(parts) > 0 {
			sameLine := math.Abs(w.yMin-first.yMin) < 1
			sameSize := math.Abs((w.yMax-w.yMin)-(first.yMax-first.yMin)) < 0.5
			if !sameLine || !sameSize {
				flush()
			}
		}
		if len(parts) == 0 {
			first = w
		}
		parts = append(parts, w.text)
	}
	flush()
	return out
}

package outline

import (
	"fmt"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Report summarizes the intermediate decisions behind a Result.
type Report struct {
	Fragments      int       `json:"fragments"`
	BodySize       float64   `json:"body_size"`
	TitleFound     bool      `json:"title_found"`
	Candidates     int       `json:"candidates"`
	CandidateSizes []float64 `json:"candidate_sizes"`
	Headings       int       `json:"headings"`
}

// Analyze runs the full pipeline on one rendered document: body size and
// title, then headings, then sections.
func Analyze(doc *doctree.Document, p Params) (doctree.Result, Report) {
	frags := doc.Fragments()
	rep := Report{Fragments: len(frags)}
	if len(frags) == 0 {
		return doctree.EmptyResult(), rep
	}

	body := BodySize(frags, p)
	title, ok := SelectTitle(frags)
	var titlePtr *doctree.Title
	if ok {
		titlePtr = &title
	}
	rep.BodySize = body
	rep.TitleFound = ok

	cands := candidates(frags, body, titlePtr, p)
	rep.Candidates = len(cands)
	rep.CandidateSizes = distinctSizes(cands)

	headings := ClassifyHeadings(frags, body, titlePtr, p)
	rep.Headings = len(headings)

	res := doctree.Result{
		Title:    p.UntitledTitle,
		Outline:  make([]doctree.OutlineEntry, 0, len(headings)),
		Sections: PartitionSections(frags, headings),
	}
	if ok {
		res.Title = title.Text
	}
	for _, h := range headings {
		res.Outline = append(res.Outline, doctree.OutlineEntry{Level: h.Level, Text: h.Text, Page: h.Page})
	}
	if res.Sections == nil {
		res.Sections = []doctree.Section{}
	}
	return res, rep
}

// Build returns the outline of doc.
func Build(doc *doctree.Document, p Params) doctree.Result {
	res, _ := Analyze(doc, p)
	return res
}

// OpenFailed is the result for a document the renderer could not open.
func OpenFailed(err error) doctree.Result {
	return doctree.ErrorResult(fmt.Sprintf("Could not open document: %v", err))
}

func distinctSizes(frags []doctree.Fragment) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, f := range frags {
		if !seen[f.FontSize] {
			seen[f.FontSize] = true
			out = append(out, f.FontSize)
		}
	}
	return out
}

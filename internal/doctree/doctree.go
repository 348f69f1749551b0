package doctree

import (
	"bytes"
	"encoding/json"
)

// Fragment is a positioned run of text produced by a renderer.
type Fragment struct {
	Text     string  // Trimmed, non-empty text
	FontSize float64 // Font size in points
	FontName string  // Font name as reported by the renderer (may be empty)
	Page     int     // 1-based page number
	YPos     float64 // Top edge within the page; smaller is higher
}

// Page is one rendered page of a document.
type Page struct {
	Number    int
	Fragments []Fragment
}

// Document is the ordered fragment stream of a rendered file.
type Document struct {
	Filename string
	Pages    []Page
}

// Fragments flattens all pages into a single stream, preserving order.
func (d *Document) Fragments() []Fragment {
	if d == nil {
		return nil
	}
	n := 0
	for _, p := range d.Pages {
		n += len(p.Fragments)
	}
	out := make([]Fragment, 0, n)
	for _, p := range d.Pages {
		out = append(out, p.Fragments...)
	}
	return out
}

// Level is a heading level.
type Level string

const (
	H1 Level = "H1"
	H2 Level = "H2"
	H3 Level = "H3"
)

var levels = []Level{H1, H2, H3}

// LevelFor maps a 0-based size rank to a level. ok is false past H3.
func LevelFor(rank int) (Level, bool) {
	if rank < 0 || rank >= len(levels) {
		return "", false
	}
	return levels[rank], true
}

// Heading is a classified heading fragment.
type Heading struct {
	Level    Level
	Text     string
	Page     int
	YPos     float64
	FontSize float64
}

// Title is the selected document title. Page is always 1.
type Title struct {
	Text string
	Page int
}

// OutlineEntry is one heading as it appears in the outline.
type OutlineEntry struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// Section is the body text between one heading and the next.
type Section struct {
	HeadingText  string `json:"heading_text"`
	HeadingLevel Level  `json:"heading_level"`
	Page         int    `json:"page"`
	Content      string `json:"content"`
}

// Result is the structural outline of one document, or the reason it
// could not be produced.
type Result struct {
	Title    string
	Outline  []OutlineEntry
	Sections []Section
	Error    string
}

// EmptyResult is the shape returned for documents with no extractable text.
func EmptyResult() Result {
	return Result{Outline: []OutlineEntry{}, Sections: []Section{}}
}

// ErrorResult is the shape returned when a document could not be opened.
func ErrorResult(msg string) Result {
	return Result{Error: msg}
}

// Failed reports whether r carries an error instead of an outline.
func (r Result) Failed() bool {
	return r.Error != ""
}

type successJSON struct {
	Title    string         `json:"title"`
	Outline  []OutlineEntry `json:"outline"`
	Sections []Section      `json:"sections"`
}

type errorJSON struct {
	Error string `json:"error"`
}

// MarshalJSON emits either {"error": ...} or {"title", "outline", "sections"}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return marshalRaw(errorJSON{Error: r.Error})
	}
	s := successJSON{Title: r.Title, Outline: r.Outline, Sections: r.Sections}
	if s.Outline == nil {
		s.Outline = []OutlineEntry{}
	}
	if s.Sections == nil {
		s.Sections = []Section{}
	}
	return marshalRaw(s)
}

// marshalRaw encodes v without escaping <, > and &, so headings such as
// "Q&A" read the same in the output file.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON accepts either shape.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		Error    *string        `json:"error"`
		Title    string         `json:"title"`
		Outline  []OutlineEntry `json:"outline"`
		Sections []Section      `json:"sections"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Error != nil {
		*r = ErrorResult(*raw.Error)
		return nil
	}
	*r = Result{Title: raw.Title, Outline: raw.Outline, Sections: raw.Sections}
	return nil
}

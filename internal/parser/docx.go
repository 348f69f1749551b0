package parser

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/docoutline/internal/doctree"
)

const docxDefaultFont = "Calibri"

// docxStyleSizes approximates Word's built-in style sizes in points.
var docxStyleSizes = map[string]float64{
	"title":    28,
	"subtitle": 15,
	"heading1": 16,
	"heading2": 13,
	"heading3": 12,
	"heading4": 11,
	"heading5": 11,
	"heading6": 11,
}

// DOCXParser handles .docx files. Each paragraph becomes one fragment
// sized from its runs (w:sz) or its paragraph style; explicit page breaks
// advance the page.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "docoutline-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	fl := newFlow(filename)
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		layoutParagraph(fl, para)
	}
	return fl.document(), nil
}

// docxFace is the font a paragraph is rendered in.
type docxFace struct {
	size float64
	font string
	bold bool
}

func (f docxFace) name() string {
	if f.bold {
		return f.font + "-Bold"
	}
	return f.font
}

func layoutParagraph(fl *flow, para *docx.Paragraph) {
	style := docxStyle(para)
	face := docxFace{size: bodyFontSize, font: docxDefaultFont}
	if s, ok := docxStyleSizes[style]; ok {
		face.size = s
		face.bold = strings.HasPrefix(style, "heading") || style == "title"
	}

	var buf strings.Builder
	explicit := docxFace{}
	allBold, anyText := true, false

	flush := func() {
		f := face
		if explicit.size > 0 {
			f.size = explicit.size
		}
		if explicit.font != "" {
			f.font = explicit.font
		}
		if anyText && allBold {
			f.bold = true
		}
		fl.add(buf.String(), f.size, f.name())
		buf.Reset()
		explicit = docxFace{}
		allBold, anyText = true, false
	}

	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch c := rc.(type) {
			case *docx.Text:
				if strings.TrimSpace(c.Text) != "" {
					anyText = true
					rf := runFace(run)
					if !rf.bold {
						allBold = false
					}
					if rf.size > explicit.size {
						explicit.size = rf.size
					}
					if explicit.font == "" {
						explicit.font = rf.font
					}
				}
				buf.WriteString(c.Text)
			case *docx.Tab:
				buf.WriteByte(' ')
			case *docx.BarterRabbet:
				if c.Type == "page" {
					flush()
					fl.newPage()
				} else {
					buf.WriteByte(' ')
				}
			}
		}
	}
	flush()
}

// docxStyle normalises a paragraph style id: "Heading 1" and "heading1"
// both become "heading1".
func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
}

// runFace reads explicit run formatting. w:sz is in half-points.
func runFace(run *docx.Run) docxFace {
	var f docxFace
	rp := run.RunProperties
	if rp == nil {
		return f
	}
	if rp.Size != nil {
		if hp, err := strconv.ParseFloat(rp.Size.Val, 64); err == nil && hp > 0 {
			f.size = hp / 2
		}
	}
	if rp.Fonts != nil {
		f.font = rp.Fonts.ASCII
	}
	f.bold = rp.Bold != nil
	return f
}

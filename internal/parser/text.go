package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// TextParser handles plain text files. Every non-blank line is one body
// fragment; a form feed starts a new page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fl := newFlow(filename)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\f")
		for i, part := range parts {
			if i > 0 {
				fl.newPage()
			}
			if strings.TrimSpace(part) == "" && i > 0 {
				continue
			}
			fl.add(part, bodyFontSize, bodyFont)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return fl.document(), nil
}

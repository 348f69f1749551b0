package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Parser renders raw document bytes into a positioned fragment stream.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tunes parser construction.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// OpenError reports that a document could not be opened or rendered.
type OpenError struct {
	Filename string
	Err      error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Filename, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Open runs p over r. Every failure, including a panic inside a decoder,
// comes back as an *OpenError.
func Open(p Parser, r io.Reader, filename string) (doc *doctree.Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = &OpenError{Filename: filename, Err: fmt.Errorf("decoder panic: %v", rec)}
		}
	}()

	doc, err = p.Parse(r, filename)
	if err != nil {
		return nil, &OpenError{Filename: filename, Err: err}
	}
	if doc.Filename == "" {
		doc.Filename = filename
	}
	return doc, nil
}

// OpenFile picks a parser by extension and opens the document.
func OpenFile(r io.Reader, filename string, opts Options) (*doctree.Document, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, &OpenError{Filename: filename, Err: err}
	}
	return Open(p, r, filename)
}

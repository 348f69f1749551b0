package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// fragmentColumns is the column order of a fragment dump.
var fragmentColumns = []string{"text", "font_size", "font_name", "page", "y_pos"}

// CSVParser reads a fragment dump: one row per fragment with the columns
// text, font_size, font_name, page, y_pos. A header row naming the columns
// is optional and may list them in any order.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &doctree.Document{Filename: filename}
	if len(records) == 0 {
		return doc, nil
	}

	cols, hasHeader := columnIndex(records[0])
	if hasHeader {
		records = records[1:]
	}

	for i, row := range records {
		f, ok, err := fragmentRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", i+1, err)
		}
		if !ok {
			continue
		}
		if n := len(doc.Pages); n == 0 || doc.Pages[n-1].Number != f.Page {
			doc.Pages = append(doc.Pages, doctree.Page{Number: f.Page})
		}
		pg := &doc.Pages[len(doc.Pages)-1]
		pg.Fragments = append(pg.Fragments, f)
	}
	return doc, nil
}

// columnIndex maps column names to positions. Without a recognisable
// header the default order is assumed.
func columnIndex(first []string) (map[string]int, bool) {
	idx := make(map[string]int, len(fragmentColumns))
	for i, name := range first {
		name = strings.ToLower(strings.TrimSpace(name))
		for _, want := range fragmentColumns {
			if name == want {
				idx[name] = i
			}
		}
	}
	if len(idx) == len(fragmentColumns) {
		return idx, true
	}
	for i, name := range fragmentColumns {
		idx[name] = i
	}
	return idx, false
}

// fragmentRow decodes one row. Rows whose text is blank are skipped
// (ok is false) without validating the other columns.
func fragmentRow(row []string, cols map[string]int) (f doctree.Fragment, ok bool, err error) {
	get := func(name string) (string, error) {
		i := cols[name]
		if i >= len(row) {
			return "", fmt.Errorf("missing column %s", name)
		}
		return strings.TrimSpace(row[i]), nil
	}

	text, err := get("text")
	if err != nil {
		return f, false, err
	}
	if text == "" {
		return f, false, nil
	}
	size, err := get("font_size")
	if err != nil {
		return f, false, err
	}
	font, err := get("font_name")
	if err != nil {
		return f, false, err
	}
	page, err := get("page")
	if err != nil {
		return f, false, err
	}
	y, err := get("y_pos")
	if err != nil {
		return f, false, err
	}

	f.Text = text
	f.FontName = font
	if f.FontSize, err = strconv.ParseFloat(size, 64); err != nil {
		return f, false, fmt.Errorf("font_size: %w", err)
	}
	if math.IsNaN(f.FontSize) || math.IsInf(f.FontSize, 0) || f.FontSize <= 0 {
		return f, false, fmt.Errorf("font_size: must be a positive number, got %s", size)
	}
	if f.Page, err = strconv.Atoi(page); err != nil {
		return f, false, fmt.Errorf("page: %w", err)
	}
	if f.Page < 1 {
		return f, false, fmt.Errorf("page: must be >= 1, got %d", f.Page)
	}
	if f.YPos, err = strconv.ParseFloat(y, 64); err != nil {
		return f, false, fmt.Errorf("y_pos: %w", err)
	}
	if math.IsNaN(f.YPos) || math.IsInf(f.YPos, 0) {
		return f, false, fmt.Errorf("y_pos: must be finite, got %s", y)
	}
	return f, true, nil
}

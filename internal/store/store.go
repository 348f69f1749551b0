// Package store persists outline results: one JSON file per document, a
// local sqlite index, and an optional remote key-value service.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// ErrNotFound is returned when a document ID is unknown.
var ErrNotFound = errors.New("document not found")

// Record is one stored outline.
type Record struct {
	DocID       string         `json:"doc_id"`
	Filename    string         `json:"filename"`
	ContentHash string         `json:"content_hash"`
	Result      doctree.Result `json:"result"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Sink receives finished outlines.
type Sink interface {
	Put(ctx context.Context, rec Record) error
}

// Multi writes to every sink in order and joins their errors.
type Multi []Sink

func (m Multi) Put(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Put(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of other characters into a
// single hyphen.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

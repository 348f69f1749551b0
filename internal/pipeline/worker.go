package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/store"
)

// Outcome is the result of outlining one file.
type Outcome struct {
	Result doctree.Result
	Report outline.Report
	Pages  int
	// Err is the open failure, if any. Result is then error-shaped.
	Err error
}

// Worker outlines documents. It holds no per-document state and is safe
// for concurrent use.
type Worker struct {
	params     outline.Params
	parserOpts parser.Options
	index      *store.SQLiteStore // optional; enables dedup
	sink       store.Sink         // optional
	stats      *LatencyStats      // optional
	log        *slog.Logger

	backoff func(int) time.Duration
}

// WorkerConfig wires a Worker.
type WorkerConfig struct {
	Params     outline.Params
	ParserOpts parser.Options
	Index      *store.SQLiteStore
	Sink       store.Sink
	Stats      *LatencyStats
}

func NewWorker(cfg WorkerConfig, log *slog.Logger) *Worker {
	return &Worker{
		params:     cfg.Params,
		parserOpts: cfg.ParserOpts,
		index:      cfg.Index,
		sink:       cfg.Sink,
		stats:      cfg.Stats,
		log:        log,
		backoff:    Backoff,
	}
}

// render opens the file and returns its fragment stream.
func (w *Worker) render(filename string, data []byte) (*doctree.Document, error) {
	return parser.OpenFile(bytes.NewReader(data), filename, w.parserOpts)
}

// classify runs the outline heuristics over a rendered document.
func (w *Worker) classify(doc *doctree.Document) Outcome {
	res, rep := outline.Analyze(doc, w.params)
	return Outcome{Result: res, Report: rep, Pages: len(doc.Pages)}
}

// Outline renders and classifies a single file. An open failure is not
// returned as an error: it yields an error-shaped result with Err set.
func (w *Worker) Outline(filename string, data []byte) Outcome {
	doc, err := w.render(filename, data)
	if err != nil {
		return Outcome{Result: outline.OpenFailed(openCause(err)), Err: err}
	}
	return w.classify(doc)
}

// Process runs the full pipeline for a job: dedup, render, classify, store.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)
	start := time.Now()
	defer job.releaseFileData()

	data := job.FileData()
	job.ContentHash = ContentHashHex(data)

	// Phase 0: Dedup check
	if w.index != nil {
		existing, err := w.index.FindByHash(ctx, job.ContentHash, store.FormatOf(job.Filename))
		switch {
		case err == nil:
			log.Info("duplicate document, skipping", "existing_doc_id", existing.DocID)
			job.DuplicateOf = existing.DocID
			job.SetResult(existing.Result)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	// Phase 1: Render
	job.SetStatus(StatusRendering, "rendering")
	var out Outcome
	doc, err := w.render(job.Filename, data)
	if err != nil {
		log.Error("render failed", "error", err)
		job.AddError(fmt.Sprintf("render: %s", err))
		out = Outcome{Result: outline.OpenFailed(openCause(err)), Err: err}
	} else {
		// Phase 2: Classify
		job.SetStatus(StatusClassifying, "classifying")
		out = w.classify(doc)
		log.Info("classified document",
			"pages", out.Pages,
			"fragments", out.Report.Fragments,
			"body_size", out.Report.BodySize,
			"candidates", out.Report.Candidates,
			"headings", out.Report.Headings)
	}
	job.SetReport(out.Pages, out.Report)
	job.SetResult(out.Result)

	// Phase 3: Store
	job.SetStatus(StatusStoring, "storing")
	rec := store.Record{
		DocID:       job.DocID,
		Filename:    job.Filename,
		ContentHash: job.ContentHash,
		Result:      out.Result,
		CreatedAt:   job.CreatedAt,
	}
	storeErr := w.store(ctx, log, rec)
	if storeErr != nil {
		log.Error("store failed", "error", storeErr)
		job.AddError(fmt.Sprintf("store: %s", storeErr))
	}

	if w.stats != nil {
		w.stats.Record(formatOf(job.Filename), time.Since(start))
	}

	if out.Err != nil || storeErr != nil {
		phase := "storing"
		if out.Err != nil {
			phase = "rendering"
		}
		job.SetStatus(StatusFailed, phase)
		return
	}
	job.SetStatus(StatusCompleted, "done")
	log.Info("outline complete", "title", out.Result.Title, "sections", len(out.Result.Sections), "duration", time.Since(start))
}

// store writes the record to the index and the sink. Transient sink
// failures are retried with backoff.
func (w *Worker) store(ctx context.Context, log *slog.Logger, rec store.Record) error {
	var errs []error
	if w.index != nil {
		if err := w.index.Put(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if w.sink != nil {
		err := withRetry(ctx, w.backoff,
			func(attempt int, err error) {
				log.Warn("retryable store error", "attempt", attempt, "error", err)
			},
			func() error { return w.sink.Put(ctx, rec) })
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openCause strips the parser's wrapper so the message reads
// "Could not open document: <cause>".
func openCause(err error) error {
	var oe *parser.OpenError
	if errors.As(err, &oe) {
		return oe.Err
	}
	return err
}

func formatOf(filename string) string {
	return store.FormatOf(filename)
}

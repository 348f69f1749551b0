package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/store"
)

const fragmentDump = `text,font_size,font_name,page,y_pos
Field Guide,28,Georgia,1,20
1. Start,18,Georgia-Bold,1,100
first words,11,Georgia,1,140
2. Finish,18,Georgia-Bold,2,30
last words,11,Georgia,2,60
more words,11,Georgia,2,80
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSink struct {
	mu      sync.Mutex
	fails   []error
	records []store.Record
	calls   int
}

func (s *recordingSink) Put(_ context.Context, rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.fails) > 0 {
		err := s.fails[0]
		s.fails = s.fails[1:]
		return err
	}
	s.records = append(s.records, rec)
	return nil
}

func newTestWorker(t *testing.T, sink store.Sink) (*Worker, *store.SQLiteStore) {
	t.Helper()
	idx, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	w := NewWorker(WorkerConfig{
		Params: outline.DefaultParams(),
		Index:  idx,
		Sink:   sink,
		Stats:  NewLatencyStats(time.Hour, 100),
	}, discardLogger())
	w.backoff = func(int) time.Duration { return time.Millisecond }
	return w, idx
}

func TestWorker_Outline(t *testing.T) {
	w, _ := newTestWorker(t, nil)
	out := w.Outline("guide.csv", []byte(fragmentDump))
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Result.Title != "Field Guide" {
		t.Errorf("expected title %q, got %q", "Field Guide", out.Result.Title)
	}
	if len(out.Result.Outline) != 2 || len(out.Result.Sections) != 2 {
		t.Fatalf("expected 2 headings and sections, got %+v", out.Result)
	}
	if out.Result.Sections[1].Content != "last words\nmore words" {
		t.Errorf("unexpected section content %q", out.Result.Sections[1].Content)
	}
	if out.Pages != 2 || out.Report.Fragments != 6 {
		t.Errorf("unexpected counts pages=%d fragments=%d", out.Pages, out.Report.Fragments)
	}
}

func TestWorker_OutlineOpenFailure(t *testing.T) {
	w, _ := newTestWorker(t, nil)
	out := w.Outline("broken.pdf", []byte("definitely not a pdf"))
	if out.Err == nil {
		t.Fatal("expected open error")
	}
	if !out.Result.Failed() {
		t.Fatal("expected error-shaped result")
	}
	if !strings.HasPrefix(out.Result.Error, "Could not open document: ") {
		t.Errorf("unexpected message %q", out.Result.Error)
	}
	if strings.Contains(out.Result.Error, "open broken.pdf") {
		t.Errorf("expected parser wrapper stripped, got %q", out.Result.Error)
	}
}

func TestWorker_ProcessStoresAndCompletes(t *testing.T) {
	sink := &recordingSink{}
	w, idx := newTestWorker(t, sink)
	job := NewJob("guide.csv", []byte(fragmentDump))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Headings != 2 || snap.Progress.Sections != 2 || snap.Progress.Pages != 2 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if job.FileData() != nil {
		t.Error("expected upload released after processing")
	}
	if len(sink.records) != 1 || sink.records[0].DocID != job.DocID {
		t.Fatalf("expected one sink record for %s, got %+v", job.DocID, sink.records)
	}
	rec, err := idx.Get(context.Background(), job.DocID)
	if err != nil {
		t.Fatalf("expected indexed record: %v", err)
	}
	if rec.Result.Title != "Field Guide" {
		t.Errorf("unexpected indexed title %q", rec.Result.Title)
	}
	if w.stats.Snapshot().ByFormat[".csv"].Count != 1 {
		t.Error("expected latency recorded under .csv")
	}
}

func TestWorker_ProcessSkipsDuplicates(t *testing.T) {
	w, _ := newTestWorker(t, nil)
	first := NewJob("guide.csv", []byte(fragmentDump))
	w.Process(context.Background(), first)

	second := NewJob("copy.csv", []byte(fragmentDump))
	w.Process(context.Background(), second)

	snap := second.Snapshot()
	if snap.Status != StatusDupSkipped {
		t.Fatalf("expected duplicate_skipped, got %q", snap.Status)
	}
	if snap.DuplicateOf != first.DocID {
		t.Errorf("expected duplicate of %s, got %s", first.DocID, snap.DuplicateOf)
	}
	if res, ok := second.Result(); !ok || res.Title != "Field Guide" {
		t.Errorf("expected existing result attached, got %+v", res)
	}
}

func TestWorker_ProcessSameBytesOtherFormatIsNotDuplicate(t *testing.T) {
	w, _ := newTestWorker(t, nil)
	first := NewJob("guide.csv", []byte(fragmentDump))
	w.Process(context.Background(), first)

	second := NewJob("guide.txt", []byte(fragmentDump))
	w.Process(context.Background(), second)

	snap := second.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", snap.Status)
	}
	if snap.DuplicateOf != "" {
		t.Errorf("expected no duplicate, got %s", snap.DuplicateOf)
	}
	res, ok := second.Result()
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Title == "Field Guide" {
		t.Error("expected the text outline, got the csv one")
	}
}

func TestWorker_ProcessOpenFailureStoresErrorResult(t *testing.T) {
	sink := &recordingSink{}
	w, _ := newTestWorker(t, sink)
	job := NewJob("broken.pdf", []byte("not a pdf"))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "rendering" {
		t.Fatalf("expected failed in rendering, got %q/%q", snap.Status, snap.Phase)
	}
	if len(sink.records) != 1 || !sink.records[0].Result.Failed() {
		t.Fatalf("expected error-shaped result stored, got %+v", sink.records)
	}
}

func TestWorker_ProcessRetriesTransientSinkErrors(t *testing.T) {
	sink := &recordingSink{fails: []error{
		&store.RetryableError{StatusCode: 503, Message: "busy"},
		&store.RetryableError{StatusCode: 429, Message: "slow down"},
	}}
	w, _ := newTestWorker(t, sink)
	job := NewJob("guide.csv", []byte(fragmentDump))

	w.Process(context.Background(), job)

	if sink.calls != 3 {
		t.Errorf("expected 3 sink calls, got %d", sink.calls)
	}
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected completed after retries, got %q", s)
	}
}

func TestWorker_ProcessPermanentSinkError(t *testing.T) {
	sink := &recordingSink{fails: []error{errors.New("bad request")}}
	w, _ := newTestWorker(t, sink)
	job := NewJob("guide.csv", []byte(fragmentDump))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if sink.calls != 1 {
		t.Errorf("expected no retry for permanent error, got %d calls", sink.calls)
	}
	if snap.Status != StatusFailed || snap.Phase != "storing" {
		t.Errorf("expected failed in storing, got %q/%q", snap.Status, snap.Phase)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&store.RetryableError{StatusCode: 502}) {
		t.Error("expected RetryableError to be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("expected plain error to be permanent")
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt)
		if d < time.Second || d > 45*time.Second {
			t.Errorf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	w, _ := newTestWorker(t, nil)
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 10, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, w, w.stats, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("guide.csv", []byte(fragmentDump))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected job to be tracked")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !job.Snapshot().Status.Done() {
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %q", job.Snapshot().Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected completed, got %q", s)
	}
	if o.Stats().Overall.Count != 1 {
		t.Errorf("expected one latency sample, got %d", o.Stats().Overall.Count)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	w, _ := newTestWorker(t, nil)
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	// Not started: nothing drains the queue.
	o := NewOrchestrator(cfg, w, nil, discardLogger())

	if err := o.Submit(NewJob("a.csv", []byte(fragmentDump))); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	overflow := NewJob("b.csv", []byte(fragmentDump))
	if err := o.Submit(overflow); err == nil {
		t.Fatal("expected queue full error")
	}
	if s := overflow.Snapshot(); s.Status != StatusFailed || s.Phase != "queue_full" {
		t.Errorf("expected failed/queue_full, got %q/%q", s.Status, s.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_StopFailsQueuedJobs(t *testing.T) {
	w, _ := newTestWorker(t, nil)
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, w, nil, discardLogger())

	job := NewJob("a.csv", []byte(fragmentDump))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	o.Stop()
	o.Stop()

	if s := job.Snapshot(); s.Status != StatusFailed || s.Phase != "shutdown" {
		t.Errorf("expected failed/shutdown, got %q/%q", s.Status, s.Phase)
	}
	if job.FileData() != nil {
		t.Error("expected upload to be released")
	}
	if err := o.Submit(NewJob("b.csv", nil)); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestSweepInterval(t *testing.T) {
	if got := sweepInterval(time.Minute); got != 15*time.Second {
		t.Errorf("expected 15s, got %v", got)
	}
	if got := sweepInterval(24 * time.Hour); got != 5*time.Minute {
		t.Errorf("expected cap of 5m, got %v", got)
	}
	if got := sweepInterval(0); got != 5*time.Minute {
		t.Errorf("expected 5m for zero ttl, got %v", got)
	}
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docoutline/internal/doctree"
)

func sampleRecord(id, filename, hash string) Record {
	return Record{
		DocID:       id,
		Filename:    filename,
		ContentHash: hash,
		Result: doctree.Result{
			Title:   "Report <draft> & notes",
			Outline: []doctree.OutlineEntry{{Level: doctree.H1, Text: "1. Intro", Page: 1}},
			Sections: []doctree.Section{
				{HeadingText: "1. Intro", HeadingLevel: doctree.H1, Page: 1, Content: "Überblick"},
			},
		},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "annual-report-2024", Slugify("Annual Report (2024)"))
	assert.Equal(t, "a-b", Slugify("--A__B--"))
	assert.Equal(t, "", Slugify("***"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "outlines/file-01-01ABC", Key(Record{DocID: "01ABC", Filename: "in/File 01.pdf"}))
	assert.Equal(t, "outlines/01ABC", Key(Record{DocID: "01ABC", Filename: "!!!.pdf"}))
}

func TestDirSink_WritesStemJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink, err := NewDirSink(dir)
	require.NoError(t, err)

	rec := sampleRecord("d1", "/input/file01.pdf", "h")
	require.NoError(t, sink.Put(context.Background(), rec))

	data, err := os.ReadFile(filepath.Join(dir, "file01.json"))
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "\n  \"title\": \"Report <draft> & notes\"")
	assert.Contains(t, s, "Überblick")

	var got doctree.Result
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, rec.Result, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDirSink_ErrorResult(t *testing.T) {
	sink, err := NewDirSink(t.TempDir())
	require.NoError(t, err)
	rec := Record{DocID: "d", Filename: "broken.pdf", Result: doctree.ErrorResult("Could not open document: bad xref")}
	require.NoError(t, sink.Put(context.Background(), rec))

	data, err := os.ReadFile(sink.Path("broken.pdf"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Could not open document: bad xref"}`, string(data))
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "outlines.db"))
	require.NoError(t, err)
	defer st.Close()

	rec := sampleRecord("d1", "a.pdf", "hash-a")
	require.NoError(t, st.Put(ctx, rec))

	got, err := st.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	byHash, err := st.FindByHash(ctx, "hash-a", ".pdf")
	require.NoError(t, err)
	assert.Equal(t, "d1", byHash.DocID)

	_, err = st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer st.Close()

	older := sampleRecord("d1", "a.pdf", "h1")
	newer := sampleRecord("d2", "b.pdf", "h2")
	newer.CreatedAt = older.CreatedAt.Add(time.Minute)
	failed := Record{DocID: "d3", Filename: "c.pdf", ContentHash: "h3", Result: doctree.ErrorResult("x"), CreatedAt: older.CreatedAt.Add(-time.Minute)}
	for _, r := range []Record{older, newer, failed} {
		require.NoError(t, st.Put(ctx, r))
	}

	list, err := st.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"d2", "d1", "d3"}, []string{list[0].DocID, list[1].DocID, list[2].DocID})
	assert.Equal(t, 1, list[0].Headings)
	assert.True(t, list[2].Failed)

	limited, err := st.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStore_FindByHashSkipsFailures(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Put(ctx, Record{DocID: "bad", Filename: "x.pdf", ContentHash: "same", Result: doctree.ErrorResult("x"), CreatedAt: time.Now()}))
	_, err = st.FindByHash(ctx, "same", ".pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_FindByHashMatchesFormat(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Put(ctx, sampleRecord("md", "notes.MD", "same")))

	got, err := st.FindByHash(ctx, "same", ".md")
	require.NoError(t, err)
	assert.Equal(t, "md", got.DocID)

	_, err = st.FindByHash(ctx, "same", ".txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_PutUpsertsAndDelete(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer st.Close()

	rec := sampleRecord("d1", "a.pdf", "h")
	require.NoError(t, st.Put(ctx, rec))
	rec.Result.Title = "Revised"
	require.NoError(t, st.Put(ctx, rec))

	got, err := st.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "Revised", got.Result.Title)

	require.NoError(t, st.Delete(ctx, "d1"))
	assert.ErrorIs(t, st.Delete(ctx, "d1"), ErrNotFound)
}

func TestHTTPSink_Put(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL+"/", "secret")
	defer sink.Close()
	require.NoError(t, sink.Put(context.Background(), sampleRecord("01H", "Annual Report.pdf", "h")))

	assert.Equal(t, "/kv/outlines/annual-report-01H", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "Annual Report.pdf", gotBody["source"])
	value, ok := gotBody["value"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Report <draft> & notes", value["title"])
}

func TestHTTPSink_RetryableStatuses(t *testing.T) {
	var status atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()
	sink := NewHTTPSink(srv.URL, "k")

	for _, code := range []int{http.StatusTooManyRequests, http.StatusBadGateway} {
		status.Store(int32(code))
		err := sink.Put(context.Background(), sampleRecord("d", "a.pdf", "h"))
		var re *RetryableError
		require.True(t, errors.As(err, &re), "status %d", code)
		assert.Equal(t, code, re.StatusCode)
	}

	status.Store(http.StatusBadRequest)
	err := sink.Put(context.Background(), sampleRecord("d", "a.pdf", "h"))
	require.Error(t, err)
	var re *RetryableError
	assert.False(t, errors.As(err, &re))
}

type failingSink struct{ err error }

func (f failingSink) Put(context.Context, Record) error { return f.err }

type countingSink struct{ n int }

func (c *countingSink) Put(context.Context, Record) error { c.n++; return nil }

func TestMulti_WritesAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	counter := &countingSink{}
	err := Multi{failingSink{boom}, counter}.Put(context.Background(), Record{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, counter.n)

	assert.NoError(t, Multi{counter}.Put(context.Background(), Record{}))
}

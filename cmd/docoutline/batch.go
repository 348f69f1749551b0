package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/dgallion1/docoutline/internal/store"
)

type batchSummary struct {
	Files     int
	Outlined  int
	Failed    int
	WriteErrs int
}

func batchCmd() *cobra.Command {
	var input, output, ext string
	var workers int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Outline every matching file in a directory into <stem>.json files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if input == "" {
				input = cfg.InputDir
			}
			if output == "" {
				output = cfg.OutputDir
			}
			if workers <= 0 {
				workers = cfg.WorkerCount
			}

			log := newLogger()
			sink, err := store.NewDirSink(output)
			if err != nil {
				return err
			}
			sum, err := runBatch(cmd.Context(), newWorker(cfg, log), sink, input, ext, workers, log)
			if err != nil {
				return err
			}
			log.Info("batch complete",
				"files", sum.Files,
				"outlined", sum.Outlined,
				"failed", sum.Failed,
				"write_errors", sum.WriteErrs)
			if sum.WriteErrs > 0 {
				return fmt.Errorf("%d result files could not be written", sum.WriteErrs)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "directory to scan (default: $INPUT_DIR)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory for <stem>.json results (default: $OUTPUT_DIR)")
	cmd.Flags().StringVar(&ext, "ext", ".pdf", "file extension to process")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent documents (default: $WORKER_COUNT)")
	return cmd
}

// listInputs returns the regular files in dir whose extension matches ext,
// case-insensitively, sorted by name.
func listInputs(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// runBatch outlines every matching file and writes one result per file.
// A file that cannot be read or opened gets an error-shaped result and
// never stops the others.
func runBatch(ctx context.Context, w *pipeline.Worker, sink store.Sink, input, ext string, workers int, log *slog.Logger) (batchSummary, error) {
	paths, err := listInputs(input, ext)
	if err != nil {
		return batchSummary{}, err
	}
	log.Info("batch started", "input", input, "files", len(paths), "workers", workers)

	var outlined, failed, writeErrs atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, path := range paths {
		g.Go(func() error {
			start := time.Now()
			name := filepath.Base(path)
			flog := log.With("file", name)

			var out pipeline.Outcome
			data, err := os.ReadFile(path)
			if err != nil {
				out = pipeline.Outcome{Result: outline.OpenFailed(err), Err: err}
			} else {
				out = w.Outline(name, data)
			}

			if out.Err != nil {
				failed.Add(1)
				flog.Error("open failed", "error", out.Err)
			} else {
				outlined.Add(1)
			}

			rec := store.Record{Filename: name, Result: out.Result, CreatedAt: time.Now().UTC()}
			if err := sink.Put(ctx, rec); err != nil {
				writeErrs.Add(1)
				flog.Error("write failed", "error", err)
				return nil
			}
			if out.Err == nil {
				flog.Info("outlined",
					"title", out.Result.Title,
					"headings", len(out.Result.Outline),
					"body_size", out.Report.BodySize,
					"duration_ms", time.Since(start).Milliseconds())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return batchSummary{}, err
	}

	return batchSummary{
		Files:     len(paths),
		Outlined:  int(outlined.Load()),
		Failed:    int(failed.Load()),
		WriteErrs: int(writeErrs.Load()),
	}, nil
}

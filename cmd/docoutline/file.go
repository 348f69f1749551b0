package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docoutline/internal/outline"
)

func fileCmd() *cobra.Command {
	var report bool

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Outline one document and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger()
			path := args[0]

			data, err := os.ReadFile(path)
			if err != nil {
				log.Error("read failed", "path", path, "error", err)
				return printResult(cmd, outline.OpenFailed(err))
			}

			out := newWorker(cfg, log).Outline(filepath.Base(path), data)
			if out.Err != nil {
				log.Error("open failed", "path", path, "error", out.Err)
			} else if report {
				log.Info("outlined",
					"path", path,
					"pages", out.Pages,
					"fragments", out.Report.Fragments,
					"body_size", out.Report.BodySize,
					"candidates", out.Report.Candidates,
					"candidate_sizes", out.Report.CandidateSizes,
					"headings", out.Report.Headings)
			}
			return printResult(cmd, out.Result)
		},
	}
	cmd.Flags().BoolVar(&report, "report", false, "log classification diagnostics to stderr")
	return cmd
}

func printResult(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pipeline"
)

func main() {
	root := &cobra.Command{
		Use:           "docoutline",
		Short:         "Reconstruct the title, heading outline and sections of documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("heuristics", "", "YAML file overriding the heading heuristics (default: $HEURISTICS_FILE)")
	root.PersistentFlags().Bool("no-pdftotext", false, "do not fall back to pdftotext when the PDF reader fails")

	root.AddCommand(batchCmd())
	root.AddCommand(fileCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger logs to stderr so stdout carries only JSON.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if path, _ := cmd.Flags().GetString("heuristics"); path != "" {
		params, err := config.LoadHeuristics(path)
		if err != nil {
			return cfg, err
		}
		cfg.HeuristicsFile = path
		cfg.Outline = params
	}
	if off, _ := cmd.Flags().GetBool("no-pdftotext"); off {
		cfg.PDFFallbackPdftotext = false
	}
	return cfg, nil
}

func newWorker(cfg config.Config, log *slog.Logger) *pipeline.Worker {
	return pipeline.NewWorker(pipeline.WorkerConfig{
		Params:     cfg.Outline,
		ParserOpts: parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
	}, log)
}

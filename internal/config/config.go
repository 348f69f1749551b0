package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docoutline/internal/outline"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Result storage
	ResultDB   string
	SinkURL    string
	SinkAPIKey string

	// Batch directories
	InputDir  string
	OutputDir string

	// Latency window size for /api/stats
	StatsWindow int

	// Heuristics
	HeuristicsFile string
	Outline        outline.Params

	// PDF
	PDFFallbackPdftotext bool
}

// Load reads .env (if present), the environment and the optional
// heuristics file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("DOCOUTLINE_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		ResultDB:   envOr("RESULT_DB", "docoutline.db"),
		SinkURL:    os.Getenv("SINK_URL"),
		SinkAPIKey: os.Getenv("SINK_API_KEY"),

		InputDir:  envOr("INPUT_DIR", "/app/input"),
		OutputDir: envOr("OUTPUT_DIR", "/app/output"),

		StatsWindow: envInt("STATS_WINDOW", 1000),

		HeuristicsFile: os.Getenv("HEURISTICS_FILE"),
		Outline:        outline.DefaultParams(),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1000
	}

	if cfg.HeuristicsFile != "" {
		params, err := LoadHeuristics(cfg.HeuristicsFile)
		if err != nil {
			return cfg, err
		}
		cfg.Outline = params
	}

	return cfg, nil
}

// Validate checks what the HTTP service needs on top of Load.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCOUTLINE_API_KEY is required")
	}
	if c.SinkURL != "" && c.SinkAPIKey == "" {
		return fmt.Errorf("SINK_API_KEY is required when SINK_URL is set")
	}
	return nil
}

// LoadHeuristics reads a YAML file of outline parameters. Keys that are
// absent keep their defaults; unknown keys are an error.
func LoadHeuristics(path string) (outline.Params, error) {
	params := outline.DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("read heuristics %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		return params, fmt.Errorf("parse heuristics %s: %w", path, err)
	}
	return params, validateParams(params)
}

func validateParams(p outline.Params) error {
	if p.ScoreThreshold <= 0 {
		return fmt.Errorf("score_threshold must be > 0")
	}
	if p.SizeDelta < 0 {
		return fmt.Errorf("size_delta must be >= 0")
	}
	if p.BodySizeCutoff <= 0 {
		return fmt.Errorf("body_size_cutoff must be > 0")
	}
	if p.DefaultBodySize <= 0 {
		return fmt.Errorf("default_body_size must be > 0")
	}
	if p.MaxLevels < 1 || p.MaxLevels > 3 {
		return fmt.Errorf("max_levels must be between 1 and 3")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

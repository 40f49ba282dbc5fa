// Package ocr wraps text recognition backends behind a small, scoped Engine
// contract: create one per extraction call, recognize any number of images,
// then Close it on every exit path.
package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/doctext/internal/core/runner"
)

// Backend names accepted by Config.Backend.
const (
	BackendGosseract = "gosseract"
	BackendCLI       = "cli"
)

// ProgressFunc receives engine progress as a fraction in [0, 1].
type ProgressFunc func(fraction float64)

// Recognition is the outcome of recognizing a single image.
type Recognition struct {
	Text       string
	Confidence float64 // 0..100
}

// Engine recognizes text in encoded raster images (PNG, JPEG, ...).
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte, progress ProgressFunc) (Recognition, error)
	Close() error
}

// Factory creates a fresh engine for one extraction call.
type Factory func(ctx context.Context) (Engine, error)

type Config struct {
	Backend   string // "gosseract" (default) | "cli"
	Tesseract string // binary name or absolute path for the cli backend; if empty -> "tesseract"
	Lang      string // default "eng"
	// TessdataDir is passed to the cli backend; libtesseract reads TESSDATA_PREFIX itself.
	TessdataDir string
	PSM         int // page segmentation mode; 0 keeps the engine default
}

// NewFactory returns a Factory for the configured backend.
func NewFactory(cfg Config, logger *slog.Logger) (Factory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	switch cfg.Backend {
	case "", BackendGosseract:
		return func(ctx context.Context) (Engine, error) {
			return NewGosseractEngine(cfg, logger)
		}, nil
	case BackendCLI:
		return func(ctx context.Context) (Engine, error) {
			return NewCLIEngine(cfg, runner.Exec{}, logger), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown ocr backend %q", cfg.Backend)
	}
}

func report(progress ProgressFunc, fraction float64) {
	if progress != nil {
		progress(fraction)
	}
}

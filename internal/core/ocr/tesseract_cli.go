package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joseph-ayodele/doctext/internal/core/runner"
)

// CLIEngine shells out to the tesseract binary. Images are written to a
// private temp dir that Close removes.
type CLIEngine struct {
	cfg    Config
	runner runner.Runner
	logger *slog.Logger

	tmpDir string
	seq    int
}

func NewCLIEngine(cfg Config, r runner.Runner, logger *slog.Logger) *CLIEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &CLIEngine{cfg: cfg, runner: r, logger: logger}
}

func (e *CLIEngine) Name() string { return "tesseract-cli" }

func (e *CLIEngine) Recognize(ctx context.Context, image []byte, progress ProgressFunc) (Recognition, error) {
	report(progress, 0)
	path, err := e.writeImage(image)
	if err != nil {
		return Recognition{}, err
	}
	defer func() { _ = os.Remove(path) }()

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, e.args(path)...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract: %w: %s", err, runner.Truncate(string(errb), 512))
	}
	text := reBoxNoise.ReplaceAllString(string(out), "")
	report(progress, 0.6)

	// second pass in TSV mode for per-word confidence
	tsv, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, append(e.args(path), "tsv")...)
	var conf float64
	if err != nil {
		e.logger.Warn("tesseract tsv pass failed", "error", err, "stderr", runner.Truncate(string(errb), 512))
	} else {
		conf, _ = MeanTSVConfidence(tsv)
	}
	report(progress, 1)

	return Recognition{Text: Normalize(text), Confidence: conf}, nil
}

func (e *CLIEngine) args(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *CLIEngine) writeImage(image []byte) (string, error) {
	if e.tmpDir == "" {
		dir, err := os.MkdirTemp("", "doctext-ocr-*")
		if err != nil {
			return "", err
		}
		e.tmpDir = dir
	}
	e.seq++
	path := filepath.Join(e.tmpDir, fmt.Sprintf("img-%d.png", e.seq))
	if err := os.WriteFile(path, image, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (e *CLIEngine) Close() error {
	if e.tmpDir == "" {
		return nil
	}
	err := os.RemoveAll(e.tmpDir)
	if err != nil {
		e.logger.Warn("failed to remove ocr temp dir", "dir", e.tmpDir, "error", err)
	}
	e.tmpDir = ""
	return err
}

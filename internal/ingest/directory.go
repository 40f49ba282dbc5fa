package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/pipeline"
)

// DirOptions controls a directory run.
type DirOptions struct {
	IncludeExts []string // empty means every accepted extension
	SkipHidden  bool
	Force       bool
	Password    string // tried on every encrypted document
}

// ExtractDirectory walks root and runs every matching file through r, one at a time.
// Per-file failures are collected; only a cancelled context stops the walk.
func ExtractDirectory(ctx context.Context, r Runner, root string, opts DirOptions, logger *slog.Logger) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	exts := extSet(opts.IncludeExts)

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !matches(path, exts) {
			return nil
		}
		stats.Matched++

		out, err := r.Run(ctx, pipeline.Request{Path: path, Password: opts.Password, Force: opts.Force})
		res := FileResult{
			Path:         path,
			Status:       string(out.Status),
			Deduplicated: out.Duplicate,
			HashHex:      out.ContentHash,
			Confidence:   out.Result.Confidence,
		}
		if out.ExtractionID != uuid.Nil {
			res.ExtractionID = out.ExtractionID.String()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			res.Err = err.Error()
			if out.Status == constants.JobStatusNeedsPassword {
				stats.NeedsPassword++
			} else {
				stats.Failed++
			}
			logger.Warn("file extraction failed", "path", path, "status", out.Status, "error", err)
			results = append(results, res)
			return nil
		}
		results = append(results, res)
		stats.Succeeded++
		if out.Duplicate {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	logger.Info("directory extraction finished",
		"root", root, "matched", stats.Matched, "succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated, "needs_password", stats.NeedsPassword, "failed", stats.Failed)
	return results, stats, nil
}

package ingest

import (
	"context"

	"github.com/joseph-ayodele/doctext/internal/pipeline"
)

// Runner is satisfied by *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Outcome, error)
}

// FileResult is the per-file outcome of a directory run.
type FileResult struct {
	Path         string
	ExtractionID string
	Status       string
	Deduplicated bool
	HashHex      string
	Confidence   int
	Err          string
}

// DirStats summarizes a directory run.
type DirStats struct {
	Scanned       uint32
	Matched       uint32
	Succeeded     uint32
	Deduplicated  uint32
	NeedsPassword uint32
	Failed        uint32
}

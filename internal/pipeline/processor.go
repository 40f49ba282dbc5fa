package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/doctext/internal/common"
)

// Processor runs the pipeline for paths discovered by the batch walker and the watcher.
type Processor struct {
	Logger   *slog.Logger
	Pipeline *Pipeline
}

func NewProcessor(logger *slog.Logger, p *Pipeline) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Pipeline: p}
}

// ProcessFile extracts the file at path and returns the extraction record ID.
func (p *Processor) ProcessFile(ctx context.Context, path string, force bool) (uuid.UUID, error) {
	logger := common.LoggerFromContext(ctx, p.Logger)
	out, err := p.Pipeline.Run(ctx, Request{Path: path, Force: force})
	if err != nil {
		logger.Error("processor.extract.failed", "path", path, "extraction_id", out.ExtractionID, "status", out.Status, "err", err)
		return out.ExtractionID, err
	}
	logger.Info("processor.extract.ok",
		"path", path,
		"extraction_id", out.ExtractionID,
		"duplicate", out.Duplicate,
		"source_kind", out.Result.SourceKind,
		"strategy", out.Result.Strategy,
		"pages", out.Result.PageCount,
		"confidence", out.Result.Confidence,
	)
	return out.ExtractionID, nil
}

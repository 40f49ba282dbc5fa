// Package pipeline is the caller side of extraction: it opens a file, records
// the attempt, dispatches it, enforces the result contract and records the outcome.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/core/extract"
	"github.com/joseph-ayodele/doctext/internal/entity"
	"github.com/joseph-ayodele/doctext/internal/repository"
)

// Extractor is satisfied by *extract.Dispatcher.
type Extractor interface {
	Extract(ctx context.Context, f *extract.File, onProgress extract.ProgressFunc, password string) (extract.Result, error)
}

// ResultValidator is satisfied by *contract.Validator.
type ResultValidator interface {
	Validate(result any) error
}

// Consumer receives successful results, e.g. an uploader or a summarizer.
// Consumer failures are logged and never fail the extraction.
type Consumer interface {
	Name() string
	Consume(ctx context.Context, extractionID uuid.UUID, f *extract.File, res extract.Result) error
}

const DefaultMinTextLength = 10

type Pipeline struct {
	Extractor     Extractor
	Validator     ResultValidator
	Repo          repository.ExtractionRepository
	Consumers     []Consumer
	MinTextLength int
	Logger        *slog.Logger
}

func New(ex Extractor, v ResultValidator, repo repository.ExtractionRepository, logger *slog.Logger, consumers ...Consumer) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Extractor:     ex,
		Validator:     v,
		Repo:          repo,
		Consumers:     consumers,
		MinTextLength: DefaultMinTextLength,
		Logger:        logger,
	}
}

type Request struct {
	Path       string        // read from disk when File is nil
	File       *extract.File // optional in-memory file
	Password   string
	OnProgress extract.ProgressFunc
	// Force re-extracts content whose hash already has a successful record.
	Force bool
}

type Outcome struct {
	ExtractionID uuid.UUID
	Status       constants.JobStatus
	Result       extract.Result
	ContentHash  string
	Duplicate    bool
}

// Run extracts one file. The returned error keeps its extract.Kind so callers
// can tell password prompts from terminal failures.
func (p *Pipeline) Run(ctx context.Context, req Request) (Outcome, error) {
	f := req.File
	if f == nil {
		var err error
		if f, err = extract.OpenFile(req.Path); err != nil {
			return Outcome{Status: constants.JobStatusFailed}, err
		}
	}
	sum := sha256.Sum256(f.Data)
	hash := hex.EncodeToString(sum[:])
	logger := p.Logger.With("file", f.Name, "content_hash", hash[:12])

	if p.Repo != nil && !req.Force {
		if prev, ok := p.previousSuccess(ctx, hash); ok {
			logger.Info("content already extracted, reusing record", "extraction_id", prev.ID)
			return Outcome{
				ExtractionID: prev.ID,
				Status:       prev.Status,
				Result:       resultFromRecord(prev),
				ContentHash:  hash,
				Duplicate:    true,
			}, nil
		}
	}

	out := Outcome{ContentHash: hash, Status: constants.JobStatusRunning}
	if p.Repo != nil {
		rec, err := p.Repo.Start(ctx, entity.Extraction{
			FileName:    f.Name,
			FilePath:    req.Path,
			ContentHash: hash,
			MIMEType:    f.MIMEType,
			SizeBytes:   f.Size,
			Status:      constants.JobStatusRunning,
		})
		if err != nil {
			return out, fmt.Errorf("record start: %w", err)
		}
		out.ExtractionID = rec.ID
		logger = logger.With("extraction_id", rec.ID)
	}

	res, err := p.Extractor.Extract(ctx, f, req.OnProgress, req.Password)
	if err == nil {
		err = p.checkContract(res)
	}
	if err != nil {
		out.Status = constants.JobStatusFailed
		if extract.IsPasswordError(err) {
			out.Status = constants.JobStatusNeedsPassword
		}
		logger.Warn("extraction failed", "status", out.Status, "kind", extract.KindOf(err), "error", err)
		p.recordFailure(ctx, out, err)
		return out, err
	}

	out.Status = constants.JobStatusOK
	out.Result = res
	if p.Repo != nil {
		if err := p.Repo.FinishSuccess(ctx, out.ExtractionID, entity.Outcome{
			SourceKind:       res.SourceKind,
			Strategy:         res.Strategy,
			Confidence:       res.Confidence,
			PageCount:        res.PageCount,
			ProcessingTimeMs: res.ProcessingTimeMs,
			Text:             res.Text,
			Warnings:         res.Warnings,
		}); err != nil {
			return out, fmt.Errorf("record success: %w", err)
		}
	}

	for _, c := range p.Consumers {
		if err := c.Consume(ctx, out.ExtractionID, f, res); err != nil {
			logger.Warn("downstream consumer failed", "consumer", c.Name(), "error", err)
		}
	}
	return out, nil
}

// checkContract applies the caller-side rules: a minimum text length, then the schema.
func (p *Pipeline) checkContract(res extract.Result) error {
	minLen := p.MinTextLength
	if minLen <= 0 {
		minLen = DefaultMinTextLength
	}
	if n := utf8.RuneCountInString(res.Text); n < minLen {
		return &extract.Error{
			Kind:    extract.KindNoExtractableText,
			Message: fmt.Sprintf("extracted text has %d characters, need at least %d", n, minLen),
		}
	}
	if p.Validator != nil {
		if err := p.Validator.Validate(res); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) recordFailure(ctx context.Context, out Outcome, cause error) {
	if p.Repo == nil {
		return
	}
	kind := string(extract.KindOf(cause))
	if kind == "" {
		kind = "Internal"
	}
	// the extraction context may already be cancelled; the record should still land
	if err := p.Repo.FinishFailure(context.WithoutCancel(ctx), out.ExtractionID, out.Status, kind, cause.Error()); err != nil {
		p.Logger.Error("failed to record extraction failure", "extraction_id", out.ExtractionID, "error", err)
	}
}

func (p *Pipeline) previousSuccess(ctx context.Context, hash string) (*entity.Extraction, bool) {
	prev, err := p.Repo.FindByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			p.Logger.Warn("dedupe lookup failed", "error", err)
		}
		return nil, false
	}
	return prev, prev.Status == constants.JobStatusOK && prev.Text != nil
}

func resultFromRecord(rec *entity.Extraction) extract.Result {
	res := extract.Result{Warnings: rec.Warnings}
	if rec.Text != nil {
		res.Text = *rec.Text
	}
	if rec.Confidence != nil {
		res.Confidence = *rec.Confidence
	}
	if rec.PageCount != nil {
		res.PageCount = *rec.PageCount
	}
	if rec.ProcessingTimeMs != nil {
		res.ProcessingTimeMs = *rec.ProcessingTimeMs
	}
	if rec.SourceKind != nil {
		res.SourceKind = *rec.SourceKind
	}
	if rec.Strategy != nil {
		res.Strategy = *rec.Strategy
	}
	return res
}

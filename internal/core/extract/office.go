package extract

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/core/office"
)

type OfficeStrategy struct {
	logger *slog.Logger
}

func NewOfficeStrategy(logger *slog.Logger) *OfficeStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &OfficeStrategy{logger: logger}
}

func (s *OfficeStrategy) Name() string { return "office" }

func (s *OfficeStrategy) CanHandle(f *File) bool { return claims(f, constants.DOCX) }

func (s *OfficeStrategy) Execute(ctx context.Context, f *File, progress ProgressFunc, _ string) (Result, error) {
	tr := newTracker(progress)
	tr.report(10)

	text, err := office.DocxText(ctx, f.Data)
	if errors.Is(err, office.ErrEmptyDocument) {
		e := noExtractableText("document")
		e.Cause = err
		return Result{}, e
	}
	if err != nil {
		return Result{}, err
	}

	tr.done()
	return Result{
		Text:       text,
		Confidence: 100,
		SourceKind: constants.SourceDOCX,
		Strategy:   "docx-markup",
	}, nil
}

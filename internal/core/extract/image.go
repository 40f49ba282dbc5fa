package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/core/imaging"
	"github.com/joseph-ayodele/doctext/internal/core/ocr"
)

type ImageStrategy struct {
	ocr    ocr.Factory
	cfg    Config
	logger *slog.Logger
}

func NewImageStrategy(factory ocr.Factory, cfg Config, logger *slog.Logger) *ImageStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageStrategy{ocr: factory, cfg: cfg.WithDefaults(), logger: logger}
}

func (s *ImageStrategy) Name() string { return "image" }

func (s *ImageStrategy) CanHandle(f *File) bool { return claims(f, constants.IMAGE) }

func (s *ImageStrategy) Execute(ctx context.Context, f *File, progress ProgressFunc, _ string) (Result, error) {
	if f.Size > s.cfg.MaxImageSize {
		return Result{}, fileTooLarge(f.Size, s.cfg.MaxImageSize)
	}
	if s.ocr == nil {
		return Result{}, errors.New("no ocr engine configured")
	}
	tr := newTracker(progress)
	tr.report(0)

	img, format, err := imaging.Decode(f.Data)
	if err != nil {
		return Result{}, err
	}
	preview := imaging.DataURL(previewMIME(f.MIMEType, format), f.Data)

	prepped, err := imaging.EncodePNG(imaging.Preprocess(img, s.cfg.Image))
	if err != nil {
		return Result{}, err
	}
	tr.report(30)

	eng, err := s.ocr(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("start ocr engine: %w", err)
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			s.logger.Warn("failed to close ocr engine", "file", f.Name, "error", cerr)
		}
	}()

	rec, err := eng.Recognize(ctx, prepped, func(fr float64) { tr.scaled(30, 100, fr) })
	if err != nil {
		return Result{}, fmt.Errorf("recognize: %w", err)
	}
	text := strings.TrimSpace(rec.Text)
	if text == "" {
		return Result{}, noExtractableText("image")
	}

	tr.done()
	return Result{
		Text:         text,
		Confidence:   clampConfidence(rec.Confidence),
		SourceKind:   constants.SourceImage,
		Strategy:     "image-ocr:" + eng.Name(),
		PreviewImage: preview,
	}, nil
}

func previewMIME(declared, format string) string {
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return "image/" + format
}

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// GosseractEngine recognizes text through libtesseract. The underlying client is
// stateful, so an engine must not be shared between extraction calls.
type GosseractEngine struct {
	client *gosseract.Client
	logger *slog.Logger
}

func NewGosseractEngine(cfg Config, logger *slog.Logger) (*GosseractEngine, error) {
	c := gosseract.NewClient()
	if err := c.SetLanguage(strings.Split(cfg.Lang, "+")...); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(cfg.PSM)); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("set page seg mode: %w", err)
		}
	}
	return &GosseractEngine{client: c, logger: logger}, nil
}

func (e *GosseractEngine) Name() string { return "tesseract" }

func (e *GosseractEngine) Recognize(ctx context.Context, image []byte, progress ProgressFunc) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}
	report(progress, 0)
	if err := e.client.SetImageFromBytes(image); err != nil {
		return Recognition{}, fmt.Errorf("set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("recognize text: %w", err)
	}
	report(progress, 0.8)

	conf := e.meanWordConfidence()
	report(progress, 1)
	return Recognition{Text: Normalize(text), Confidence: conf}, nil
}

// meanWordConfidence averages per-word confidence; 0 when no words were boxed.
func (e *GosseractEngine) meanWordConfidence() float64 {
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		e.logger.Warn("word confidence unavailable", "error", err)
		return 0
	}
	if len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}

func (e *GosseractEngine) Close() error {
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/doctext/internal/core/ocr"
	"github.com/joseph-ayodele/doctext/internal/core/pdfdoc"
)

// PDFSource opens documents with pdfdoc.
type PDFSource struct {
	Config pdfdoc.Config
}

func (s PDFSource) Open(ctx context.Context, data []byte, password string) (Pages, error) {
	doc, err := pdfdoc.Open(ctx, data, password, s.Config)
	if err != nil {
		if errors.Is(err, pdfdoc.ErrEncrypted) {
			return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return nil, err
	}
	return doc, nil
}

// NewDefault wires every strategy in priority order:
// pdf, office, spreadsheet, text, image.
func NewDefault(cfg Config, factory ocr.Factory, pdfCfg pdfdoc.Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.WithDefaults()
	if pdfCfg.Logger == nil {
		pdfCfg.Logger = logger
	}
	strategies := []Strategy{
		NewPDFStrategy(PDFSource{Config: pdfCfg}, factory, cfg, logger),
		NewOfficeStrategy(logger),
		NewSpreadsheetStrategy(logger),
		NewTextStrategy(),
		NewImageStrategy(factory, cfg, logger),
	}
	return NewDispatcher(strategies, WithMaxFileSize(cfg.MaxFileSize), WithLogger(logger))
}

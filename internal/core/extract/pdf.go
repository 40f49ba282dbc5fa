package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/core/imaging"
	"github.com/joseph-ayodele/doctext/internal/core/ocr"
)

// Pages is an open paginated document. Page numbers are 1-indexed.
type Pages interface {
	Count() int
	Text(ctx context.Context, page int) (string, error)
	Render(ctx context.Context, page, dpi int) ([]byte, error)
	Close() error
}

// PageSource opens paginated documents. Errors wrap ErrEncrypted when the
// password is missing or wrong.
type PageSource interface {
	Open(ctx context.Context, data []byte, password string) (Pages, error)
}

const largeScannedPlaceholder = "This appears to be a scanned document with %d pages. " +
	"In-process OCR is not supported for scanned documents over %d pages; " +
	"split the document or upload individual page images instead."

type PDFStrategy struct {
	source PageSource
	ocr    ocr.Factory
	cfg    Config
	logger *slog.Logger
}

func NewPDFStrategy(source PageSource, factory ocr.Factory, cfg Config, logger *slog.Logger) *PDFStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFStrategy{source: source, ocr: factory, cfg: cfg.WithDefaults(), logger: logger}
}

func (s *PDFStrategy) Name() string { return "pdf" }

func (s *PDFStrategy) CanHandle(f *File) bool { return claims(f, constants.PDF) }

func (s *PDFStrategy) Execute(ctx context.Context, f *File, progress ProgressFunc, password string) (Result, error) {
	tr := newTracker(progress)
	tr.report(0)
	logger := s.logger.With("file", f.Name)

	doc, err := s.source.Open(ctx, f.Data, password)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			logger.Warn("failed to close pdf", "error", cerr)
		}
	}()

	n := doc.Count()
	if n <= 0 {
		return Result{}, errors.New("pdf has no pages")
	}

	var warns []string
	preview, err := s.preview(ctx, doc)
	if err != nil {
		logger.Warn("preview render failed", "error", err)
		warns = append(warns, "preview unavailable: "+err.Error())
	}

	texts, pageWarns, err := s.textLayer(ctx, doc, n, tr)
	if err != nil {
		return Result{}, err
	}
	warns = append(warns, pageWarns...)

	res := Result{
		Confidence:   100,
		PageCount:    n,
		SourceKind:   constants.SourcePDFDigital,
		Strategy:     "pdf-text-layer",
		PreviewImage: preview,
	}
	text := joinPages(texts)

	var ocrErr error
	if s.isScanned(texts) {
		res.SourceKind = constants.SourcePDFScanned
		if n > s.cfg.MaxOCRDocumentPages {
			logger.Info("scanned pdf too large for ocr", "pages", n, "max_pages", s.cfg.MaxOCRDocumentPages)
			text = fmt.Sprintf(largeScannedPlaceholder, n, s.cfg.MaxOCRDocumentPages)
			res.Confidence = 0
			res.Strategy = "pdf-ocr-skipped"
		} else {
			logger.Info("pdf has no usable text layer, running ocr", "pages", n)
			ocrText, conf, label, ocrWarns, err := s.ocrPages(ctx, doc, n, tr)
			if cerr := ctx.Err(); cerr != nil {
				return Result{}, cerr
			}
			warns = append(warns, ocrWarns...)
			ocrErr = err
			if err != nil {
				logger.Warn("ocr unavailable", "error", err)
				warns = append(warns, "ocr unavailable: "+err.Error())
			}
			if strings.TrimSpace(ocrText) != "" {
				text = ocrText
				res.Confidence = conf
				res.Strategy = label
			}
		}
	}

	res.Text = strings.TrimSpace(text)
	if res.Text == "" {
		e := noExtractableText("pdf")
		e.Cause = ocrErr
		return Result{}, e
	}
	res.Warnings = warns
	tr.done()
	return res, nil
}

func (s *PDFStrategy) preview(ctx context.Context, doc Pages) (string, error) {
	png, err := doc.Render(ctx, 1, s.cfg.PreviewDPI)
	if err != nil {
		return "", err
	}
	return imaging.DataURL("image/png", png), nil
}

// textLayer reads every page in concurrent batches. Results land in a slice
// indexed by page so completion order does not matter.
func (s *PDFStrategy) textLayer(ctx context.Context, doc Pages, n int, tr *tracker) ([]string, []string, error) {
	texts := make([]string, n)
	pageErrs := make([]error, n)
	var done atomic.Int64

	for start := 1; start <= n; start += s.cfg.PageBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		end := min(start+s.cfg.PageBatchSize-1, n)

		var g errgroup.Group
		for p := start; p <= end; p++ {
			g.Go(func() error {
				t, err := doc.Text(ctx, p)
				if err != nil {
					pageErrs[p-1] = err
				} else {
					texts[p-1] = t
				}
				tr.scaled(0, 80, float64(done.Add(1))/float64(n))
				return nil
			})
		}
		_ = g.Wait()
	}

	var warns []string
	for i, err := range pageErrs {
		if err != nil {
			s.logger.Warn("page text extraction failed", "page", i+1, "error", err)
			warns = append(warns, fmt.Sprintf("page %d: %v", i+1, err))
		}
	}
	return texts, warns, nil
}

// isScanned is true when no page carries more than ScannedCharThreshold characters.
func (s *PDFStrategy) isScanned(texts []string) bool {
	for _, t := range texts {
		if len([]rune(strings.TrimSpace(t))) > s.cfg.ScannedCharThreshold {
			return false
		}
	}
	return true
}

// ocrPages recognizes the first MaxOCRPages pages with one engine scoped to this call.
func (s *PDFStrategy) ocrPages(ctx context.Context, doc Pages, n int, tr *tracker) (text string, confidence int, label string, warns []string, err error) {
	if s.ocr == nil {
		return "", 0, "", nil, errors.New("no ocr engine configured")
	}
	eng, err := s.ocr(ctx)
	if err != nil {
		return "", 0, "", nil, fmt.Errorf("start ocr engine: %w", err)
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			s.logger.Warn("failed to close ocr engine", "error", cerr)
		}
	}()
	label = "pdf-ocr:" + eng.Name()

	limit := min(n, s.cfg.MaxOCRPages)
	if limit < n {
		warns = append(warns, fmt.Sprintf("ocr limited to the first %d of %d pages", limit, n))
	}

	var parts []string
	var confSum float64
	var recognized int
	var lastErr error
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, label, warns, err
		}
		page := i + 1
		rec, err := s.ocrPage(ctx, doc, eng, page, func(fr float64) {
			tr.scaled(80, 100, (float64(i)+fr)/float64(limit))
		})
		if err != nil {
			s.logger.Warn("page ocr failed", "page", page, "error", err)
			warns = append(warns, fmt.Sprintf("page %d ocr: %v", page, err))
			lastErr = fmt.Errorf("page %d: %w", page, err)
			continue
		}
		if t := strings.TrimSpace(rec.Text); t != "" {
			parts = append(parts, t)
		}
		confSum += rec.Confidence
		recognized++
		tr.scaled(80, 100, float64(page)/float64(limit))
	}

	if recognized == 0 {
		return "", 0, label, warns, lastErr
	}
	confidence = clampConfidence(confSum / float64(recognized))
	return strings.Join(parts, "\n\n"), confidence, label, warns, nil
}

func (s *PDFStrategy) ocrPage(ctx context.Context, doc Pages, eng ocr.Engine, page int, progress ocr.ProgressFunc) (ocr.Recognition, error) {
	raster, err := doc.Render(ctx, page, s.cfg.OCRDPI)
	if err != nil {
		return ocr.Recognition{}, err
	}
	prepped, err := imaging.PrepareForOCR(raster, s.cfg.Image)
	if err != nil {
		return ocr.Recognition{}, err
	}
	return eng.Recognize(ctx, prepped, progress)
}

func joinPages(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

func clampConfidence(c float64) int {
	r := int(math.Round(c))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}

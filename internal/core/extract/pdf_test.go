package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doctext/constants"
)

func pdfFile() *File {
	return NewFile("doc.pdf", "", []byte("%PDF-1.7 stub"))
}

func TestPDF_TenPageDigitalDocument(t *testing.T) {
	pages := &fakePages{
		texts:  pageTexts(10, func(i int) string { return fmt.Sprintf("Page %d has a normal paragraph of body text.", i) }),
		raster: pngBytes(t, 20, 20),
	}
	var stats engineStats
	s := NewPDFStrategy(&fakeSource{pages: pages}, fakeFactory(&stats, fakeEngine{text: "ocr"}), Config{}, nil)
	d := NewDispatcher([]Strategy{s})

	var log progressLog
	res, err := d.Extract(context.Background(), pdfFile(), log.fn, "")
	require.NoError(t, err)

	assert.Equal(t, 10, res.PageCount)
	assert.Equal(t, 100, res.Confidence)
	assert.Equal(t, constants.SourcePDFDigital, res.SourceKind)
	assert.Equal(t, "pdf-text-layer", res.Strategy)
	assert.True(t, strings.HasPrefix(res.PreviewImage, "data:image/png;base64,"))
	assert.Contains(t, res.Text, "Page 1 has")
	assert.Contains(t, res.Text, "Page 10 has")
	assert.Zero(t, stats.created.Load(), "digital pdf must not start ocr")
	assert.Equal(t, []int{1}, pages.rendered)
	assert.True(t, pages.closed)
	log.requireMonotonicTo100(t)
}

func TestPDF_PageOrderSurvivesOutOfOrderCompletion(t *testing.T) {
	pages := &fakePages{
		texts:  pageTexts(12, func(i int) string { return fmt.Sprintf("section-%02d with enough characters", i) }),
		raster: pngBytes(t, 4, 4),
		// earlier pages in a batch finish last
		delay: func(page int) time.Duration { return time.Duration(13-page) * time.Millisecond },
	}
	s := NewPDFStrategy(&fakeSource{pages: pages}, nil, Config{PageBatchSize: 4}, nil)

	res, err := s.Execute(context.Background(), pdfFile(), nil, "")
	require.NoError(t, err)

	last := -1
	for i := 1; i <= 12; i++ {
		idx := strings.Index(res.Text, fmt.Sprintf("section-%02d", i))
		require.Greater(t, idx, last, "page %d out of order", i)
		last = idx
	}
}

func TestPDF_ScannedDocumentRunsOCR(t *testing.T) {
	pages := &fakePages{
		texts:  pageTexts(3, func(int) string { return "  12  " }),
		raster: pngBytes(t, 30, 30),
	}
	var stats engineStats
	eng := fakeEngine{text: "Recognized invoice text", confFor: func(call int32) float64 { return []float64{90, 80, 70}[call-1] }}
	s := NewPDFStrategy(&fakeSource{pages: pages}, fakeFactory(&stats, eng), Config{}, nil)

	var log progressLog
	res, err := s.Execute(context.Background(), pdfFile(), log.fn, "")
	require.NoError(t, err)

	assert.Equal(t, constants.SourcePDFScanned, res.SourceKind)
	assert.Equal(t, "pdf-ocr:fake", res.Strategy)
	assert.Equal(t, 80, res.Confidence)
	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, strings.Repeat("Recognized invoice text\n\n", 2)+"Recognized invoice text", res.Text)
	assert.EqualValues(t, 1, stats.created.Load())
	assert.EqualValues(t, 1, stats.closed.Load())
	assert.EqualValues(t, 3, stats.calls.Load())
	log.requireMonotonicTo100(t)
}

func TestPDF_OCRCappedAtMaxPages(t *testing.T) {
	pages := &fakePages{texts: make([]string, 30), raster: pngBytes(t, 8, 8)}
	var stats engineStats
	s := NewPDFStrategy(&fakeSource{pages: pages}, fakeFactory(&stats, fakeEngine{text: "scan", conf: 60}), Config{}, nil)

	res, err := s.Execute(context.Background(), pdfFile(), nil, "")
	require.NoError(t, err)
	assert.EqualValues(t, 10, stats.calls.Load())
	assert.Equal(t, 30, res.PageCount)
	assert.Contains(t, res.Warnings, "ocr limited to the first 10 of 30 pages")
}

func TestPDF_LargeScannedDocumentGetsPlaceholder(t *testing.T) {
	pages := &fakePages{texts: make([]string, 51), raster: pngBytes(t, 8, 8)}
	var stats engineStats
	s := NewPDFStrategy(&fakeSource{pages: pages}, fakeFactory(&stats, fakeEngine{text: "scan"}), Config{}, nil)

	res, err := s.Execute(context.Background(), pdfFile(), nil, "")
	require.NoError(t, err)
	assert.Zero(t, stats.created.Load())
	assert.Equal(t, constants.SourcePDFScanned, res.SourceKind)
	assert.Contains(t, res.Text, "51 pages")
	assert.Contains(t, res.Text, "not supported")
	assert.Equal(t, 0, res.Confidence)
}

func TestPDF_BlankScanHasNoText(t *testing.T) {
	pages := &fakePages{texts: make([]string, 2), raster: pngBytes(t, 8, 8)}
	var stats engineStats
	s := NewPDFStrategy(&fakeSource{pages: pages}, fakeFactory(&stats, fakeEngine{text: "   "}), Config{}, nil)

	_, err := s.Execute(context.Background(), pdfFile(), nil, "")
	require.Error(t, err)
	assert.Equal(t, KindNoExtractableText, KindOf(err))
	assert.EqualValues(t, 1, stats.closed.Load())
}

func TestPDF_EveryPageRenderFailureIsTheCause(t *testing.T) {
	renderErr := errors.New("pdftoppm: exit status 99")
	pages := &fakePages{texts: make([]string, 3), renderErr: renderErr}
	var stats engineStats
	s := NewPDFStrategy(&fakeSource{pages: pages}, fakeFactory(&stats, fakeEngine{text: "unused"}), Config{}, nil)

	_, err := s.Execute(context.Background(), pdfFile(), nil, "")
	require.Error(t, err)
	assert.Equal(t, KindNoExtractableText, KindOf(err))
	require.ErrorIs(t, err, renderErr)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Contains(t, e.Cause.Error(), "page 3")
	assert.Zero(t, stats.calls.Load())
}

func TestPDF_OCRUnavailableKeepsThinTextLayer(t *testing.T) {
	pages := &fakePages{texts: []string{"Total: 42"}, raster: pngBytes(t, 8, 8)}
	s := NewPDFStrategy(&fakeSource{pages: pages}, failingFactory(), Config{}, nil)

	res, err := s.Execute(context.Background(), pdfFile(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "Total: 42", res.Text)
	assert.Equal(t, "pdf-text-layer", res.Strategy)
	assert.Equal(t, constants.SourcePDFScanned, res.SourceKind)
	require.NotEmpty(t, res.Warnings)
}

func TestPDF_NonEssentialFailuresBecomeWarnings(t *testing.T) {
	pages := &fakePages{
		texts:     pageTexts(3, func(i int) string { return fmt.Sprintf("Readable digital page number %d here", i) }),
		renderErr: errors.New("pdftoppm missing"),
		textErr:   map[int]error{2: errors.New("bad content stream")},
	}
	s := NewPDFStrategy(&fakeSource{pages: pages}, nil, Config{}, nil)

	res, err := s.Execute(context.Background(), pdfFile(), nil, "")
	require.NoError(t, err)
	assert.Empty(t, res.PreviewImage)
	assert.NotContains(t, res.Text, "number 2")
	assert.Contains(t, res.Text, "number 3")
	assert.Len(t, res.Warnings, 2)
}

func TestPDF_PasswordFlow(t *testing.T) {
	newDispatcher := func() *Dispatcher {
		pages := &fakePages{texts: []string{"Confidential salary statement for March"}, raster: pngBytes(t, 4, 4)}
		var stats engineStats
		src := &fakeSource{pages: pages, password: "s3cret"}
		return NewDispatcher([]Strategy{
			NewPDFStrategy(src, fakeFactory(&stats, fakeEngine{text: "x"}), Config{}, nil),
			NewImageStrategy(fakeFactory(&stats, fakeEngine{text: "x"}), Config{}, nil),
		})
	}

	_, err := newDispatcher().Extract(context.Background(), pdfFile(), nil, "")
	assert.Equal(t, KindPasswordRequired, KindOf(err))

	_, err = newDispatcher().Extract(context.Background(), pdfFile(), nil, "guess")
	assert.Equal(t, KindIncorrectPassword, KindOf(err))

	res, err := newDispatcher().Extract(context.Background(), pdfFile(), nil, "s3cret")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "salary statement")

	// size gate still applies first
	big := pdfFile()
	big.Size = constants.MaxFileSize + 1
	_, err = newDispatcher().Extract(context.Background(), big, nil, "")
	assert.Equal(t, KindFileTooLarge, KindOf(err))
}

func TestPDF_OpenFailureIsNotAPasswordError(t *testing.T) {
	s := NewPDFStrategy(&fakeSource{openErr: errors.New("malformed pdf")}, nil, Config{}, nil)
	d := NewDispatcher([]Strategy{s})

	_, err := d.Extract(context.Background(), pdfFile(), nil, "")
	assert.Equal(t, KindAllStrategiesFailed, KindOf(err))
	assert.Contains(t, err.Error(), "malformed pdf")
}

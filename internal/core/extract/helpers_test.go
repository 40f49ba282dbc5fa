package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doctext/internal/core/imaging"
	"github.com/joseph-ayodele/doctext/internal/core/ocr"
	"github.com/joseph-ayodele/doctext/internal/core/pdfdoc"
)

func pdfdocConfigForTests() pdfdoc.Config {
	return pdfdoc.Config{Pdftoppm: "pdftoppm-not-used-in-tests"}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	b, err := imaging.EncodePNG(img)
	require.NoError(t, err)
	return b
}

// fakePages is an in-memory paginated document.
type fakePages struct {
	texts     []string
	raster    []byte
	renderErr error
	textErr   map[int]error
	delay     func(page int) time.Duration

	mu       sync.Mutex
	rendered []int
	closed   bool
}

func (p *fakePages) Count() int { return len(p.texts) }

func (p *fakePages) Text(_ context.Context, page int) (string, error) {
	if p.delay != nil {
		time.Sleep(p.delay(page))
	}
	if err := p.textErr[page]; err != nil {
		return "", err
	}
	return p.texts[page-1], nil
}

func (p *fakePages) Render(_ context.Context, page, _ int) ([]byte, error) {
	p.mu.Lock()
	p.rendered = append(p.rendered, page)
	p.mu.Unlock()
	if p.renderErr != nil {
		return nil, p.renderErr
	}
	return p.raster, nil
}

func (p *fakePages) Close() error {
	p.closed = true
	return nil
}

// fakeSource hands out pages, demanding password when set.
type fakeSource struct {
	pages    *fakePages
	password string
	openErr  error
}

func (s *fakeSource) Open(_ context.Context, _ []byte, password string) (Pages, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	if s.password != "" && password != s.password {
		return nil, fmt.Errorf("%w: bad or missing password", ErrEncrypted)
	}
	return s.pages, nil
}

type fakeEngine struct {
	text    string
	conf    float64
	err     error
	calls   *atomic.Int32
	closed  *atomic.Int32
	confFor func(call int32) float64
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Recognize(_ context.Context, img []byte, progress ocr.ProgressFunc) (ocr.Recognition, error) {
	n := e.calls.Add(1)
	if _, _, err := imaging.Decode(img); err != nil {
		return ocr.Recognition{}, err
	}
	if progress != nil {
		progress(0.25)
		progress(0.75)
		progress(1)
	}
	if e.err != nil {
		return ocr.Recognition{}, e.err
	}
	conf := e.conf
	if e.confFor != nil {
		conf = e.confFor(n)
	}
	return ocr.Recognition{Text: e.text, Confidence: conf}, nil
}

func (e *fakeEngine) Close() error {
	e.closed.Add(1)
	return nil
}

type engineStats struct {
	created atomic.Int32
	calls   atomic.Int32
	closed  atomic.Int32
}

func fakeFactory(stats *engineStats, tmpl fakeEngine) ocr.Factory {
	return func(context.Context) (ocr.Engine, error) {
		stats.created.Add(1)
		e := tmpl
		e.calls = &stats.calls
		e.closed = &stats.closed
		return &e, nil
	}
}

func failingFactory() ocr.Factory {
	return func(context.Context) (ocr.Engine, error) {
		return nil, errors.New("tesseract not installed")
	}
}

// progressLog records every value a strategy reports.
type progressLog struct {
	mu     sync.Mutex
	values []int
}

func (l *progressLog) fn(p int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values = append(l.values, p)
}

func (l *progressLog) requireMonotonicTo100(t *testing.T) {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotEmpty(t, l.values)
	for i := 1; i < len(l.values); i++ {
		require.GreaterOrEqual(t, l.values[i], l.values[i-1], "progress went backwards: %v", l.values)
	}
	require.Equal(t, 100, l.values[len(l.values)-1], "progress: %v", l.values)
}

func pageTexts(n int, f func(i int) string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = f(i + 1)
	}
	return out
}

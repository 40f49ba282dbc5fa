package extract

import "sync"

// tracker forwards progress clamped to [0, 100] and never lets it go backwards.
// Safe for concurrent use by page batches.
type tracker struct {
	mu   sync.Mutex
	last int
	fn   ProgressFunc
}

func newTracker(fn ProgressFunc) *tracker {
	return &tracker{last: -1, fn: fn}
}

func (t *tracker) report(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if p <= t.last {
		return
	}
	t.last = p
	if t.fn != nil {
		t.fn(p)
	}
}

// scaled maps fraction done (0..1) into [from, to].
func (t *tracker) scaled(from, to int, fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	t.report(from + int(float64(to-from)*fraction))
}

func (t *tracker) done() { t.report(100) }

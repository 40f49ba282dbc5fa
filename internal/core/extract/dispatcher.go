package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/doctext/constants"
)

// Dispatcher runs the capable strategies for a file in priority order.
type Dispatcher struct {
	strategies  []Strategy
	maxFileSize int64
	logger      *slog.Logger
}

type Option func(*Dispatcher)

func WithMaxFileSize(n int64) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxFileSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher keeps strategies in the given order; earlier ones win.
func NewDispatcher(strategies []Strategy, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		strategies:  strategies,
		maxFileSize: constants.MaxFileSize,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Candidates lists the strategies that claim f, in priority order.
func (d *Dispatcher) Candidates(f *File) []Strategy {
	var out []Strategy
	for _, s := range d.strategies {
		if s.CanHandle(f) {
			out = append(out, s)
		}
	}
	return out
}

// Extract returns the first successful strategy result. Password failures abort
// immediately; every other failure moves on to the next candidate.
func (d *Dispatcher) Extract(ctx context.Context, f *File, onProgress ProgressFunc, password string) (Result, error) {
	if f == nil {
		return Result{}, errors.New("nil file")
	}
	if f.Size > d.maxFileSize {
		return Result{}, fileTooLarge(f.Size, d.maxFileSize)
	}

	candidates := d.Candidates(f)
	if len(candidates) == 0 {
		return Result{}, unsupportedFileType(f.MIMEType, f.Name)
	}

	logger := d.logger.With("file", f.Name, "mime", f.MIMEType, "size", f.Size)

	var lastErr error
	for _, s := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		tr := newTracker(onProgress)
		start := time.Now()
		logger.Debug("running strategy", "strategy", s.Name())

		res, err := s.Execute(ctx, f, tr.report, password)
		dur := time.Since(start)
		if err == nil {
			tr.done()
			res.ProcessingTimeMs = dur.Milliseconds()
			logger.Info("extraction succeeded",
				"strategy", s.Name(),
				"label", res.Strategy,
				"chars", len(res.Text),
				"confidence", res.Confidence,
				"duration_ms", res.ProcessingTimeMs,
			)
			return res, nil
		}

		if errors.Is(err, ErrEncrypted) {
			if password == "" {
				logger.Info("document requires a password", "strategy", s.Name())
				return Result{}, &Error{Kind: KindPasswordRequired, Message: "document is password protected", Cause: err}
			}
			logger.Info("supplied password rejected", "strategy", s.Name())
			return Result{}, &Error{Kind: KindIncorrectPassword, Message: "incorrect password", Cause: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}

		logger.Warn("strategy failed, trying next", "strategy", s.Name(), "duration_ms", dur.Milliseconds(), "error", err)
		lastErr = fmt.Errorf("%s: %w", s.Name(), err)
	}

	return Result{}, &Error{
		Kind:    KindAllStrategiesFailed,
		Message: lastErr.Error(),
		Cause:   lastErr,
	}
}

package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/doctext/internal/entity"
)

const (
	sheetName = "Extractions"
	// excelize rejects cell values longer than this
	maxCellChars = 32767
	previewChars = 500
)

// Lister is satisfied by repository.ExtractionRepository.
type Lister interface {
	List(ctx context.Context, from, to *time.Time) ([]entity.Extraction, error)
}

// Service produces XLSX bytes of the extraction history.
type Service struct {
	repo   Lister
	logger *slog.Logger
}

func NewService(repo Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportXLSX returns a workbook of extractions started in the given date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> everything.
func (s *Service) ExportXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()
	lo, hi := window(from, to, time.Now())

	recs, err := s.repo.List(ctx, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	headers := []string{
		"Started At",
		"File",
		"Path",
		"Status",
		"Source Kind",
		"Strategy",
		"Confidence",
		"Pages",
		"Processing (ms)",
		"Warnings",
		"Error",
		"Text Preview",
		"Content Hash",
	}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, err
	}

	for i, r := range recs {
		row := []any{
			r.StartedAt.UTC().Format(time.RFC3339),
			r.FileName,
			r.FilePath,
			string(r.Status),
			deref(r.SourceKind),
			deref(r.Strategy),
			derefInt(r.Confidence),
			derefInt(r.PageCount),
			derefInt64(r.ProcessingTimeMs),
			strings.Join(r.Warnings, "; "),
			errorCell(r),
			truncate(deref(r.Text), previewChars),
			r.ContentHash,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 22) // started
	_ = f.SetColWidth(sheetName, "B", "B", 28) // file
	_ = f.SetColWidth(sheetName, "C", "C", 48) // path
	_ = f.SetColWidth(sheetName, "D", "F", 18)
	_ = f.SetColWidth(sheetName, "L", "L", 60) // preview

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// window turns inclusive calendar dates into a half-open UTC range.
func window(from, to *time.Time, now time.Time) (*time.Time, *time.Time) {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	var lo, hi *time.Time
	if from != nil {
		f := day(*from)
		lo = &f
	}
	if to != nil {
		t := day(*to).AddDate(0, 0, 1)
		hi = &t
	} else if from != nil {
		t := day(now.UTC()).AddDate(0, 0, 1)
		hi = &t
	}
	return lo, hi
}

func errorCell(r entity.Extraction) string {
	kind, msg := deref(r.ErrorKind), deref(r.ErrorMessage)
	if kind == "" {
		return msg
	}
	return kind + ": " + msg
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt(p *int) any {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt64(p *int64) any {
	if p == nil {
		return ""
	}
	return *p
}

func truncate(s string, n int) string {
	if n > maxCellChars {
		n = maxCellChars
	}
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

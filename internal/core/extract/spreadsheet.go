package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/core/sheet"
)

type SpreadsheetStrategy struct {
	logger *slog.Logger
}

func NewSpreadsheetStrategy(logger *slog.Logger) *SpreadsheetStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpreadsheetStrategy{logger: logger}
}

func (s *SpreadsheetStrategy) Name() string { return "spreadsheet" }

func (s *SpreadsheetStrategy) CanHandle(f *File) bool { return claims(f, constants.SPREADSHEET) }

func isLegacyXLS(f *File) bool {
	return f.Ext() == "xls" || (f.Ext() != "xlsx" && f.MIMEType == constants.MIMEXLS)
}

func (s *SpreadsheetStrategy) Execute(ctx context.Context, f *File, progress ProgressFunc, _ string) (Result, error) {
	tr := newTracker(progress)
	tr.report(0)

	var (
		sheets []sheet.Sheet
		err    error
		label  = "spreadsheet-xlsx"
	)
	if isLegacyXLS(f) {
		label = "spreadsheet-xls"
		sheets, err = sheet.ReadXLS(f.Data)
	} else {
		sheets, err = sheet.ReadXLSX(f.Data)
	}
	if err != nil {
		return Result{}, err
	}
	if len(sheets) == 0 {
		return Result{}, noExtractableText("workbook")
	}

	blocks := make([]string, 0, len(sheets))
	var hasContent bool
	for i, sh := range sheets {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		body, err := sheet.CSV(sh.Rows)
		if err != nil {
			return Result{}, fmt.Errorf("sheet %q: %w", sh.Name, err)
		}
		if strings.TrimSpace(body) != "" {
			hasContent = true
		}
		blocks = append(blocks, sheet.Block(sh.Name, body))
		tr.scaled(0, 100, float64(i+1)/float64(len(sheets)))
	}
	if !hasContent {
		return Result{}, noExtractableText("workbook")
	}

	tr.done()
	return Result{
		Text:       strings.TrimSpace(strings.Join(blocks, "\n\n")),
		Confidence: 100,
		SourceKind: constants.SourceExcel,
		Strategy:   label,
	}, nil
}

package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/entity"
)

type stubLister struct {
	recs     []entity.Extraction
	err      error
	from, to *time.Time
}

func (s *stubLister) List(_ context.Context, from, to *time.Time) ([]entity.Extraction, error) {
	s.from, s.to = from, to
	return s.recs, s.err
}

func ptr[T any](v T) *T { return &v }

func TestExportXLSX(t *testing.T) {
	started := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	lister := &stubLister{recs: []entity.Extraction{
		{
			FileName:    "invoice.pdf",
			FilePath:    "/in/invoice.pdf",
			ContentHash: "abc",
			Status:      constants.JobStatusOK,
			StartedAt:   started,
			SourceKind:  ptr(constants.SourcePDFDigital),
			Strategy:    ptr("pdf-text-layer"),
			Confidence:  ptr(100),
			PageCount:   ptr(3),
			Text:        ptr(strings.Repeat("x", 600)),
			Warnings:    []string{"preview failed", "page 2 failed"},
		},
		{
			FileName:     "locked.pdf",
			Status:       constants.JobStatusNeedsPassword,
			StartedAt:    started,
			ErrorKind:    ptr("PasswordRequired"),
			ErrorMessage: ptr("document is password protected"),
		},
	}}

	data, err := NewService(lister, nil).ExportXLSX(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, lister.from)
	assert.Nil(t, lister.to)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Started At", rows[0][0])
	assert.Equal(t, "2026-03-04T10:30:00Z", rows[1][0])
	assert.Equal(t, "OK", rows[1][3])
	assert.Equal(t, "PDF (Digital)", rows[1][4])
	assert.Equal(t, "100", rows[1][6])
	assert.Equal(t, "preview failed; page 2 failed", rows[1][9])
	assert.Equal(t, previewChars, len([]rune(rows[1][11])))
	assert.Equal(t, "NEEDS_PASSWORD", rows[2][3])
	assert.Equal(t, "PasswordRequired: document is password protected", rows[2][10])
}

func TestExportXLSX_RepoError(t *testing.T) {
	_, err := NewService(&stubLister{err: errors.New("db down")}, nil).ExportXLSX(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestWindow(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	from := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	to := time.Date(2026, 5, 3, 23, 0, 0, 0, time.UTC)

	lo, hi := window(&from, nil, now)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), *lo)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), *hi)

	lo, hi = window(nil, &to, now)
	assert.Nil(t, lo)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), *hi)

	lo, hi = window(nil, nil, now)
	assert.Nil(t, lo)
	assert.Nil(t, hi)
}

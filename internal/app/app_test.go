package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/pipeline"
	"github.com/joseph-ayodele/doctext/internal/repository"
)

func testConfig() *common.Config {
	cfg := &common.Config{}
	cfg.Database.InMemory = true
	cfg.Server.GRPCAddr = ":0"
	cfg.OCR.Engine = "cli"
	cfg.OCR.DPI = 200
	cfg.Extraction = common.ExtractionConfig{
		MaxFileSizeMB:       5,
		MaxImageSizeMB:      2,
		MaxOCRDocumentPages: 20,
		MaxOCRPages:         4,
		BinarizeThreshold:   140,
		MinTextLength:       10,
	}
	return cfg
}

func TestExtractConfig(t *testing.T) {
	c := ExtractConfig(testConfig())
	assert.Equal(t, int64(5<<20), c.MaxFileSize)
	assert.Equal(t, int64(2<<20), c.MaxImageSize)
	assert.Equal(t, 4, c.MaxOCRPages)
	assert.Equal(t, 20, c.MaxOCRDocumentPages)
	assert.Equal(t, 200, c.OCRDPI)
	assert.Equal(t, uint8(140), c.Image.Threshold)
	assert.Equal(t, 8, c.PageBatchSize)
	assert.Equal(t, 20, c.ScannedCharThreshold)
}

func TestBuild_RejectsUnknownOCRBackend(t *testing.T) {
	cfg := testConfig()
	cfg.OCR.Engine = "cloud"
	_, err := Build(cfg, nil, nil)
	require.Error(t, err)
}

func TestBuild_ExtractsAndRecordsText(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	dbres, err := common.InitDatabase(ctx, cfg, false, nil)
	require.NoError(t, err)
	t.Cleanup(dbres.Cleanup)
	repo := repository.NewExtractionRepository(dbres.DB, nil)

	stack, err := Build(cfg, repo, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,qty\nwidget,3\n"), 0o600))

	out, err := stack.Pipeline.Run(ctx, pipeline.Request{Path: path})
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusOK, out.Status)
	assert.Equal(t, constants.SourceCSV, out.Result.SourceKind)
	assert.Equal(t, 100, out.Result.Confidence)

	id, err := stack.Processor.ProcessFile(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, out.ExtractionID, id)

	recs, err := repo.List(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

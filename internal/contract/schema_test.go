package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doctext/internal/core/extract"
)

func TestValidate_AcceptsResult(t *testing.T) {
	v, err := NewValidator(10)
	require.NoError(t, err)

	err = v.Validate(extract.Result{
		Text:             "A paragraph of extracted text",
		Confidence:       100,
		PageCount:        3,
		ProcessingTimeMs: 12,
		SourceKind:       "PDF (Digital)",
		Strategy:         "pdf-text-layer",
		PreviewImage:     "data:image/png;base64,AAAA",
	})
	assert.NoError(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	v, err := NewValidator(10)
	require.NoError(t, err)

	base := extract.Result{Text: "long enough text", Confidence: 90, SourceKind: "Image", Strategy: "image-ocr:tesseract"}

	short := base
	short.Text = "too short"
	assert.Error(t, v.Validate(short))

	badKind := base
	badKind.SourceKind = "Spreadsheet"
	assert.Error(t, v.Validate(badKind))

	badConf := base
	badConf.Confidence = 101
	assert.Error(t, v.Validate(badConf))

	badPreview := base
	badPreview.PreviewImage = "iVBORw0KGgo="
	assert.Error(t, v.Validate(badPreview))

	assert.Error(t, v.ValidateJSON([]byte(`{"text":"long enough text","confidence":1,"processingTimeMs":0,"sourceKind":"Text","strategyLabel":"x","extra":1}`)))
}

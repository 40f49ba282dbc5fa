// Package contract validates extraction results against the JSON shape handed
// to downstream consumers (storage, summarizer, history).
package contract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/doctext/constants"
)

// BuildResultJSONSchema returns the result contract as a generic map.
func BuildResultJSONSchema(minTextLength int) map[string]any {
	if minTextLength < 1 {
		minTextLength = 1
	}
	props := map[string]any{
		"text":             map[string]any{"type": "string", "minLength": minTextLength},
		"confidence":       map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		"pageCount":        map[string]any{"type": "integer", "minimum": 1},
		"processingTimeMs": map[string]any{"type": "integer", "minimum": 0},
		"sourceKind": map[string]any{
			"type": "string",
			"enum": []string{
				constants.SourcePDFDigital, constants.SourcePDFScanned, constants.SourceDOCX,
				constants.SourceImage, constants.SourceText, constants.SourceCSV, constants.SourceExcel,
			},
		},
		"strategyLabel":    map[string]any{"type": "string", "minLength": 1},
		"previewImageData": map[string]any{"type": "string", "pattern": `^data:image/[a-z0-9.+-]+;base64,`},
		"warnings":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"text", "confidence", "processingTimeMs", "sourceKind", "strategyLabel"},
	}
}

// Validator holds a compiled result schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator(minTextLength int) (*Validator, error) {
	b, err := json.Marshal(BuildResultJSONSchema(minTextLength))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("result.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("result.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate marshals v (normally an extract.Result) and checks it against the schema.
func (v *Validator) Validate(result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return v.ValidateJSON(data)
}

func (v *Validator) ValidateJSON(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("result does not match contract: %w", err)
	}
	return nil
}

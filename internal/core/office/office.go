// Package office converts word-processing documents to plain text.
package office

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"code.sajari.com/docconv"

	"github.com/joseph-ayodele/doctext/constants"
)

var ErrEmptyDocument = errors.New("office: document has no text")

// DocxText converts a DOCX body to plain text. Paragraph breaks are kept.
func DocxText(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := docconv.Convert(bytes.NewReader(data), constants.MIMEDOCX, false)
	if err != nil {
		return "", fmt.Errorf("convert docx: %w", err)
	}
	body := strings.TrimSpace(res.Body)
	if body == "" {
		return "", ErrEmptyDocument
	}
	return body, nil
}

package extract

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/doctext/constants"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type TextStrategy struct{}

func NewTextStrategy() *TextStrategy { return &TextStrategy{} }

func (s *TextStrategy) Name() string { return "text" }

func (s *TextStrategy) CanHandle(f *File) bool { return claims(f, constants.TEXT) }

func (s *TextStrategy) Execute(_ context.Context, f *File, progress ProgressFunc, _ string) (Result, error) {
	raw := bytes.TrimPrefix(f.Data, utf8BOM)
	text := string(raw)
	if !utf8.Valid(raw) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, noExtractableText("text file")
	}

	kind := constants.SourceText
	if f.Ext() == "csv" || f.MIMEType == constants.MIMECSV {
		kind = constants.SourceCSV
	}
	if progress != nil {
		progress(100)
	}
	return Result{
		Text:       text,
		Confidence: 100,
		SourceKind: kind,
		Strategy:   "text-passthrough",
	}, nil
}

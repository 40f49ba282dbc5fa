// Package extract turns a document into text by dispatching it to the first
// capable extraction strategy and falling back to the next one on failure.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/doctext/constants"
)

// ProgressFunc receives a percentage in [0, 100].
type ProgressFunc func(percent int)

// File is the binary handle handed to the dispatcher.
type File struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// Ext returns the normalized extension of the file name, e.g. "pdf".
func (f *File) Ext() string {
	return constants.ExtOf(f.Name)
}

// NewFile builds a File from memory, resolving the MIME type when mime is empty.
func NewFile(name, mime string, data []byte) *File {
	if mime == "" {
		mime = detectMIME(name, data)
	}
	return &File{
		Name:     name,
		MIMEType: constants.NormalizeMIME(mime),
		Size:     int64(len(data)),
		Data:     data,
	}
}

// OpenFile reads a file from disk.
func OpenFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewFile(filepath.Base(path), "", data), nil
}

// detectMIME prefers the extension. Only extensionless names are sniffed; an
// unknown extension stays application/octet-stream.
func detectMIME(name string, data []byte) string {
	ext := constants.ExtOf(name)
	if m, ok := constants.MIMEForExt(ext); ok {
		return m
	}
	if ext != "" {
		return "application/octet-stream"
	}
	return http.DetectContentType(data)
}

// Result is the normalized outcome handed to downstream consumers.
type Result struct {
	Text             string   `json:"text"`
	Confidence       int      `json:"confidence"`
	PageCount        int      `json:"pageCount,omitempty"`
	ProcessingTimeMs int64    `json:"processingTimeMs"`
	SourceKind       string   `json:"sourceKind"`
	Strategy         string   `json:"strategyLabel"`
	PreviewImage     string   `json:"previewImageData,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// Strategy is one extraction technique bound to a family of file types.
type Strategy interface {
	Name() string
	// CanHandle must be pure and cheap.
	CanHandle(f *File) bool
	Execute(ctx context.Context, f *File, progress ProgressFunc, password string) (Result, error)
}

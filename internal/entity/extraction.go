package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/doctext/constants"
)

// Extraction is the history record of one extraction call.
type Extraction struct {
	ID          uuid.UUID           `json:"id"`
	FileName    string              `json:"file_name"`
	FilePath    string              `json:"file_path,omitempty"`
	ContentHash string              `json:"content_hash"`
	MIMEType    string              `json:"mime_type"`
	SizeBytes   int64               `json:"size_bytes"`
	Status      constants.JobStatus `json:"status"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`

	SourceKind       *string  `json:"source_kind,omitempty"`
	Strategy         *string  `json:"strategy,omitempty"`
	Confidence       *int     `json:"confidence,omitempty"`
	PageCount        *int     `json:"page_count,omitempty"`
	ProcessingTimeMs *int64   `json:"processing_time_ms,omitempty"`
	Text             *string  `json:"text,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`

	ErrorKind    *string `json:"error_kind,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// Outcome is what a successful extraction contributes to its record.
type Outcome struct {
	SourceKind       string
	Strategy         string
	Confidence       int
	PageCount        int
	ProcessingTimeMs int64
	Text             string
	Warnings         []string
}

package constants

// JobStatus is the canonical status for rows in the extractions table.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning       JobStatus = "RUNNING"
	JobStatusOK            JobStatus = "OK"             // text extracted and accepted
	JobStatusNeedsPassword JobStatus = "NEEDS_PASSWORD" // encrypted document, retry with a password
	JobStatusFailed        JobStatus = "FAILED"         // terminal failure
)

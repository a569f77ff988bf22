package files

import (
	"time"

	"cvbuilder/internal/sanitize"
)

// ExtractStatus tracks text extraction for an uploaded file.
type ExtractStatus string

const (
	ExtractPending ExtractStatus = "pending"
	ExtractDone    ExtractStatus = "done"
	ExtractFailed  ExtractStatus = "failed"
)

// File is an uploaded document owned by a user.
type File struct {
	ID             string
	UserID         string
	FileName       string
	MimeType       string
	SizeBytes      int64
	StorageKey     string
	ExtractedText  string
	ExtractStatus  ExtractStatus
	ExtractError   string
	SanitizeReport *sanitize.Report
	CreatedAt      time.Time
}

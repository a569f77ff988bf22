package analyses

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of an analysis.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further processing will happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Analysis is a persisted ATS review of a résumé or an uploaded file.
type Analysis struct {
	ID             string
	UserID         string
	ResumeID       string
	FileID         string
	JobDescription string
	Status         Status
	Result         json.RawMessage
	Score          *int
	ErrorCode      string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

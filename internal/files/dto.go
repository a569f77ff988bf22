package files

import (
	"time"

	"cvbuilder/internal/sanitize"
)

// FileResponse is the outward-facing representation of a file.
type FileResponse struct {
	FileID         string           `json:"fileId"`
	FileName       string           `json:"fileName"`
	MimeType       string           `json:"mimeType"`
	SizeBytes      int64            `json:"sizeBytes"`
	ExtractStatus  ExtractStatus    `json:"extractStatus"`
	ExtractError   string           `json:"extractError,omitempty"`
	SanitizeReport *sanitize.Report `json:"sanitizeReport,omitempty"`
	UploadedAt     time.Time        `json:"uploadedAt"`
}

func ToResponse(f File) FileResponse {
	return FileResponse{
		FileID:         f.ID,
		FileName:       f.FileName,
		MimeType:       f.MimeType,
		SizeBytes:      f.SizeBytes,
		ExtractStatus:  f.ExtractStatus,
		ExtractError:   f.ExtractError,
		SanitizeReport: f.SanitizeReport,
		UploadedAt:     f.CreatedAt,
	}
}

package resumes

import "time"

// ResumeResponse is the outward-facing representation of a résumé.
type ResumeResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	TemplateID  string     `json:"templateId"`
	CurrentStep int        `json:"currentStep"`
	Status      Status     `json:"status"`
	Data        ResumeData `json:"data"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ResumeSummary is a list entry without the section data.
type ResumeSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	TemplateID  string    `json:"templateId"`
	CurrentStep int       `json:"currentStep"`
	Status      Status    `json:"status"`
	Version     int       `json:"version"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ToResponse converts a résumé for JSON output.
func ToResponse(r Resume) ResumeResponse {
	r.Data.Normalize()
	return ResumeResponse{
		ID:          r.ID,
		Title:       r.Title,
		TemplateID:  r.TemplateID,
		CurrentStep: r.CurrentStep,
		Status:      r.Status,
		Data:        r.Data,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toSummary(r Resume) ResumeSummary {
	return ResumeSummary{
		ID:          r.ID,
		Title:       r.Title,
		TemplateID:  r.TemplateID,
		CurrentStep: r.CurrentStep,
		Status:      r.Status,
		Version:     r.Version,
		UpdatedAt:   r.UpdatedAt,
	}
}

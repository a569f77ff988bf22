package ai

import (
	"context"

	"cvbuilder/internal/resumes"
)

// ResumeCreator stores parsed résumé data as a new résumé.
type ResumeCreator interface {
	Import(ctx context.Context, userID, title string, data resumes.ResumeData) (resumes.Resume, error)
}

// Importer turns extracted file text into a new résumé using parse-resume.
type Importer struct {
	AI      *Service
	Resumes ResumeCreator
}

// NewImporter constructs an Importer.
func NewImporter(svc *Service, creator ResumeCreator) *Importer {
	return &Importer{AI: svc, Resumes: creator}
}

// Import parses text and creates a résumé from it. A fallback parse is
// reported as ErrParseFailed rather than stored.
func (i *Importer) Import(ctx context.Context, userID, title, text string) (any, error) {
	res, err := i.AI.Run(ctx, userID, "parse-resume", Input{Text: text})
	if err != nil {
		return nil, err
	}
	data, ok := res.Data.(resumes.ResumeData)
	if res.Fallback || !ok {
		return nil, ErrParseFailed
	}
	r, err := i.Resumes.Import(ctx, userID, title, data)
	if err != nil {
		return nil, err
	}
	return resumes.ToResponse(r), nil
}

package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	defaultTitle    = "Untitled résumé"
	maxTitleChars   = 200
	maxSaveRetries  = 3
	DefaultTemplate = "classic"
)

// Service contains business logic for résumés and the wizard.
type Service struct {
	Repo              Repo
	Validator         Validator
	Drafts            *Autosaver
	DefaultTemplateID string
	Now               func() time.Time
}

// NewService constructs a Service whose autosaves flush after delay of quiet.
func NewService(repo Repo, templates TemplateChecker, delay time.Duration) *Service {
	s := &Service{
		Repo:              repo,
		Validator:         Validator{Templates: templates},
		DefaultTemplateID: DefaultTemplate,
		Now:               time.Now,
	}
	s.Drafts = NewAutosaver(delay, s.saveDraft)
	return s
}

// CreateInput is the payload for a new résumé.
type CreateInput struct {
	Title      string      `json:"title"`
	TemplateID string      `json:"templateId"`
	Data       *ResumeData `json:"data"`
}

// UpdateInput fully replaces a résumé's editable fields. Version, when set,
// must match the stored version.
type UpdateInput struct {
	Title      string     `json:"title"`
	TemplateID string     `json:"templateId"`
	Data       ResumeData `json:"data"`
	Version    *int       `json:"version"`
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Resume, error) {
	title, err := cleanTitle(in.Title)
	if err != nil {
		return Resume{}, err
	}
	templateID, err := s.templateOrDefault(in.TemplateID)
	if err != nil {
		return Resume{}, err
	}
	now := s.now()
	r := Resume{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		TemplateID:  templateID,
		CurrentStep: StepPersonal,
		Status:      StatusDraft,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Data != nil {
		r.Data = *in.Data
	}
	r.Data.Normalize()
	if err := s.Repo.Create(ctx, r); err != nil {
		return Resume{}, fmt.Errorf("create resume: %w", err)
	}
	return r, nil
}

// Import creates a résumé from data parsed out of an uploaded document.
func (s *Service) Import(ctx context.Context, userID, title string, data ResumeData) (Resume, error) {
	if utf8.RuneCountInString(title) > maxTitleChars {
		title = string([]rune(title)[:maxTitleChars])
	}
	return s.Create(ctx, userID, CreateInput{Title: title, Data: &data})
}

// Get returns a résumé after flushing any pending autosave for it.
func (s *Service) Get(ctx context.Context, userID, id string) (Resume, error) {
	if err := s.Drafts.Flush(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return Resume{}, fmt.Errorf("flush autosave: %w", err)
	}
	r, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return Resume{}, err
	}
	r.Data.Normalize()
	return r, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	items, err := s.Repo.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Data.Normalize()
	}
	return items, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (Resume, error) {
	cur, err := s.Get(ctx, userID, id)
	if err != nil {
		return Resume{}, err
	}
	if in.Version != nil && *in.Version != cur.Version {
		return Resume{}, ErrVersionConflict
	}
	title, err := cleanTitle(in.Title)
	if err != nil {
		return Resume{}, err
	}
	templateID, err := s.templateOrDefault(in.TemplateID)
	if err != nil {
		return Resume{}, err
	}

	next := cur
	next.Title = title
	next.TemplateID = templateID
	next.Data = in.Data
	next.Data.Normalize()
	return s.store(ctx, cur, next)
}

// PatchSection replaces a single section of the résumé data.
func (s *Service) PatchSection(ctx context.Context, userID, id, section string, raw json.RawMessage) (Resume, error) {
	cur, err := s.Get(ctx, userID, id)
	if err != nil {
		return Resume{}, err
	}
	next := cur
	next.Data = cur.Data
	if err := ApplySection(&next.Data, section, raw); err != nil {
		return Resume{}, err
	}
	next.Data.Normalize()
	return s.store(ctx, cur, next)
}

// Autosave validates the draft sections and queues them for a debounced save.
func (s *Service) Autosave(ctx context.Context, userID, id string, sections map[string]json.RawMessage) error {
	if len(sections) == 0 {
		return fmt.Errorf("%w: no sections to save", ErrInvalidInput)
	}
	cur, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	scratch := cur.Data
	for name, raw := range sections {
		if err := ApplySection(&scratch, name, raw); err != nil {
			return err
		}
	}
	return s.Drafts.Queue(userID, id, sections)
}

// Steps evaluates every wizard step for the résumé.
func (s *Service) Steps(ctx context.Context, userID, id string) ([]StepState, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.Validator.States(r), nil
}

// CompleteStep validates a step and advances the wizard past it. Completing
// the review step marks the résumé complete.
func (s *Service) CompleteStep(ctx context.Context, userID, id string, step int) (Resume, error) {
	if _, ok := StepByNumber(step); !ok {
		return Resume{}, fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}
	cur, err := s.Get(ctx, userID, id)
	if err != nil {
		return Resume{}, err
	}
	errs, err := s.Validator.ValidateStep(step, cur)
	if err != nil {
		return Resume{}, err
	}
	if len(errs) > 0 {
		return Resume{}, &StepInvalidError{Step: step, Errors: errs}
	}

	next := cur
	if step == StepReview {
		next.Status = StatusComplete
	} else if step+1 > next.CurrentStep {
		next.CurrentStep = step + 1
	}
	return s.store(ctx, cur, next)
}

// Duplicate copies a résumé into a new draft.
func (s *Service) Duplicate(ctx context.Context, userID, id string) (Resume, error) {
	cur, err := s.Get(ctx, userID, id)
	if err != nil {
		return Resume{}, err
	}
	title := cur.Title + " (copy)"
	if utf8.RuneCountInString(title) > maxTitleChars {
		title = cur.Title
	}
	data := cur.Data
	return s.Create(ctx, userID, CreateInput{Title: title, TemplateID: cur.TemplateID, Data: &data})
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Repo.Get(ctx, userID, id); err != nil {
		return err
	}
	s.Drafts.Discard(id)
	return s.Repo.SoftDelete(ctx, userID, id)
}

// Text renders the résumé as plain text.
func (s *Service) Text(ctx context.Context, userID, id string) (string, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	return PlainText(r), nil
}

// ClaimGuest moves a guest's résumés, including unsaved drafts, to userID.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error) {
	if err := s.Drafts.FlushUser(ctx, guestUserID); err != nil {
		return 0, fmt.Errorf("flush guest drafts: %w", err)
	}
	return s.Repo.ClaimGuest(ctx, guestUserID, userID)
}

// DeleteAll removes every résumé of userID.
func (s *Service) DeleteAll(ctx context.Context, userID string) (int, error) {
	s.Drafts.DiscardUser(userID)
	return s.Repo.DeleteAllByUser(ctx, userID)
}

// Close flushes pending autosaves.
func (s *Service) Close(ctx context.Context) error {
	return s.Drafts.Close(ctx)
}

// saveDraft applies queued autosave sections to the stored résumé, retrying
// when a concurrent write bumped the version.
func (s *Service) saveDraft(ctx context.Context, userID, id string, sections map[string]json.RawMessage) error {
	var err error
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		var cur Resume
		cur, err = s.Repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		next := cur
		for name, raw := range sections {
			if applyErr := ApplySection(&next.Data, name, raw); applyErr != nil {
				return applyErr
			}
		}
		next.Data.Normalize()
		if _, err = s.store(ctx, cur, next); !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}
	return err
}

func (s *Service) store(ctx context.Context, cur, next Resume) (Resume, error) {
	next.Version = cur.Version + 1
	next.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, next, cur.Version); err != nil {
		return Resume{}, err
	}
	return next, nil
}

func (s *Service) templateOrDefault(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.DefaultTemplateID, nil
	}
	if s.Validator.Templates != nil && !s.Validator.Templates.Exists(id) {
		return "", fmt.Errorf("%w: unknown template %q", ErrInvalidInput, id)
	}
	return id, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return defaultTitle, nil
	}
	if utf8.RuneCountInString(title) > maxTitleChars {
		return "", fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, maxTitleChars)
	}
	return title, nil
}

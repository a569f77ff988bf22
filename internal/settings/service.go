package settings

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cvbuilder/internal/shared/server/respond"
	"cvbuilder/internal/shared/telemetry"
)

var localePattern = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

// TemplateChecker reports whether a template ID exists.
type TemplateChecker interface {
	Exists(id string) bool
}

// ValidationError lists the rejected fields of an update.
type ValidationError struct {
	Fields []respond.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// UpdateInput holds the fields of PUT /settings. Nil fields keep their value.
type UpdateInput struct {
	Locale             *string `json:"locale"`
	DefaultTemplateID  *string `json:"defaultTemplateId"`
	EmailNotifications *bool   `json:"emailNotifications"`
	MarketingEmails    *bool   `json:"marketingEmails"`
	AnalyticsOptIn     *bool   `json:"analyticsOptIn"`
	ProfileVisibility  *string `json:"profileVisibility"`
	DataRetentionDays  *int    `json:"dataRetentionDays"`
}

// Service reads and updates user settings.
type Service struct {
	Repo      Repo
	Templates TemplateChecker
	Now       func() time.Time
}

// NewService constructs a Service. templates may be nil to skip template checks.
func NewService(repo Repo, templates TemplateChecker) *Service {
	return &Service{Repo: repo, Templates: templates, Now: time.Now}
}

// Get returns the stored settings or the defaults.
func (s *Service) Get(ctx context.Context, userID string) (Settings, error) {
	if strings.TrimSpace(userID) == "" {
		return Settings{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	st, err := s.Repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Defaults(userID), nil
	}
	return st, err
}

// Update validates in, merges it onto the current settings and saves them.
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (Settings, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return Settings{}, err
	}
	next := current
	var fields []respond.FieldError

	if in.Locale != nil {
		locale := strings.TrimSpace(*in.Locale)
		if !localePattern.MatchString(locale) {
			fields = append(fields, respond.FieldError{Field: "locale", Message: "use a language code such as en or en-GB"})
		}
		next.Locale = locale
	}
	if in.DefaultTemplateID != nil {
		id := strings.TrimSpace(*in.DefaultTemplateID)
		if id != "" && s.Templates != nil && !s.Templates.Exists(id) {
			fields = append(fields, respond.FieldError{Field: "defaultTemplateId", Message: "unknown template"})
		}
		next.DefaultTemplateID = id
	}
	if in.ProfileVisibility != nil {
		v := Visibility(strings.ToLower(strings.TrimSpace(*in.ProfileVisibility)))
		if v != VisibilityPrivate && v != VisibilityLink {
			fields = append(fields, respond.FieldError{Field: "profileVisibility", Message: "must be private or link"})
		}
		next.ProfileVisibility = v
	}
	if in.DataRetentionDays != nil {
		if !retentionChoices[*in.DataRetentionDays] {
			fields = append(fields, respond.FieldError{Field: "dataRetentionDays", Message: "must be 0, 30, 90 or 365"})
		}
		next.DataRetentionDays = *in.DataRetentionDays
	}
	if in.EmailNotifications != nil {
		next.EmailNotifications = *in.EmailNotifications
	}
	if in.MarketingEmails != nil {
		next.MarketingEmails = *in.MarketingEmails
	}
	if in.AnalyticsOptIn != nil {
		next.AnalyticsOptIn = *in.AnalyticsOptIn
	}
	if len(fields) > 0 {
		return Settings{}, &ValidationError{Fields: fields}
	}

	next.UserID = userID
	next.UpdatedAt = s.now()
	if err := s.Repo.Upsert(ctx, next); err != nil {
		return Settings{}, err
	}
	telemetry.Info("settings.updated", map[string]any{
		"userId":            userID,
		"profileVisibility": string(next.ProfileVisibility),
		"retentionDays":     next.DataRetentionDays,
	})
	return next, nil
}

// DeleteUser removes a user's settings.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	return s.Repo.Delete(ctx, userID)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

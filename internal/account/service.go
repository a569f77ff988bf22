package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cvbuilder/internal/analyses"
	"cvbuilder/internal/files"
	"cvbuilder/internal/resumes"
	"cvbuilder/internal/settings"
	"cvbuilder/internal/shared/telemetry"
	"cvbuilder/internal/subscriptions"
	"cvbuilder/internal/users"
)

// ConfirmPhrase must be sent to delete an account.
const ConfirmPhrase = "DELETE"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrConfirmRequired = errors.New(`account deletion requires {"confirm":"DELETE"}`)
)

type ResumeStore interface {
	List(ctx context.Context, userID string, limit, offset int) ([]resumes.Resume, error)
	ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error)
	DeleteAll(ctx context.Context, userID string) (int, error)
}

type FileStore interface {
	List(ctx context.Context, userID string, limit, offset int) ([]files.File, error)
	ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error)
	DeleteAll(ctx context.Context, userID string) (int, error)
}

type AnalysisStore interface {
	List(ctx context.Context, userID string, limit, offset int) ([]analyses.Analysis, error)
	DeleteAll(ctx context.Context, userID string) (int, error)
}

type ProfileStore interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
	Delete(ctx context.Context, userID string) error
}

type SettingsStore interface {
	Get(ctx context.Context, userID string) (settings.Settings, error)
	DeleteUser(ctx context.Context, userID string) error
}

type SubscriptionStore interface {
	Get(ctx context.Context, userID string) (subscriptions.Snapshot, error)
	DeleteUser(ctx context.Context, userID string) error
}

type UsageStore interface {
	DeleteUser(ctx context.Context, userID string) error
}

// Service implements guest claiming, data export and account deletion.
type Service struct {
	Resumes       ResumeStore
	Files         FileStore
	Analyses      AnalysisStore
	Users         ProfileStore
	Settings      SettingsStore
	Subscriptions SubscriptionStore
	Usage         UsageStore
	Now           func() time.Time
}

type ClaimResult struct {
	MigratedResumes int `json:"migratedResumes"`
	MigratedFiles   int `json:"migratedFiles"`
}

// Export is the JSON bundle returned by GET /account/export.
type Export struct {
	ExportedAt   time.Time                           `json:"exportedAt"`
	Profile      *users.User                         `json:"profile"`
	Settings     settings.Settings                   `json:"settings"`
	Subscription *subscriptions.SubscriptionResponse `json:"subscription,omitempty"`
	Resumes      []resumes.ResumeResponse            `json:"resumes"`
	Files        []files.FileResponse                `json:"files"`
	Analyses     []analyses.Response                 `json:"analyses"`
}

type DeleteResult struct {
	DeletedResumes  int `json:"deletedResumes"`
	DeletedFiles    int `json:"deletedFiles"`
	DeletedAnalyses int `json:"deletedAnalyses"`
}

// ClaimGuest moves a guest's résumés and files to the signed-in user.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, fmt.Errorf("%w: guestUserID and authedUserID are required", ErrInvalidInput)
	}
	var result ClaimResult
	if s.Resumes != nil {
		n, err := s.Resumes.ClaimGuest(ctx, guestUserID, authedUserID)
		if err != nil {
			return ClaimResult{}, fmt.Errorf("claim resumes: %w", err)
		}
		result.MigratedResumes = n
	}
	if s.Files != nil {
		n, err := s.Files.ClaimGuest(ctx, guestUserID, authedUserID)
		if err != nil {
			return result, fmt.Errorf("claim files: %w", err)
		}
		result.MigratedFiles = n
	}
	telemetry.Info("account.guest_claimed", map[string]any{
		"userId":  authedUserID,
		"resumes": result.MigratedResumes,
		"files":   result.MigratedFiles,
	})
	return result, nil
}

// Export collects everything stored for userID.
func (s *Service) Export(ctx context.Context, userID string) (Export, error) {
	out := Export{
		ExportedAt: s.now(),
		Settings:   settings.Defaults(userID),
		Resumes:    []resumes.ResumeResponse{},
		Files:      []files.FileResponse{},
		Analyses:   []analyses.Response{},
	}
	if s.Users != nil {
		u, err := s.Users.GetByID(ctx, userID)
		switch {
		case err == nil:
			out.Profile = &u
		case !errors.Is(err, users.ErrNotFound):
			return Export{}, fmt.Errorf("load profile: %w", err)
		}
	}
	if s.Settings != nil {
		st, err := s.Settings.Get(ctx, userID)
		if err != nil {
			return Export{}, fmt.Errorf("load settings: %w", err)
		}
		out.Settings = st
	}
	if s.Subscriptions != nil {
		snap, err := s.Subscriptions.Get(ctx, userID)
		if err != nil && !errors.Is(err, subscriptions.ErrLoginRequired) {
			return Export{}, fmt.Errorf("load subscription: %w", err)
		}
		if err == nil {
			resp := subscriptions.ToResponse(snap)
			out.Subscription = &resp
		}
	}
	if s.Resumes != nil {
		items, err := s.Resumes.List(ctx, userID, 0, 0)
		if err != nil {
			return Export{}, fmt.Errorf("list resumes: %w", err)
		}
		for _, r := range items {
			out.Resumes = append(out.Resumes, resumes.ToResponse(r))
		}
	}
	if s.Files != nil {
		items, err := s.Files.List(ctx, userID, 0, 0)
		if err != nil {
			return Export{}, fmt.Errorf("list files: %w", err)
		}
		for _, f := range items {
			out.Files = append(out.Files, files.ToResponse(f))
		}
	}
	if s.Analyses != nil {
		items, err := s.Analyses.List(ctx, userID, 0, 0)
		if err != nil {
			return Export{}, fmt.Errorf("list analyses: %w", err)
		}
		for _, a := range items {
			out.Analyses = append(out.Analyses, analyses.ToResponse(a))
		}
	}
	return out, nil
}

// Delete removes every row and stored object owned by userID.
func (s *Service) Delete(ctx context.Context, userID, confirm string) (DeleteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return DeleteResult{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if confirm != ConfirmPhrase {
		return DeleteResult{}, ErrConfirmRequired
	}
	var result DeleteResult
	var err error
	if s.Analyses != nil {
		if result.DeletedAnalyses, err = s.Analyses.DeleteAll(ctx, userID); err != nil {
			return result, fmt.Errorf("delete analyses: %w", err)
		}
	}
	if s.Resumes != nil {
		if result.DeletedResumes, err = s.Resumes.DeleteAll(ctx, userID); err != nil {
			return result, fmt.Errorf("delete resumes: %w", err)
		}
	}
	if s.Files != nil {
		if result.DeletedFiles, err = s.Files.DeleteAll(ctx, userID); err != nil {
			return result, fmt.Errorf("delete files: %w", err)
		}
	}
	if s.Settings != nil {
		if err := s.Settings.DeleteUser(ctx, userID); err != nil {
			return result, fmt.Errorf("delete settings: %w", err)
		}
	}
	if s.Usage != nil {
		if err := s.Usage.DeleteUser(ctx, userID); err != nil {
			return result, fmt.Errorf("delete usage: %w", err)
		}
	}
	if s.Subscriptions != nil {
		if err := s.Subscriptions.DeleteUser(ctx, userID); err != nil {
			return result, fmt.Errorf("delete subscription: %w", err)
		}
	}
	if s.Users != nil {
		if err := s.Users.Delete(ctx, userID); err != nil {
			return result, fmt.Errorf("delete user: %w", err)
		}
	}
	telemetry.Info("account.deleted", map[string]any{
		"userId":   userID,
		"resumes":  result.DeletedResumes,
		"files":    result.DeletedFiles,
		"analyses": result.DeletedAnalyses,
	})
	return result, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

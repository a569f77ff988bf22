package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cvbuilder/internal/shared/metrics"
	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/shared/telemetry"
)

const DefaultTrialDays = 7

// Service owns trial start, lazy expiry and feature gating.
type Service struct {
	Repo      Repo
	TrialDays int
	Now       func() time.Time
}

// NewService constructs a Service. trialDays <= 0 uses DefaultTrialDays.
func NewService(repo Repo, trialDays int) *Service {
	if trialDays <= 0 {
		trialDays = DefaultTrialDays
	}
	return &Service{Repo: repo, TrialDays: trialDays, Now: time.Now}
}

// Snapshot is a subscription together with what it currently unlocks.
type Snapshot struct {
	Subscription Subscription
	Status       Status
	Entitlements Entitlements
	DaysLeft     int
}

// Get returns the user's subscription, starting a trial on first access and
// persisting an expiry that happened since the last read.
func (s *Service) Get(ctx context.Context, userID string) (Snapshot, error) {
	if isGuest(userID) {
		return Snapshot{}, ErrLoginRequired
	}
	now := s.now()
	sub, err := s.Repo.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		end := now.Add(time.Duration(s.TrialDays) * 24 * time.Hour)
		sub = Subscription{
			UserID:      userID,
			Plan:        PlanFree,
			Status:      StatusTrial,
			TrialEndsAt: &end,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.Upsert(ctx, sub); err != nil {
			return Snapshot{}, fmt.Errorf("start trial: %w", err)
		}
		logChange(sub, "trial_started")
	case err != nil:
		return Snapshot{}, err
	}

	if effective := sub.Effective(now); effective != sub.Status {
		sub.Status = effective
		sub.Plan = PlanFree
		sub.UpdatedAt = now
		if err := s.Repo.Upsert(ctx, sub); err != nil {
			return Snapshot{}, fmt.Errorf("expire subscription: %w", err)
		}
		logChange(sub, "expired")
	}
	return Snapshot{
		Subscription: sub,
		Status:       sub.Status,
		Entitlements: EntitlementsFor(sub.Status),
		DaysLeft:     sub.DaysLeft(now),
	}, nil
}

// Entitlements returns what the user's subscription currently unlocks.
func (s *Service) Entitlements(ctx context.Context, userID string) (Entitlements, error) {
	snap, err := s.Get(ctx, userID)
	if err != nil {
		return Entitlements{}, err
	}
	return snap.Entitlements, nil
}

// Require returns nil when the user may use feature, ErrLoginRequired for
// guests and a *RequiredError otherwise.
func (s *Service) Require(ctx context.Context, userID string, feature Feature) error {
	snap, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if snap.Entitlements.Allows(feature) {
		return nil
	}
	metrics.IncSubscriptionDenied(string(feature))
	return &RequiredError{Feature: feature, Status: snap.Status}
}

// RequireExport checks that format may be exported on the user's subscription.
func (s *Service) RequireExport(ctx context.Context, userID, format string) error {
	snap, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if snap.Entitlements.AllowsExport(format) {
		return nil
	}
	metrics.IncSubscriptionDenied(string(FeatureExport))
	return &RequiredError{Feature: FeatureExport, Status: snap.Status}
}

// Cancel stops renewal of an active subscription at the end of its period.
func (s *Service) Cancel(ctx context.Context, userID string) (Snapshot, error) {
	snap, err := s.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.Status != StatusActive {
		return Snapshot{}, ErrNotCancelable
	}
	sub := snap.Subscription
	if !sub.CancelAtPeriodEnd {
		sub.CancelAtPeriodEnd = true
		sub.UpdatedAt = s.now()
		if err := s.Repo.Upsert(ctx, sub); err != nil {
			return Snapshot{}, err
		}
		logChange(sub, "cancel_requested")
	}
	snap.Subscription = sub
	return snap, nil
}

// Activate starts or extends a paid period ending at periodEnd.
func (s *Service) Activate(ctx context.Context, userID string, periodEnd time.Time, externalID string) (Subscription, error) {
	if isGuest(userID) || strings.TrimSpace(userID) == "" {
		return Subscription{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	now := s.now()
	if !periodEnd.After(now) {
		return Subscription{}, fmt.Errorf("%w: period end must be in the future", ErrInvalidInput)
	}
	sub, err := s.Repo.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Subscription{}, err
	}
	if errors.Is(err, ErrNotFound) {
		sub = Subscription{UserID: userID, CreatedAt: now}
	}
	end := periodEnd.UTC()
	sub.Plan = PlanPro
	sub.Status = StatusActive
	sub.CurrentPeriodEnd = &end
	sub.CancelAtPeriodEnd = false
	if externalID != "" {
		sub.ExternalID = externalID
	}
	sub.UpdatedAt = now
	if err := s.Repo.Upsert(ctx, sub); err != nil {
		return Subscription{}, err
	}
	logChange(sub, "activated")
	return sub, nil
}

// Expire ends the user's subscription immediately.
func (s *Service) Expire(ctx context.Context, userID string) (Subscription, error) {
	sub, err := s.Repo.Get(ctx, userID)
	if err != nil {
		return Subscription{}, err
	}
	sub.Status = StatusExpired
	sub.Plan = PlanFree
	sub.CancelAtPeriodEnd = false
	sub.UpdatedAt = s.now()
	if err := s.Repo.Upsert(ctx, sub); err != nil {
		return Subscription{}, err
	}
	logChange(sub, "expired")
	return sub, nil
}

// ExpireLapsed marks every subscription whose period ended as expired.
func (s *Service) ExpireLapsed(ctx context.Context) (int, error) {
	n, err := s.Repo.ExpireLapsed(ctx, s.now())
	if err != nil {
		return 0, err
	}
	telemetry.Info("subscription.sweep", map[string]any{"expired": n})
	return n, nil
}

// DeleteUser removes the user's subscription and billing history.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	return s.Repo.DeleteByUser(ctx, userID)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func isGuest(userID string) bool {
	return strings.HasPrefix(userID, middleware.GuestPrefix)
}

func logChange(sub Subscription, change string) {
	fields := map[string]any{
		"user_id": sub.UserID,
		"change":  change,
		"status":  string(sub.Status),
		"plan":    string(sub.Plan),
	}
	if end := sub.EndsAt(); end != nil {
		fields["ends_at"] = end.Format(time.RFC3339)
	}
	telemetry.Info("subscription.changed", fields)
}

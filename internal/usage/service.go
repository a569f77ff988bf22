package usage

import (
	"context"
	"strings"
	"time"
)

type store interface {
	// EnsurePeriod returns the counter, starting a new period when the old one ended.
	EnsurePeriod(ctx context.Context, userID string, period time.Duration) (Usage, error)
	Consume(ctx context.Context, userID string, n, limit int, period time.Duration) (Usage, error)
	// Refund gives back n units, never taking the counter below zero.
	Refund(ctx context.Context, userID string, n int, period time.Duration) (Usage, error)
	Reset(ctx context.Context, userID string, period time.Duration) (Usage, error)
	Delete(ctx context.Context, userID string) error
}

// QuotaSource resolves the quota that applies to a user.
type QuotaSource interface {
	Quota(ctx context.Context, userID string) (Quota, error)
}

// QuotaFunc adapts a function to QuotaSource.
type QuotaFunc func(ctx context.Context, userID string) (Quota, error)

func (f QuotaFunc) Quota(ctx context.Context, userID string) (Quota, error) {
	return f(ctx, userID)
}

// Service manages usage data via an underlying store.
type Service struct {
	store  store
	quotas QuotaSource
}

// NewService constructs a Service with in-memory store.
func NewService(quotas QuotaSource) *Service {
	return &Service{store: newMemoryStore(), quotas: quotas}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore store, quotas QuotaSource) *Service {
	return &Service{store: pgStore, quotas: quotas}
}

// Get returns the current usage for a user, resetting an expired period.
func (s *Service) Get(ctx context.Context, userID string) (Usage, error) {
	q, err := s.quota(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	u, err := s.store.EnsurePeriod(ctx, userID, q.Period)
	if err != nil {
		return Usage{}, err
	}
	return withQuota(u, q), nil
}

// CanConsume reports whether the user can consume n units.
func (s *Service) CanConsume(ctx context.Context, userID string, n int) (bool, Usage, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return false, Usage{}, err
	}
	if n <= 0 {
		return true, u, nil
	}
	return u.Used+n <= u.Limit, u, nil
}

// Consume increments usage by n if within limit.
func (s *Service) Consume(ctx context.Context, userID string, n int) (Usage, error) {
	q, err := s.quota(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	u, err := s.store.Consume(ctx, userID, n, q.Limit, q.Period)
	if err != nil {
		return Usage{}, err
	}
	return withQuota(u, q), nil
}

// Refund returns n units reserved by Consume for work that did not complete.
func (s *Service) Refund(ctx context.Context, userID string, n int) (Usage, error) {
	q, err := s.quota(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	u, err := s.store.Refund(ctx, userID, n, q.Period)
	if err != nil {
		return Usage{}, err
	}
	return withQuota(u, q), nil
}

// Reset sets usage to zero and starts a new period.
func (s *Service) Reset(ctx context.Context, userID string) (Usage, error) {
	q, err := s.quota(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	u, err := s.store.Reset(ctx, userID, q.Period)
	if err != nil {
		return Usage{}, err
	}
	return withQuota(u, q), nil
}

// DeleteUser removes the user's counter.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	return s.store.Delete(ctx, userID)
}

func (s *Service) quota(ctx context.Context, userID string) (Quota, error) {
	if strings.TrimSpace(userID) == "" {
		return Quota{}, ErrInvalidUser
	}
	if s.quotas == nil {
		return DefaultQuota, nil
	}
	q, err := s.quotas.Quota(ctx, userID)
	if err != nil {
		return Quota{}, err
	}
	if q.Period <= 0 {
		q.Period = DefaultQuota.Period
	}
	return q, nil
}

func withQuota(u Usage, q Quota) Usage {
	u.Plan = q.Plan
	u.Limit = q.Limit
	return u
}

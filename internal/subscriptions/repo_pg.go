package subscriptions

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Get(ctx context.Context, userID string) (Subscription, error) {
	const query = `
SELECT user_id, plan, status, trial_ends_at, current_period_end, cancel_at_period_end, external_id, created_at, updated_at
FROM subscriptions
WHERE user_id = $1`
	var (
		s             Subscription
		plan, status  string
		trialEnds     sql.NullTime
		currentPeriod sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID,
		&plan,
		&status,
		&trialEnds,
		&currentPeriod,
		&s.CancelAtPeriodEnd,
		&s.ExternalID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrNotFound
	}
	if err != nil {
		return Subscription{}, err
	}
	s.Plan = Plan(plan)
	s.Status = Status(status)
	if trialEnds.Valid {
		t := trialEnds.Time
		s.TrialEndsAt = &t
	}
	if currentPeriod.Valid {
		t := currentPeriod.Time
		s.CurrentPeriodEnd = &t
	}
	return s, nil
}

func (r *PGRepo) Upsert(ctx context.Context, s Subscription) error {
	const query = `
INSERT INTO subscriptions (user_id, plan, status, trial_ends_at, current_period_end, cancel_at_period_end, external_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id) DO UPDATE SET
    plan = EXCLUDED.plan,
    status = EXCLUDED.status,
    trial_ends_at = EXCLUDED.trial_ends_at,
    current_period_end = EXCLUDED.current_period_end,
    cancel_at_period_end = EXCLUDED.cancel_at_period_end,
    external_id = EXCLUDED.external_id,
    updated_at = EXCLUDED.updated_at`
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.UpdatedAt
	}
	_, err := r.DB.ExecContext(ctx, query,
		s.UserID,
		string(s.Plan),
		string(s.Status),
		nullTime(s.TrialEndsAt),
		nullTime(s.CurrentPeriodEnd),
		s.CancelAtPeriodEnd,
		s.ExternalID,
		createdAt,
		s.UpdatedAt,
	)
	return err
}

func (r *PGRepo) RecordEvent(ctx context.Context, id, eventType, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO billing_events (id, type, user_id) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		id, eventType, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PGRepo) ForgetEvent(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM billing_events WHERE id = $1`, id)
	return err
}

func (r *PGRepo) ExpireLapsed(ctx context.Context, now time.Time) (int, error) {
	const query = `
UPDATE subscriptions
SET status = 'expired', plan = 'free', updated_at = $1
WHERE (status = 'trial' AND (trial_ends_at IS NULL OR trial_ends_at <= $1))
   OR (status = 'active' AND (current_period_end IS NULL OR current_period_end <= $1))`
	res, err := r.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM billing_events WHERE user_id = $1`, userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, `DELETE FROM subscriptions WHERE user_id = $1`, userID)
	return err
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

var _ Repo = (*PGRepo)(nil)

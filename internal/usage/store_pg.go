package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB) *pgStore {
	return &pgStore{DB: db}
}

func (s *pgStore) EnsurePeriod(ctx context.Context, userID string, period time.Duration) (Usage, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	u, err := s.lockAndEnsure(ctx, tx, userID, period)
	if err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) Consume(ctx context.Context, userID string, n, limit int, period time.Duration) (Usage, error) {
	if n <= 0 {
		return s.EnsurePeriod(ctx, userID, period)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	u, err := s.lockAndEnsure(ctx, tx, userID, period)
	if err != nil {
		return Usage{}, err
	}
	if u.Used+n > limit {
		err = ErrLimitReached
		return Usage{}, err
	}
	u.Used += n
	if _, err = tx.ExecContext(ctx, `
UPDATE usage_counters SET used = $1, updated_at = now() WHERE user_id = $2`, u.Used, userID); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) Refund(ctx context.Context, userID string, n int, period time.Duration) (Usage, error) {
	if n <= 0 {
		return s.EnsurePeriod(ctx, userID, period)
	}
	var u Usage
	err := s.DB.QueryRowContext(ctx, `
UPDATE usage_counters SET used = GREATEST(used - $1, 0), updated_at = now()
WHERE user_id = $2
RETURNING used, period_start, period_end`, n, userID).Scan(&u.Used, &u.PeriodStart, &u.ResetsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s.EnsurePeriod(ctx, userID, period)
	}
	if err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) Reset(ctx context.Context, userID string, period time.Duration) (Usage, error) {
	now := time.Now().UTC()
	u := Usage{PeriodStart: now, ResetsAt: now.Add(period)}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO usage_counters (user_id, used, period_start, period_end)
VALUES ($1, 0, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET used = 0, period_start = EXCLUDED.period_start, period_end = EXCLUDED.period_end, updated_at = now()`,
		userID, u.PeriodStart, u.ResetsAt)
	if err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) Delete(ctx context.Context, userID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM usage_counters WHERE user_id = $1`, userID)
	return err
}

func (s *pgStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string, period time.Duration) (Usage, error) {
	var u Usage
	row := tx.QueryRowContext(ctx, `
SELECT used, period_start, period_end FROM usage_counters WHERE user_id = $1 FOR UPDATE`, userID)
	err := row.Scan(&u.Used, &u.PeriodStart, &u.ResetsAt)
	now := time.Now().UTC()
	if errors.Is(err, sql.ErrNoRows) {
		u = Usage{PeriodStart: now, ResetsAt: now.Add(period)}
		if _, err = tx.ExecContext(ctx, `
INSERT INTO usage_counters (user_id, used, period_start, period_end) VALUES ($1, $2, $3, $4)`,
			userID, u.Used, u.PeriodStart, u.ResetsAt); err != nil {
			return Usage{}, err
		}
		return u, nil
	}
	if err != nil {
		return Usage{}, err
	}

	if !now.Before(u.ResetsAt) {
		u = Usage{PeriodStart: now, ResetsAt: now.Add(period)}
		if _, err = tx.ExecContext(ctx, `
UPDATE usage_counters SET used = 0, period_start = $1, period_end = $2, updated_at = now() WHERE user_id = $3`,
			u.PeriodStart, u.ResetsAt, userID); err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}

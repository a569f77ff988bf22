package settings

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Get(ctx context.Context, userID string) (Settings, error) {
	const query = `
SELECT user_id, locale, default_template_id, email_notifications, marketing_emails,
       analytics_opt_in, profile_visibility, data_retention_days, updated_at
FROM user_settings
WHERE user_id = $1`
	var (
		s          Settings
		visibility string
	)
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID,
		&s.Locale,
		&s.DefaultTemplateID,
		&s.EmailNotifications,
		&s.MarketingEmails,
		&s.AnalyticsOptIn,
		&visibility,
		&s.DataRetentionDays,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, err
	}
	s.ProfileVisibility = Visibility(visibility)
	return s, nil
}

func (r *PGRepo) Upsert(ctx context.Context, s Settings) error {
	const query = `
INSERT INTO user_settings (user_id, locale, default_template_id, email_notifications, marketing_emails,
                           analytics_opt_in, profile_visibility, data_retention_days, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id) DO UPDATE SET
    locale = EXCLUDED.locale,
    default_template_id = EXCLUDED.default_template_id,
    email_notifications = EXCLUDED.email_notifications,
    marketing_emails = EXCLUDED.marketing_emails,
    analytics_opt_in = EXCLUDED.analytics_opt_in,
    profile_visibility = EXCLUDED.profile_visibility,
    data_retention_days = EXCLUDED.data_retention_days,
    updated_at = EXCLUDED.updated_at`
	_, err := r.DB.ExecContext(ctx, query,
		s.UserID,
		s.Locale,
		s.DefaultTemplateID,
		s.EmailNotifications,
		s.MarketingEmails,
		s.AnalyticsOptIn,
		string(s.ProfileVisibility),
		s.DataRetentionDays,
		s.UpdatedAt,
	)
	return err
}

func (r *PGRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM user_settings WHERE user_id = $1`, userID)
	return err
}

var _ Repo = (*PGRepo)(nil)

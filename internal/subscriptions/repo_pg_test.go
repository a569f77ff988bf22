package subscriptions

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGRepoGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err = (&PGRepo{DB: db}).Get(context.Background(), "user-1")
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoGetScansNullableTimes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	trialEnds := now.Add(7 * 24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "plan", "status", "trial_ends_at", "current_period_end", "cancel_at_period_end", "external_id", "created_at", "updated_at"}).
			AddRow("user-1", "free", "trial", trialEnds, nil, false, "", now, now))

	s, err := (&PGRepo{DB: db}).Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusTrial, s.Status)
	require.NotNil(t, s.TrialEndsAt)
	assert.True(t, s.TrialEndsAt.Equal(trialEnds))
	assert.Nil(t, s.CurrentPeriodEnd)
}

func TestPGRepoRecordEventDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("INSERT INTO billing_events").
		WithArgs("evt_1", EventActivated, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO billing_events").
		WithArgs("evt_1", EventActivated, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	fresh, err := repo.RecordEvent(context.Background(), "evt_1", EventActivated, "user-1")
	require.NoError(t, err)
	assert.True(t, fresh)
	fresh, err = repo.RecordEvent(context.Background(), "evt_1", EventActivated, "user-1")
	require.NoError(t, err)
	assert.False(t, fresh)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoForgetEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("DELETE FROM billing_events").
		WithArgs("evt_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := &PGRepo{DB: db}
	require.NoError(t, repo.ForgetEvent(context.Background(), "evt_1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

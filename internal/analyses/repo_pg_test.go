package analyses

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

var analysisColumnNames = []string{
	"id", "user_id", "resume_id", "file_id", "job_description", "status", "result", "score",
	"error_code", "error_message", "created_at", "updated_at", "completed_at",
}

func TestPGRepoCreateUsesNullSource(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	a := Analysis{ID: "a-1", UserID: "user-1", FileID: "f-1", JobDescription: "jd", Status: StatusQueued, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs("a-1", "user-1", sql.NullString{}, sql.NullString{String: "f-1", Valid: true}, "jd", "queued", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), a))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoClaimFinishedAnalysis(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE analyses SET status = 'processing'").
		WithArgs("a-1", now).
		WillReturnRows(sqlmock.NewRows(analysisColumnNames))
	mock.ExpectQuery("SELECT (.+) FROM analyses").
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(analysisColumnNames).
			AddRow("a-1", "user-1", "r-1", nil, "", "completed", []byte(`{"ats":{}}`), 77, nil, nil, now, now, now))

	a, err := repo.Claim(context.Background(), "a-1", now)
	assert.ErrorIs(t, err, ErrAlreadyFinished)
	assert.Equal(t, StatusCompleted, a.Status)
	require.NotNil(t, a.Score)
	assert.Equal(t, 77, *a.Score)
	assert.Equal(t, "r-1", a.ResumeID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoFailNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectExec("UPDATE analyses").
		WithArgs("missing", ErrorCodeInternal, "boom", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Fail(context.Background(), "missing", ErrorCodeInternal, "boom", now), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

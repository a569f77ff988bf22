package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, user_id, resume_id, file_id, job_description, status, result, score,
       error_code, error_message, created_at, updated_at, completed_at`

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, a Analysis) error {
	const query = `
INSERT INTO analyses (id, user_id, resume_id, file_id, job_description, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		nullString(a.ResumeID),
		nullString(a.FileID),
		a.JobDescription,
		string(a.Status),
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

// Get returns an analysis owned by userID.
func (r *PGRepo) Get(ctx context.Context, userID, id string) (Analysis, error) {
	query := `SELECT ` + analysisColumns + `
FROM analyses
WHERE user_id = $1 AND id = $2`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

// GetByID returns an analysis by ID regardless of owner. Workers use it.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Analysis, error) {
	query := `SELECT ` + analysisColumns + `
FROM analyses
WHERE id = $1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

// List returns analyses for a user ordered newest-first.
func (r *PGRepo) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	query := `SELECT ` + analysisColumns + `
FROM analyses
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, query, userID, limitArg, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Claim moves an unfinished analysis to processing.
func (r *PGRepo) Claim(ctx context.Context, id string, at time.Time) (Analysis, error) {
	query := `
UPDATE analyses SET status = 'processing', updated_at = $2
WHERE id = $1 AND status IN ('queued', 'processing')
RETURNING ` + analysisColumns
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, id, at))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, err
	}
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return Analysis{}, err
	}
	return existing, ErrAlreadyFinished
}

// Complete stores the result of a finished analysis.
func (r *PGRepo) Complete(ctx context.Context, id string, result json.RawMessage, score int, at time.Time) error {
	const query = `
UPDATE analyses
SET status = 'completed', result = $2, score = $3, error_code = NULL, error_message = NULL,
    updated_at = $4, completed_at = $4
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, string(result), score, at)
	return rowsOrNotFound(res, err)
}

// Fail records a failed analysis.
func (r *PGRepo) Fail(ctx context.Context, id, code, message string, at time.Time) error {
	const query = `
UPDATE analyses
SET status = 'failed', error_code = $2, error_message = $3, updated_at = $4, completed_at = $4
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, code, message, at)
	return rowsOrNotFound(res, err)
}

// Delete removes an analysis owned by userID.
func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM analyses WHERE user_id = $1 AND id = $2`, userID, id)
	return rowsOrNotFound(res, err)
}

// DeleteAllByUser removes every analysis owned by userID.
func (r *PGRepo) DeleteAllByUser(ctx context.Context, userID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM analyses WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func rowsOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		a            Analysis
		status       string
		resumeID     sql.NullString
		fileID       sql.NullString
		result       []byte
		score        sql.NullInt64
		errorCode    sql.NullString
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&resumeID,
		&fileID,
		&a.JobDescription,
		&status,
		&result,
		&score,
		&errorCode,
		&errorMessage,
		&a.CreatedAt,
		&a.UpdatedAt,
		&completedAt,
	); err != nil {
		return Analysis{}, err
	}
	a.Status = Status(status)
	a.ResumeID = resumeID.String
	a.FileID = fileID.String
	if len(result) > 0 {
		a.Result = json.RawMessage(result)
	}
	if score.Valid {
		s := int(score.Int64)
		a.Score = &s
	}
	a.ErrorCode = errorCode.String
	a.ErrorMessage = errorMessage.String
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Repo = (*PGRepo)(nil)

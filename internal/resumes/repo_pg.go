package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const resumeColumns = `id, user_id, title, template_id, current_step, status, data, version, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, res Resume) error {
	const query = `
INSERT INTO resumes (id, user_id, title, template_id, current_step, status, data, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	data, err := json.Marshal(res.Data)
	if err != nil {
		return fmt.Errorf("marshal resume data: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query,
		res.ID,
		res.UserID,
		res.Title,
		res.TemplateID,
		res.CurrentStep,
		string(res.Status),
		string(data),
		res.Version,
		res.CreatedAt,
		res.UpdatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (Resume, error) {
	query := `SELECT ` + resumeColumns + `
FROM resumes
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Resume{}, ErrNotFound
	}
	return res, err
}

func (r *PGRepo) List(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	query := `SELECT ` + resumeColumns + `
FROM resumes
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY updated_at DESC
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

	var out []Resume
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, res Resume, expectedVersion int) error {
	const query = `
UPDATE resumes
SET title = $1, template_id = $2, current_step = $3, status = $4, data = $5, version = $6, updated_at = $7
WHERE id = $8 AND user_id = $9 AND version = $10 AND deleted_at IS NULL`
	data, err := json.Marshal(res.Data)
	if err != nil {
		return fmt.Errorf("marshal resume data: %w", err)
	}
	result, err := r.DB.ExecContext(ctx, query,
		res.Title,
		res.TemplateID,
		res.CurrentStep,
		string(res.Status),
		string(data),
		res.Version,
		res.UpdatedAt,
		res.ID,
		res.UserID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil || n > 0 {
		return err
	}

	var exists bool
	err = r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM resumes WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL)`,
		res.ID, res.UserID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (r *PGRepo) SoftDelete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE resumes SET deleted_at = now() WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`,
		userID, id,
	)
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

// ClaimGuest reassigns résumés owned by a guest user to an authenticated user.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE resumes SET user_id = $1 WHERE user_id = $2 AND deleted_at IS NULL`,
		userID, guestUserID,
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *PGRepo) DeleteAllByUser(ctx context.Context, userID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM resumes WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (Resume, error) {
	var res Resume
	var status string
	var data []byte
	if err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.Title,
		&res.TemplateID,
		&res.CurrentStep,
		&status,
		&data,
		&res.Version,
		&res.CreatedAt,
		&res.UpdatedAt,
	); err != nil {
		return Resume{}, err
	}
	res.Status = Status(status)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &res.Data); err != nil {
			return Resume{}, fmt.Errorf("decode resume data: %w", err)
		}
	}
	return res, nil
}

var _ Repo = (*PGRepo)(nil)

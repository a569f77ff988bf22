package files

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cvbuilder/internal/sanitize"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const fileColumns = `id, user_id, file_name, mime_type, size_bytes, storage_key, extracted_text, extract_status, extract_error, sanitize_report, created_at`

// Create inserts a new file row.
func (r *PGRepo) Create(ctx context.Context, f File) error {
	const query = `
INSERT INTO files (
    id,
    user_id,
    file_name,
    mime_type,
    size_bytes,
    storage_key,
    extract_status,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	status := f.ExtractStatus
	if status == "" {
		status = ExtractPending
	}
	_, err := r.DB.ExecContext(ctx, query,
		f.ID,
		f.UserID,
		f.FileName,
		f.MimeType,
		f.SizeBytes,
		f.StorageKey,
		string(status),
		f.CreatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (File, error) {
	query := `SELECT ` + fileColumns + `
FROM files
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL
LIMIT 1`
	f, err := scanFile(r.DB.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, ErrNotFound
	}
	return f, err
}

// List lists files ordered newest-first.
func (r *PGRepo) List(ctx context.Context, userID string, limit, offset int) ([]File, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + fileColumns + `
FROM files
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateExtraction(ctx context.Context, userID, id string, status ExtractStatus, text, errMsg string, report *sanitize.Report) error {
	const query = `
UPDATE files
SET extract_status = $1, extracted_text = $2, extract_error = $3, sanitize_report = $4
WHERE user_id = $5 AND id = $6 AND deleted_at IS NULL`

	var reportArg any
	if report != nil {
		b, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshal sanitize report: %w", err)
		}
		reportArg = string(b)
	}
	res, err := r.DB.ExecContext(ctx, query, string(status), nullString(text), nullString(errMsg), reportArg, userID, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *PGRepo) SoftDelete(ctx context.Context, userID, id string) error {
	const query = `
UPDATE files
SET deleted_at = now()
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// ClaimGuest reassigns files owned by a guest user to an authenticated user.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error) {
	const query = `
UPDATE files
SET user_id = $1
WHERE user_id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

func (r *PGRepo) DeleteAllByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `DELETE FROM files WHERE user_id = $1 RETURNING storage_key`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (File, error) {
	var f File
	var status string
	var text, extractErr sql.NullString
	var report []byte
	if err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.FileName,
		&f.MimeType,
		&f.SizeBytes,
		&f.StorageKey,
		&text,
		&status,
		&extractErr,
		&report,
		&f.CreatedAt,
	); err != nil {
		return File{}, err
	}
	f.ExtractStatus = ExtractStatus(status)
	f.ExtractedText = text.String
	f.ExtractError = extractErr.String
	if len(report) > 0 {
		var rep sanitize.Report
		if err := json.Unmarshal(report, &rep); err == nil {
			f.SanitizeReport = &rep
		}
	}
	return f, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)

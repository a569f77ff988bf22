package files

import (
	"context"

	"cvbuilder/internal/sanitize"
)

// Repo defines persistence operations for uploaded files.
type Repo interface {
	Create(ctx context.Context, f File) error
	Get(ctx context.Context, userID, id string) (File, error)
	List(ctx context.Context, userID string, limit, offset int) ([]File, error)
	UpdateExtraction(ctx context.Context, userID, id string, status ExtractStatus, text, errMsg string, report *sanitize.Report) error
	SoftDelete(ctx context.Context, userID, id string) error
	ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error)
	// DeleteAllByUser hard-deletes every row and returns the storage keys that were referenced.
	DeleteAllByUser(ctx context.Context, userID string) ([]string, error)
}

package resumes

import "context"

// Repo defines persistence operations for résumés.
type Repo interface {
	Create(ctx context.Context, r Resume) error
	Get(ctx context.Context, userID, id string) (Resume, error)
	// List returns résumés newest first. A non-positive limit returns all rows.
	List(ctx context.Context, userID string, limit, offset int) ([]Resume, error)
	// Update replaces the row when its stored version equals expectedVersion.
	Update(ctx context.Context, r Resume, expectedVersion int) error
	SoftDelete(ctx context.Context, userID, id string) error
	ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error)
	DeleteAllByUser(ctx context.Context, userID string) (int, error)
}

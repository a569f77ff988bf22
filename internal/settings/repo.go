package settings

import "context"

// Repo persists settings.
type Repo interface {
	Get(ctx context.Context, userID string) (Settings, error)
	Upsert(ctx context.Context, s Settings) error
	Delete(ctx context.Context, userID string) error
}

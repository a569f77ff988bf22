package analyses

import (
	"context"
	"encoding/json"
	"time"
)

// Repo defines persistence operations for analyses.
type Repo interface {
	Create(ctx context.Context, a Analysis) error
	Get(ctx context.Context, userID, id string) (Analysis, error)
	GetByID(ctx context.Context, id string) (Analysis, error)
	List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
	// Claim moves a queued or stale processing analysis to processing.
	// It returns ErrAlreadyFinished for completed or failed analyses.
	Claim(ctx context.Context, id string, at time.Time) (Analysis, error)
	Complete(ctx context.Context, id string, result json.RawMessage, score int, at time.Time) error
	Fail(ctx context.Context, id, code, message string, at time.Time) error
	Delete(ctx context.Context, userID, id string) error
	DeleteAllByUser(ctx context.Context, userID string) (int, error)
}

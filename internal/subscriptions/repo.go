package subscriptions

import (
	"context"
	"time"
)

// Repo defines persistence for subscriptions and processed billing events.
type Repo interface {
	Get(ctx context.Context, userID string) (Subscription, error)
	Upsert(ctx context.Context, s Subscription) error
	// RecordEvent stores a billing event id and reports false if it was already seen.
	RecordEvent(ctx context.Context, id, eventType, userID string) (bool, error)
	// ForgetEvent drops a recorded event id so a redelivery is applied again.
	ForgetEvent(ctx context.Context, id string) error
	ExpireLapsed(ctx context.Context, now time.Time) (int, error)
	DeleteByUser(ctx context.Context, userID string) error
}

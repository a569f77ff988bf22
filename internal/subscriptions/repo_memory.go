package subscriptions

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for dev and tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	subs   map[string]Subscription
	events map[string]string
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		subs:   make(map[string]Subscription),
		events: make(map[string]string),
	}
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return Subscription{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[userID]
	if !ok {
		return Subscription{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, s Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.subs[s.UserID]; ok && s.CreatedAt.IsZero() {
		s.CreatedAt = prev.CreatedAt
	}
	r.subs[s.UserID] = s
	return nil
}

func (r *MemoryRepo) RecordEvent(ctx context.Context, id, eventType, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.events[id]; seen {
		return false, nil
	}
	r.events[id] = userID
	return true, nil
}

func (r *MemoryRepo) ForgetEvent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, id)
	return nil
}

func (r *MemoryRepo) ExpireLapsed(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.subs {
		if s.Status != StatusExpired && s.Effective(now) == StatusExpired {
			s.Status = StatusExpired
			s.Plan = PlanFree
			s.UpdatedAt = now
			r.subs[id] = s
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, userID)
	for id, owner := range r.events {
		if owner == userID {
			delete(r.events, id)
		}
	}
	return nil
}

var _ Repo = (*MemoryRepo)(nil)

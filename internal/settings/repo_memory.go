package settings

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo for dev and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	rows map[string]Settings
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Settings)}
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rows[userID]
	if !ok {
		return Settings{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.UserID] = s
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, userID)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)

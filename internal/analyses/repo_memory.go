package analyses

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Analysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Analysis)}
}

// Create stores the analysis.
func (r *MemoryRepo) Create(ctx context.Context, a Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = cloneAnalysis(a)
	return nil
}

// Get returns an analysis owned by userID.
func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Analysis, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return Analysis{}, err
	}
	if a.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

// GetByID returns an analysis by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return cloneAnalysis(a), nil
}

// List returns analyses for a user, newest first, with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.RLock()
	out := make([]Analysis, 0)
	for _, a := range r.byID {
		if a.UserID == userID {
			out = append(out, cloneAnalysis(a))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Analysis{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// Claim marks an unfinished analysis as processing.
func (r *MemoryRepo) Claim(ctx context.Context, id string, at time.Time) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	if a.Status.Terminal() {
		return cloneAnalysis(a), ErrAlreadyFinished
	}
	a.Status = StatusProcessing
	a.UpdatedAt = at
	r.byID[id] = a
	return cloneAnalysis(a), nil
}

// Complete stores the result of a finished analysis.
func (r *MemoryRepo) Complete(ctx context.Context, id string, result json.RawMessage, score int, at time.Time) error {
	return r.finish(ctx, id, func(a *Analysis) {
		a.Status = StatusCompleted
		a.Result = append(json.RawMessage(nil), result...)
		a.Score = &score
		a.ErrorCode = ""
		a.ErrorMessage = ""
	}, at)
}

// Fail records a failed analysis.
func (r *MemoryRepo) Fail(ctx context.Context, id, code, message string, at time.Time) error {
	return r.finish(ctx, id, func(a *Analysis) {
		a.Status = StatusFailed
		a.ErrorCode = code
		a.ErrorMessage = message
	}, at)
}

func (r *MemoryRepo) finish(ctx context.Context, id string, apply func(*Analysis), at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	apply(&a)
	a.UpdatedAt = at
	a.CompletedAt = &at
	r.byID[id] = a
	return nil
}

// Delete removes an analysis owned by userID.
func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// DeleteAllByUser removes every analysis owned by userID.
func (r *MemoryRepo) DeleteAllByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.byID {
		if a.UserID == userID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func cloneAnalysis(a Analysis) Analysis {
	if a.Result != nil {
		a.Result = append(json.RawMessage(nil), a.Result...)
	}
	if a.Score != nil {
		score := *a.Score
		a.Score = &score
	}
	if a.CompletedAt != nil {
		at := *a.CompletedAt
		a.CompletedAt = &at
	}
	return a
}

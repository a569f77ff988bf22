package files

import (
	"context"
	"sort"
	"sync"
	"time"

	"cvbuilder/internal/sanitize"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	data    map[string]File // id -> file
	deleted map[string]time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data:    make(map[string]File),
		deleted: make(map[string]time.Time),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, f File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[f.ID] = f
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.data[id]
	if !ok || f.UserID != userID {
		return File{}, ErrNotFound
	}
	if _, gone := r.deleted[id]; gone {
		return File{}, ErrNotFound
	}
	return f, nil
}

// List returns files for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) List(ctx context.Context, userID string, limit, offset int) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	var out []File
	for id, f := range r.data {
		if _, gone := r.deleted[id]; gone || f.UserID != userID {
			continue
		}
		out = append(out, f)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []File{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (r *MemoryRepo) UpdateExtraction(ctx context.Context, userID, id string, status ExtractStatus, text, errMsg string, report *sanitize.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.data[id]
	if !ok || f.UserID != userID {
		return ErrNotFound
	}
	f.ExtractStatus = status
	f.ExtractedText = text
	f.ExtractError = errMsg
	f.SanitizeReport = report
	r.data[id] = f
	return nil
}

func (r *MemoryRepo) SoftDelete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.data[id]
	if _, gone := r.deleted[id]; !ok || gone || f.UserID != userID {
		return ErrNotFound
	}
	r.deleted[id] = time.Now().UTC()
	return nil
}

// ClaimGuest reassigns files owned by a guest user to a signed-in user.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, f := range r.data {
		if _, gone := r.deleted[id]; gone || f.UserID != guestUserID {
			continue
		}
		f.UserID = userID
		r.data[id] = f
		n++
	}
	return n, nil
}

func (r *MemoryRepo) DeleteAllByUser(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for id, f := range r.data {
		if f.UserID != userID {
			continue
		}
		keys = append(keys, f.StorageKey)
		delete(r.data, id)
		delete(r.deleted, id)
	}
	return keys, nil
}

var _ Repo = (*MemoryRepo)(nil)

package resumes

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Resume
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Resume)}
}

func (m *MemoryRepo) Create(ctx context.Context, r Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[r.ID] = cloneResume(r)
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, userID, id string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data[id]
	if !ok || r.UserID != userID {
		return Resume{}, ErrNotFound
	}
	return cloneResume(r), nil
}

func (m *MemoryRepo) List(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var out []Resume
	for _, r := range m.data {
		if r.UserID == userID {
			out = append(out, cloneResume(r))
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []Resume{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (m *MemoryRepo) Update(ctx context.Context, r Resume, expectedVersion int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[r.ID]
	if !ok || cur.UserID != r.UserID {
		return ErrNotFound
	}
	if cur.Version != expectedVersion {
		return ErrVersionConflict
	}
	r.CreatedAt = cur.CreatedAt
	m.data[r.ID] = cloneResume(r)
	return nil
}

func (m *MemoryRepo) SoftDelete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[id]
	if !ok || r.UserID != userID {
		return ErrNotFound
	}
	delete(m.data, id)
	return nil
}

func (m *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.data {
		if r.UserID == guestUserID {
			r.UserID = userID
			m.data[id] = r
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepo) DeleteAllByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.data {
		if r.UserID == userID {
			delete(m.data, id)
			n++
		}
	}
	return n, nil
}

// cloneResume deep-copies the section slices so callers cannot mutate stored rows.
func cloneResume(r Resume) Resume {
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return r
	}
	var data ResumeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return r
	}
	r.Data = data
	return r
}

var _ Repo = (*MemoryRepo)(nil)

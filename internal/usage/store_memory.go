package usage

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]Usage
	now  func() time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		data: make(map[string]Usage),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryStore) EnsurePeriod(ctx context.Context, userID string, period time.Duration) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(userID, period), nil
}

func (s *memoryStore) ensureLocked(userID string, period time.Duration) Usage {
	now := s.now()
	u, ok := s.data[userID]
	if !ok || !now.Before(u.ResetsAt) {
		u = Usage{PeriodStart: now, ResetsAt: now.Add(period)}
	}
	s.data[userID] = u
	return u
}

func (s *memoryStore) Consume(ctx context.Context, userID string, n, limit int, period time.Duration) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(userID, period)
	if n <= 0 {
		return u, nil
	}
	if u.Used+n > limit {
		return Usage{}, ErrLimitReached
	}
	u.Used += n
	s.data[userID] = u
	return u, nil
}

func (s *memoryStore) Refund(ctx context.Context, userID string, n int, period time.Duration) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(userID, period)
	if n <= 0 {
		return u, nil
	}
	u.Used = max(u.Used-n, 0)
	s.data[userID] = u
	return u, nil
}

func (s *memoryStore) Reset(ctx context.Context, userID string, period time.Duration) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	u := Usage{PeriodStart: now, ResetsAt: now.Add(period)}
	s.data[userID] = u
	return u, nil
}

func (s *memoryStore) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

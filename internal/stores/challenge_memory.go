package stores

import (
	"context"
	"sync"
	"time"
)

// MemoryChallengeStore keeps challenges in process memory. Expired records are
// removed lazily on access and by Sweep.
type MemoryChallengeStore struct {
	mu      sync.Mutex
	records map[string]Challenge
	now     func() time.Time
}

func NewMemoryChallengeStore(now func() time.Time) *MemoryChallengeStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryChallengeStore{records: make(map[string]Challenge), now: now}
}

func (s *MemoryChallengeStore) Save(_ context.Context, id string, c *Challenge, ttl time.Duration) error {
	rec := *c
	if deadline := s.now().Add(ttl).UnixMilli(); rec.ExpiresAt == 0 || deadline < rec.ExpiresAt {
		rec.ExpiresAt = deadline
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
	return nil
}

func (s *MemoryChallengeStore) Get(_ context.Context, id string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	if rec.expired(s.now()) {
		delete(s.records, id)
		return nil, ErrChallengeExpired
	}
	return &rec, nil
}

func (s *MemoryChallengeStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[id]
	delete(s.records, id)
	return ok, nil
}

func (s *MemoryChallengeStore) RecordFailure(_ context.Context, id string, maxAttempts int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return false, ErrChallengeNotFound
	}
	if rec.expired(s.now()) {
		delete(s.records, id)
		return false, ErrChallengeExpired
	}

	rec.Attempts++
	if int(rec.Attempts) >= maxAttempts {
		delete(s.records, id)
		return true, nil
	}
	s.records[id] = rec
	return false, nil
}

// Sweep drops expired challenges.
func (s *MemoryChallengeStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if rec.expired(now) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

package challenge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-process Store for tests and single-node development.
type MemoryStorage struct {
	mu         sync.Mutex
	challenges map[uuid.UUID]*Challenge
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{challenges: make(map[uuid.UUID]*Challenge)}
}

func (m *MemoryStorage) Create(_ context.Context, c *Challenge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pendingLocked(c.UserID, c.SubjectID) != nil {
		return false, nil
	}
	m.challenges[c.ID] = c.clone()
	return true, nil
}

func (m *MemoryStorage) Get(_ context.Context, id uuid.UUID) (*Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.challenges[id]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	return c.clone(), nil
}

func (m *MemoryStorage) FindPending(_ context.Context, userID uuid.UUID, subjectID string) (*Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c := m.pendingLocked(userID, subjectID); c != nil {
		return c.clone(), nil
	}
	return nil, ErrChallengeNotFound
}

func (m *MemoryStorage) pendingLocked(userID uuid.UUID, subjectID string) *Challenge {
	for _, c := range m.challenges {
		if c.UserID == userID && c.SubjectID == subjectID && c.Outcome == OutcomePending {
			return c
		}
	}
	return nil
}

func (m *MemoryStorage) Expire(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.challenges[id]
	if !ok || c.Outcome != OutcomePending {
		return false, nil
	}
	c.Outcome = OutcomeExpired
	return true, nil
}

func (m *MemoryStorage) Reserve(_ context.Context, id uuid.UUID, now time.Time) (*Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.challenges[id]
	if !ok || c.Outcome != OutcomePending || !now.Before(c.ExpiresAt) {
		return nil, ErrNotPending
	}
	if !c.canReserve() {
		return nil, ErrNoAttemptsLeft
	}
	c.InFlight++
	return c.clone(), nil
}

func (m *MemoryStorage) Release(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.challenges[id]; ok && c.InFlight > 0 {
		c.InFlight--
	}
	return nil
}

func (m *MemoryStorage) RecordFailure(_ context.Context, id uuid.UUID, now time.Time) (*Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.challenges[id]
	if !ok || c.Outcome != OutcomePending || !now.Before(c.ExpiresAt) {
		return nil, ErrNotPending
	}
	c.InFlight = max(c.InFlight-1, 0)
	c.Attempts++
	if c.Attempts >= c.MaxAttempts {
		c.Outcome = OutcomeFailed
	}
	return c.clone(), nil
}

func (m *MemoryStorage) RecordSuccess(_ context.Context, id uuid.UUID, method Method, now time.Time) (*Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.challenges[id]
	if !ok || c.Outcome != OutcomePending || !now.Before(c.ExpiresAt) {
		return nil, ErrNotPending
	}
	c.InFlight = max(c.InFlight-1, 0)
	c.Outcome = OutcomeSucceeded
	c.MethodUsed = method
	c.ConsumedAt = now
	return c.clone(), nil
}

func (m *MemoryStorage) ExpireBefore(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.challenges {
		if c.Outcome == OutcomePending && !now.Before(c.ExpiresAt) {
			c.Outcome = OutcomeExpired
			n++
		}
	}
	return n, nil
}

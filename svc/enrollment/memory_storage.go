package enrollment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-process Store for tests and single-node development.
type MemoryStorage struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]Profile
	now      func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{profiles: make(map[uuid.UUID]Profile), now: time.Now}
}

func (m *MemoryStorage) Get(_ context.Context, userID uuid.UUID) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}

func (m *MemoryStorage) Save(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.profiles[p.UserID]
	now := m.now()

	switch {
	case p.Version == 0 && exists:
		return ErrVersionConflict
	case p.Version == 0:
		p.CreatedAt = now
	case !exists || stored.Version != p.Version:
		return ErrVersionConflict
	default:
		p.LastTOTPStep = max(p.LastTOTPStep, stored.LastTOTPStep)
	}

	p.Version++
	p.UpdatedAt = now
	m.profiles[p.UserID] = *p
	return nil
}

func (m *MemoryStorage) AdvanceStep(_ context.Context, userID uuid.UUID, step int64, usedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok || p.SecretEnc == "" || p.LastTOTPStep >= step {
		return false, nil
	}
	p.LastTOTPStep = step
	p.LastUsedAt = usedAt
	m.profiles[userID] = p
	return true, nil
}

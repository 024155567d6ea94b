package backupcode

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryCode struct {
	hash         []byte
	usedAt       time.Time
	supersededAt time.Time
}

func (c *memoryCode) live() bool { return c.usedAt.IsZero() && c.supersededAt.IsZero() }

// MemoryStorage is an in-process Store for tests and single-node development.
type MemoryStorage struct {
	mu    sync.Mutex
	codes map[uuid.UUID][]*memoryCode
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{codes: make(map[uuid.UUID][]*memoryCode)}
}

func (m *MemoryStorage) Replace(_ context.Context, userID uuid.UUID, hashes [][]byte, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.codes[userID] {
		if c.supersededAt.IsZero() {
			c.supersededAt = now
		}
	}
	for _, h := range hashes {
		m.codes[userID] = append(m.codes[userID], &memoryCode{hash: bytes.Clone(h)})
	}
	return nil
}

func (m *MemoryStorage) Consume(_ context.Context, userID uuid.UUID, hash []byte, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.codes[userID] {
		if c.live() && bytes.Equal(c.hash, hash) {
			c.usedAt = now
			return nil
		}
	}
	return ErrNotFoundOrUsed
}

func (m *MemoryStorage) Remaining(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.codes[userID] {
		if c.live() {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStorage) Revoke(_ context.Context, userID uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.codes[userID] {
		if c.supersededAt.IsZero() {
			c.supersededAt = now
		}
	}
	return nil
}

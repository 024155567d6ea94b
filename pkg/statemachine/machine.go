package statemachine

import (
	"context"
	"sync"
)

// Machine tracks a current state over a Definition.
type Machine[S, E comparable] struct {
	def     *Definition[S, E]
	initial S
	current S
	mu      sync.RWMutex
}

func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Fire applies event. On error the current state is unchanged.
func (m *Machine[S, E]) Fire(ctx context.Context, event E, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.def.Next(ctx, m.current, event, data)
	if err != nil {
		return err
	}
	m.current = next
	return nil
}

func (m *Machine[S, E]) CanFire(ctx context.Context, event E, data any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.def.Can(ctx, m.current, event, data)
}

func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

package store

import (
	"context"
	"sort"
	"sync"
)

// MemorySlots is a process-local SlotStore for development and tests.
type MemorySlots struct {
	mu    sync.RWMutex
	slots map[string]map[string][]byte
}

func NewMemorySlots() *MemorySlots {
	return &MemorySlots{slots: make(map[string]map[string][]byte)}
}

func (m *MemorySlots) Put(_ context.Context, sessionID, slot string, record []byte) error {
	if err := validateKeys(sessionID, slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bySlot, ok := m.slots[sessionID]
	if !ok {
		bySlot = make(map[string][]byte)
		m.slots[sessionID] = bySlot
	}
	bySlot[slot] = append([]byte(nil), record...)
	return nil
}

func (m *MemorySlots) Get(_ context.Context, sessionID, slot string) ([]byte, error) {
	if err := validateKeys(sessionID, slot); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.slots[sessionID][slot]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (m *MemorySlots) List(_ context.Context, sessionID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.slots[sessionID]))
	for slot := range m.slots[sessionID] {
		out = append(out, slot)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemorySlots) Delete(_ context.Context, sessionID, slot string) error {
	if err := validateKeys(sessionID, slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[sessionID][slot]; !ok {
		return ErrSlotNotFound
	}
	delete(m.slots[sessionID], slot)
	if len(m.slots[sessionID]) == 0 {
		delete(m.slots, sessionID)
	}
	return nil
}

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

// MemoryArchive keeps archived games in process, for development without a database.
type MemoryArchive struct {
	mu     sync.RWMutex
	nextID int64
	games  []domain.ArchivedGame
	seen   map[string]struct{}
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{seen: make(map[string]struct{})}
}

func (m *MemoryArchive) Archive(_ context.Context, g domain.ArchivedGame) error {
	key := g.SessionID + "|" + g.EndedAt.UTC().String()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.seen[key]; dup {
		return ErrDuplicateGame
	}
	m.seen[key] = struct{}{}
	m.nextID++
	g.ID = m.nextID
	g.MovesSAN = append([]string(nil), g.MovesSAN...)
	g.MovesUCI = append([]string(nil), g.MovesUCI...)
	m.games = append(m.games, g)
	return nil
}

func (m *MemoryArchive) Recent(_ context.Context, limit int) ([]domain.ArchivedGame, error) {
	m.mu.RLock()
	items := append([]domain.ArchivedGame(nil), m.games...)
	m.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MemoryArchive) Close() error { return nil }

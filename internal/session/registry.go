package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry keeps live sessions by id and evicts idle ones.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     Deps
	idleTTL  time.Duration
	onEvict  func(id string)
}

func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	deps.normalize()
	return &Registry{sessions: make(map[string]*Session), deps: deps, idleTTL: idleTTL}
}

// OnEvict registers a callback run after a session is dropped.
func (r *Registry) OnEvict(fn func(id string)) { r.onEvict = fn }

func (r *Registry) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	s, err := New(ctx, id, r.deps)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()
	r.deps.Logger.Info("session_created", zap.String("session_id", id), zap.Int("live", n))
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok && r.onEvict != nil {
		r.onEvict(id)
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}
	var stale []string
	r.mu.RLock()
	for id, s := range r.sessions {
		if now.Sub(s.LastActive()) > r.idleTTL {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		if r.Remove(id) {
			r.deps.Logger.Info("session_evicted", zap.String("session_id", id))
		}
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.Sweep(now)
		}
	}
}

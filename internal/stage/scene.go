package stage

import (
	"sync"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

// EntityID names a visual piece entity. Zero is never allocated.
type EntityID uint64

// Scene is the renderer side of the stage. Calls arrive in the order the
// engine decided them and must not re-enter the engine.
type Scene interface {
	Create(id EntityID, piece domain.Piece, tmpl Template, pos domain.Vec3)
	Destroy(id EntityID)
	Reposition(id EntityID, pos domain.Vec3)
}

type OpKind string

const (
	OpCreate     OpKind = "create"
	OpDestroy    OpKind = "destroy"
	OpReposition OpKind = "reposition"
)

// Op is one recorded scene call.
type Op struct {
	Kind     OpKind      `json:"op"`
	ID       EntityID    `json:"id"`
	Piece    string      `json:"piece,omitempty"`
	Mesh     string      `json:"mesh,omitempty"`
	Position domain.Vec3 `json:"position"`
}

// Recorder is an in-memory Scene. It keeps the live entity set and an
// append-only op log that callers drain with Drain.
type Recorder struct {
	mu      sync.Mutex
	ops     []Op
	live    map[EntityID]domain.Piece
	created int
	removed int
}

func NewRecorder() *Recorder {
	return &Recorder{live: make(map[EntityID]domain.Piece)}
}

func (r *Recorder) Create(id EntityID, piece domain.Piece, tmpl Template, pos domain.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[id] = piece
	r.created++
	r.ops = append(r.ops, Op{Kind: OpCreate, ID: id, Piece: piece.Code(), Mesh: tmpl.Mesh, Position: pos})
}

func (r *Recorder) Destroy(id EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, id)
	r.removed++
	r.ops = append(r.ops, Op{Kind: OpDestroy, ID: id})
}

func (r *Recorder) Reposition(id EntityID, pos domain.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: OpReposition, ID: id, Position: pos})
}

// Drain returns the ops recorded since the previous call.
func (r *Recorder) Drain() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.ops
	r.ops = nil
	return out
}

func (r *Recorder) Live() map[EntityID]domain.Piece {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[EntityID]domain.Piece, len(r.live))
	for id, p := range r.live {
		out[id] = p
	}
	return out
}

// Totals reports lifetime create and destroy counts.
func (r *Recorder) Totals() (created, destroyed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created, r.removed
}

type multiScene []Scene

// Fanout forwards every call to each scene in order.
func Fanout(scenes ...Scene) Scene {
	out := make(multiScene, 0, len(scenes))
	for _, s := range scenes {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiScene) Create(id EntityID, piece domain.Piece, tmpl Template, pos domain.Vec3) {
	for _, s := range m {
		s.Create(id, piece, tmpl, pos)
	}
}

func (m multiScene) Destroy(id EntityID) {
	for _, s := range m {
		s.Destroy(id)
	}
}

func (m multiScene) Reposition(id EntityID, pos domain.Vec3) {
	for _, s := range m {
		s.Reposition(id, pos)
	}
}

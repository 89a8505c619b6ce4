package stage

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

// Stats counts the scene calls made by one Reconcile.
type Stats struct {
	Created      int
	Destroyed    int
	Repositioned int
}

// Engine keeps the visual piece index consistent with the logical board.
type Engine struct {
	assets *AssetCache
	scene  Scene
	index  *VisualPieceIndex
	nextID EntityID
	logger *zap.Logger
}

func NewEngine(assets *AssetCache, scene Scene, logger *zap.Logger) (*Engine, error) {
	if assets == nil {
		return nil, errors.New("asset cache is required")
	}
	if scene == nil {
		return nil, errors.New("scene is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{assets: assets, scene: scene, index: NewVisualPieceIndex(), logger: logger}, nil
}

func (e *Engine) Index() *VisualPieceIndex { return e.index }

// Reconcile brings the index in line with board:
// vacated squares lose their entity, new squares get one, a square whose
// piece changed identity (promotion) gets a fresh entity, and everything
// else is only repositioned. Running it twice on the same board creates and
// destroys nothing the second time.
func (e *Engine) Reconcile(board domain.Board) (Stats, error) {
	var stats Stats
	if !e.assets.Ready() {
		return stats, ErrAssetsNotReady
	}

	// resolve templates up front so a missing one leaves the index untouched.
	occupied := board.Occupied()
	templates := make(map[domain.PieceKind]Template, 6)
	for _, sq := range occupied {
		p, _ := board.Piece(sq)
		if _, ok := templates[p.Kind]; ok {
			continue
		}
		tmpl, err := e.assets.Template(p.Kind)
		if err != nil {
			return stats, fmt.Errorf("reconcile %s: %w", sq, err)
		}
		templates[p.Kind] = tmpl
	}

	for _, sq := range e.index.Squares() {
		if _, ok := board.Piece(sq); ok {
			continue
		}
		entry, _ := e.index.remove(sq)
		e.scene.Destroy(entry.ID)
		stats.Destroyed++
	}

	for _, sq := range occupied {
		piece, _ := board.Piece(sq)
		pos := WorldPosition(sq)
		entry, ok := e.index.Get(sq)
		if ok && entry.Piece == piece {
			e.scene.Reposition(entry.ID, pos)
			stats.Repositioned++
			continue
		}
		if ok {
			e.index.remove(sq)
			e.scene.Destroy(entry.ID)
			stats.Destroyed++
		}
		e.nextID++
		id := e.nextID
		e.index.put(sq, Entry{ID: id, Piece: piece})
		e.scene.Create(id, piece, templates[piece.Kind], pos)
		stats.Created++
	}

	if stats.Created > 0 || stats.Destroyed > 0 {
		e.logger.Debug("stage_reconcile",
			zap.Int("created", stats.Created),
			zap.Int("destroyed", stats.Destroyed),
			zap.Int("entities", e.index.Len()),
		)
	}
	return stats, nil
}

// Clear destroys every entity. Used when a session is discarded.
func (e *Engine) Clear() int {
	n := 0
	for _, sq := range e.index.Squares() {
		entry, _ := e.index.remove(sq)
		e.scene.Destroy(entry.ID)
		n++
	}
	return n
}

package stage

import "github.com/park285/Cheese-3DChess/internal/domain"

// Entry is the index value for one occupied square.
type Entry struct {
	ID    EntityID
	Piece domain.Piece
}

// VisualPieceIndex maps squares to entities and back. Both directions are
// updated together so hit-testing an entity never scans the board.
type VisualPieceIndex struct {
	bySquare [64]Entry
	byEntity map[EntityID]domain.Square
}

func NewVisualPieceIndex() *VisualPieceIndex {
	return &VisualPieceIndex{byEntity: make(map[EntityID]domain.Square)}
}

func (x *VisualPieceIndex) Get(sq domain.Square) (Entry, bool) {
	if !sq.Valid() {
		return Entry{}, false
	}
	e := x.bySquare[sq]
	return e, e.ID != 0
}

// SquareOf resolves a rendering hit back to its square.
func (x *VisualPieceIndex) SquareOf(id EntityID) (domain.Square, bool) {
	sq, ok := x.byEntity[id]
	return sq, ok
}

func (x *VisualPieceIndex) Len() int { return len(x.byEntity) }

// Squares lists occupied squares in ascending order.
func (x *VisualPieceIndex) Squares() []domain.Square {
	out := make([]domain.Square, 0, len(x.byEntity))
	for i := range x.bySquare {
		if x.bySquare[i].ID != 0 {
			out = append(out, domain.Square(i))
		}
	}
	return out
}

// Board rebuilds the placement the index currently reflects.
func (x *VisualPieceIndex) Board() domain.Board {
	var b domain.Board
	for i := range x.bySquare {
		if x.bySquare[i].ID != 0 {
			b[i] = x.bySquare[i].Piece
		}
	}
	return b
}

func (x *VisualPieceIndex) put(sq domain.Square, e Entry) {
	if old := x.bySquare[sq]; old.ID != 0 {
		delete(x.byEntity, old.ID)
	}
	x.bySquare[sq] = e
	x.byEntity[e.ID] = sq
}

func (x *VisualPieceIndex) remove(sq domain.Square) (Entry, bool) {
	e := x.bySquare[sq]
	if e.ID == 0 {
		return Entry{}, false
	}
	x.bySquare[sq] = Entry{}
	delete(x.byEntity, e.ID)
	return e, true
}

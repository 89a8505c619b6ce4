package domain

// Board is a placement snapshot indexed by Square. Empty squares hold the zero Piece.
type Board [64]Piece

func (b *Board) Piece(sq Square) (Piece, bool) {
	if !sq.Valid() {
		return Piece{}, false
	}
	p := b[sq]
	return p, !p.IsZero()
}

func (b *Board) Set(sq Square, p Piece) {
	if sq.Valid() {
		b[sq] = p
	}
}

// Occupied returns the occupied squares in ascending square order.
func (b *Board) Occupied() []Square {
	out := make([]Square, 0, 32)
	for i := range b {
		if !b[i].IsZero() {
			out = append(out, Square(i))
		}
	}
	return out
}

func (b *Board) Count() int {
	n := 0
	for i := range b {
		if !b[i].IsZero() {
			n++
		}
	}
	return n
}

// LegalTarget describes one destination reachable from a selected square.
type LegalTarget struct {
	To        Square
	IsCapture bool
	Promotion PieceKind
}

// MoveRecord is the verbose description of an applied move.
type MoveRecord struct {
	From      Square
	To        Square
	Side      Side
	Piece     PieceKind
	Captured  PieceKind
	Promotion PieceKind
	SAN       string
	Flags     string
}

func (m MoveRecord) IsCapture() bool { return m.Captured != NoKind }

// UCI renders the move in coordinate notation ("e7e8q").
func (m MoveRecord) UCI() string {
	return m.From.String() + m.To.String() + m.Promotion.Code()
}

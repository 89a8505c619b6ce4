package chess

import (
	"errors"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

var (
	knightSteps = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookRays    = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopRays  = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

func offset(sq domain.Square, df, dr int) (domain.Square, bool) {
	next := domain.NewSquare(sq.File()+df, sq.Rank()+dr)
	return next, next.Valid()
}

func kingSquare(b *domain.Board, side domain.Side) (domain.Square, bool) {
	for _, sq := range b.Occupied() {
		if p, _ := b.Piece(sq); p.Kind == domain.King && p.Side == side {
			return sq, true
		}
	}
	return domain.NoSquare, false
}

// attacked reports whether any piece of side by attacks target.
func attacked(b *domain.Board, target domain.Square, by domain.Side) bool {
	for _, st := range knightSteps {
		if sq, ok := offset(target, st[0], st[1]); ok {
			if p, ok := b.Piece(sq); ok && p.Side == by && p.Kind == domain.Knight {
				return true
			}
		}
	}
	for _, st := range kingSteps {
		if sq, ok := offset(target, st[0], st[1]); ok {
			if p, ok := b.Piece(sq); ok && p.Side == by && p.Kind == domain.King {
				return true
			}
		}
	}
	// a white pawn attacks upward, so it sits one rank below the target.
	pawnRank := -1
	if by == domain.Black {
		pawnRank = 1
	}
	for _, df := range [2]int{-1, 1} {
		if sq, ok := offset(target, df, pawnRank); ok {
			if p, ok := b.Piece(sq); ok && p.Side == by && p.Kind == domain.Pawn {
				return true
			}
		}
	}
	if rayHits(b, target, by, rookRays[:], domain.Rook) || rayHits(b, target, by, bishopRays[:], domain.Bishop) {
		return true
	}
	return false
}

func rayHits(b *domain.Board, target domain.Square, by domain.Side, rays [][2]int, slider domain.PieceKind) bool {
	for _, ray := range rays {
		sq := target
		for {
			next, ok := offset(sq, ray[0], ray[1])
			if !ok {
				break
			}
			sq = next
			p, occupied := b.Piece(sq)
			if !occupied {
				continue
			}
			if p.Side == by && (p.Kind == slider || p.Kind == domain.Queen) {
				return true
			}
			break
		}
	}
	return false
}

// validatePlacement rejects positions no game can reach: missing or extra
// kings, pawns on the back ranks, or the side not to move left in check.
func validatePlacement(b domain.Board, turn domain.Side) error {
	kings := map[domain.Side]int{}
	for _, sq := range b.Occupied() {
		p, _ := b.Piece(sq)
		if p.Kind == domain.King {
			kings[p.Side]++
		}
		if p.Kind == domain.Pawn && (sq.Rank() == 1 || sq.Rank() == 8) {
			return errors.New("pawn on back rank")
		}
	}
	if kings[domain.White] != 1 || kings[domain.Black] != 1 {
		return errors.New("each side needs exactly one king")
	}
	idle := turn.Opponent()
	if king, ok := kingSquare(&b, idle); ok && attacked(&b, king, turn) {
		return errors.New("side not to move is in check")
	}
	return nil
}

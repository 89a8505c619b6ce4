package chess

import (
	nchess "github.com/corentings/chess/v2"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

func toSquare(sq nchess.Square) domain.Square {
	return domain.NewSquare(int(sq.File()), int(sq.Rank())+1)
}

func toLibSquare(sq domain.Square) nchess.Square {
	return nchess.NewSquare(nchess.File(sq.File()), nchess.Rank(sq.Rank()-1))
}

func sideOf(c nchess.Color) domain.Side {
	if c == nchess.Black {
		return domain.Black
	}
	return domain.White
}

func toKind(pt nchess.PieceType) domain.PieceKind {
	switch pt {
	case nchess.Pawn:
		return domain.Pawn
	case nchess.Rook:
		return domain.Rook
	case nchess.Knight:
		return domain.Knight
	case nchess.Bishop:
		return domain.Bishop
	case nchess.Queen:
		return domain.Queen
	case nchess.King:
		return domain.King
	default:
		return domain.NoKind
	}
}

func toLibKind(k domain.PieceKind) nchess.PieceType {
	switch k {
	case domain.Pawn:
		return nchess.Pawn
	case domain.Rook:
		return nchess.Rook
	case domain.Knight:
		return nchess.Knight
	case domain.Bishop:
		return nchess.Bishop
	case domain.Queen:
		return nchess.Queen
	case domain.King:
		return nchess.King
	default:
		return nchess.NoPieceType
	}
}

func toPiece(p nchess.Piece) domain.Piece {
	return domain.Piece{Kind: toKind(p.Type()), Side: sideOf(p.Color())}
}

func boardOf(pos *nchess.Position) domain.Board {
	var b domain.Board
	if pos == nil {
		return b
	}
	for sq, pc := range pos.Board().SquareMap() {
		if pc == nchess.NoPiece {
			continue
		}
		b.Set(toSquare(sq), toPiece(pc))
	}
	return b
}

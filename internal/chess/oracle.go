package chess

import (
	"errors"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrInvalidFEN  = errors.New("invalid fen")
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Oracle is the authoritative rules source consumed by the stage, the
// interaction controller and the replay engine.
type Oracle interface {
	Reset()
	Load(fen string) error
	Board() domain.Board
	Turn() domain.Side
	Moves(from domain.Square) []domain.LegalTarget
	// Move applies from->to. A NoKind promotion defaults to queen when the move promotes.
	Move(from, to domain.Square, promotion domain.PieceKind) (domain.MoveRecord, error)
	IsGameOver() bool
	IsCheckmate() bool
	IsDraw() bool
	InCheck() bool
	FEN() string
	History() []domain.MoveRecord
}

// Factory builds a fresh oracle at the initial position.
type Factory func() Oracle

// NewOracle is the default Factory.
func NewOracle() Oracle { return NewGame() }

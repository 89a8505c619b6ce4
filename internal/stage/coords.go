package stage

import "github.com/park285/Cheese-3DChess/internal/domain"

const (
	SquareSize  = 1.0
	PieceHeight = 0.35
)

// WorldPosition is the resting point of a piece standing on sq.
func WorldPosition(sq domain.Square) domain.Vec3 {
	index := sq.Index()
	file := index % 8
	row := index / 8
	return domain.Vec3{
		X: (float64(file) - 3.5) * SquareSize,
		Y: PieceHeight,
		Z: (float64(row) - 3.5) * SquareSize,
	}
}

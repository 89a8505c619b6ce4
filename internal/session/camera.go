package session

import (
	"math"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

// DefaultCamera is the orbit pose of a new game.
func DefaultCamera() domain.CameraPose {
	return domain.CameraPose{Position: domain.Vec3{X: 6, Y: 8, Z: 10}}
}

// FlipPose turns the camera half way around the board about its target.
func FlipPose(p domain.CameraPose) domain.CameraPose {
	offset := p.Position.Sub(p.Target).RotateY(math.Pi)
	return domain.CameraPose{
		Position:       p.Target.Add(offset),
		Target:         p.Target,
		IsBoardFlipped: !p.IsBoardFlipped,
	}
}

package stage

import "github.com/park285/Cheese-3DChess/internal/domain"

const (
	traySpacing = 0.6
	trayOffsetX = 6.0
)

// TraySlot is one captured piece laid out beside the board.
type TraySlot struct {
	Piece    domain.Piece `json:"piece"`
	Position domain.Vec3  `json:"position"`
}

// Trays holds the captured pieces of each side. White holds the white
// pieces black has taken and stands at x=-6; Black mirrors it at x=+6.
type Trays struct {
	White []TraySlot `json:"white"`
	Black []TraySlot `json:"black"`
}

// LayoutTrays rebuilds both trays from the verbose move history.
func LayoutTrays(history []domain.MoveRecord) Trays {
	var lostWhite, lostBlack []domain.PieceKind
	for _, mv := range history {
		if mv.Captured == domain.NoKind {
			continue
		}
		if mv.Side == domain.White {
			lostBlack = append(lostBlack, mv.Captured)
		} else {
			lostWhite = append(lostWhite, mv.Captured)
		}
	}
	return Trays{
		White: layoutTray(lostWhite, domain.White, -trayOffsetX),
		Black: layoutTray(lostBlack, domain.Black, trayOffsetX),
	}
}

func layoutTray(kinds []domain.PieceKind, side domain.Side, x float64) []TraySlot {
	out := make([]TraySlot, 0, len(kinds))
	centre := float64(len(kinds)-1) / 2
	for i, k := range kinds {
		out = append(out, TraySlot{
			Piece: domain.Piece{Kind: k, Side: side},
			Position: domain.Vec3{
				X: x,
				Y: PieceHeight,
				Z: (float64(i) - centre) * traySpacing,
			},
		})
	}
	return out
}

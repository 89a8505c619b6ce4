package stagepresenter

import (
	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/highlight"
	"github.com/park285/Cheese-3DChess/internal/persist"
	"github.com/park285/Cheese-3DChess/internal/session"
	"github.com/park285/Cheese-3DChess/internal/stage"
	"github.com/park285/Cheese-3DChess/internal/theme"
	"github.com/park285/Cheese-3DChess/pkg/stagedto"
)

func State(v session.View) *stagedto.SessionState {
	out := &stagedto.SessionState{
		ID:          v.ID,
		FEN:         v.FEN,
		Turn:        v.Turn.String(),
		Status:      v.Status,
		InCheck:     v.InCheck,
		GameOver:    v.GameOver,
		Highlights:  Highlights(v.Highlights),
		Pieces:      make([]stagedto.Piece, 0, len(v.Pieces)),
		History:     make([]stagedto.Move, 0, len(v.History)),
		HistoryRows: append([]string{}, v.HistoryRows...),
		Theme:       Palette(v.Palette),
		Camera:      Camera(v.Camera),
		Toast:       v.Toast,
	}
	out.WhiteTray, out.BlackTray = Trays(v.Trays)
	if v.Selected != nil {
		out.Selected = v.Selected.String()
	}
	for _, p := range v.Pieces {
		out.Pieces = append(out.Pieces, stagedto.Piece{
			Entity:   uint64(p.Entity),
			Square:   p.Square.String(),
			Piece:    p.Piece.Code(),
			Name:     p.Piece.Title(),
			Position: Vec(p.Position),
		})
	}
	for _, m := range v.History {
		out.History = append(out.History, Move(m))
	}
	if v.LastMove != nil {
		last := Move(*v.LastMove)
		out.LastMove = &last
	}
	if v.Opening.Code != "" {
		out.Opening = &stagedto.Opening{Code: v.Opening.Code, Title: v.Opening.Title, Label: v.Opening.Label}
	}
	return out
}

func Highlights(m highlight.Map) map[string]string {
	out := make(map[string]string)
	for _, sq := range domain.AllSquares() {
		if c := m.At(sq); c != highlight.None {
			out[sq.String()] = c.String()
		}
	}
	return out
}

func Move(m domain.MoveRecord) stagedto.Move {
	e := persist.EntryFromMove(m)
	return stagedto.Move{
		From:      e.From,
		To:        e.To,
		Color:     e.Color,
		Piece:     e.Piece,
		Captured:  e.Captured,
		Promotion: e.Promotion,
		SAN:       e.SAN,
		Flags:     e.Flags,
	}
}

func Vec(v domain.Vec3) stagedto.Vec3 { return stagedto.Vec3{X: v.X, Y: v.Y, Z: v.Z} }

func Camera(c domain.CameraPose) stagedto.Camera {
	return stagedto.Camera{Position: Vec(c.Position), Target: Vec(c.Target), IsBoardFlipped: c.IsBoardFlipped}
}

// CameraPose converts a client supplied camera back to the domain type.
func CameraPose(c stagedto.Camera) domain.CameraPose {
	return domain.CameraPose{
		Position:       domain.Vec3{X: c.Position.X, Y: c.Position.Y, Z: c.Position.Z},
		Target:         domain.Vec3{X: c.Target.X, Y: c.Target.Y, Z: c.Target.Z},
		IsBoardFlipped: c.IsBoardFlipped,
	}
}

func Palette(p theme.Palette) stagedto.Palette {
	return stagedto.Palette{
		ID:         p.ID,
		Name:       p.Name,
		BoardLight: p.BoardLight.Hex(),
		BoardDark:  p.BoardDark.Hex(),
		Frame:      p.Frame.Hex(),
		WhitePiece: p.WhitePiece.Hex(),
		BlackPiece: p.BlackPiece.Hex(),
		Background: p.Background.Hex(),
		Ground:     p.Ground.Hex(),
	}
}

func Ops(ops []stage.Op) []stagedto.SceneOp {
	out := make([]stagedto.SceneOp, 0, len(ops))
	for _, op := range ops {
		out = append(out, Op(op))
	}
	return out
}

func Op(op stage.Op) stagedto.SceneOp {
	dto := stagedto.SceneOp{Kind: string(op.Kind), Entity: uint64(op.ID), Piece: op.Piece, Mesh: op.Mesh}
	if op.Kind != stage.OpDestroy {
		pos := Vec(op.Position)
		dto.Position = &pos
	}
	return dto
}

func Replay(r persist.ReplayResult) stagedto.ReplaySummary {
	return stagedto.ReplaySummary{
		Path:        string(r.Path),
		Applied:     r.Applied,
		Skipped:     r.Skipped,
		Rejected:    r.Rejected,
		FENMismatch: r.FENMismatch,
	}
}

func ArchivedGames(games []domain.ArchivedGame) []stagedto.ArchivedGame {
	out := make([]stagedto.ArchivedGame, 0, len(games))
	for _, g := range games {
		out = append(out, stagedto.ArchivedGame{
			ID:         g.ID,
			SessionID:  g.SessionID,
			Result:     g.Result,
			Method:     g.Method,
			MovesSAN:   append([]string{}, g.MovesSAN...),
			FinalFEN:   g.FinalFEN,
			EndedAt:    g.EndedAt.UnixMilli(),
			DurationMS: g.Duration().Milliseconds(),
		})
	}
	return out
}

func Trays(t stage.Trays) (white, black []stagedto.TrayPiece) {
	return tray(t.White), tray(t.Black)
}

func tray(slots []stage.TraySlot) []stagedto.TrayPiece {
	out := make([]stagedto.TrayPiece, 0, len(slots))
	for _, s := range slots {
		out = append(out, stagedto.TrayPiece{Piece: s.Piece.Code(), Position: Vec(s.Position)})
	}
	return out
}

func Tap(res session.TapResult, v session.View) *stagedto.TapResponse {
	out := &stagedto.TapResponse{
		Transition: string(res.Outcome.Transition),
		Notice:     string(res.Outcome.Notice),
		Toast:      res.Toast,
		Ops:        Ops(res.Ops),
		State:      State(v),
	}
	if res.Outcome.Move != nil {
		mv := Move(*res.Outcome.Move)
		out.Move = &mv
	}
	return out
}

func Load(rep session.Report, v session.View) *stagedto.LoadResponse {
	out := &stagedto.LoadResponse{Toast: rep.Toast, Ops: Ops(rep.Ops), State: State(v)}
	if rep.Replay.Path != "" {
		r := Replay(rep.Replay)
		out.Replay = &r
	}
	return out
}

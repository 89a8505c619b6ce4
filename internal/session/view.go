package session

import (
	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/highlight"
	"github.com/park285/Cheese-3DChess/internal/interaction"
	"github.com/park285/Cheese-3DChess/internal/msgcat"
	"github.com/park285/Cheese-3DChess/internal/stage"
	"github.com/park285/Cheese-3DChess/internal/theme"
)

type PieceView struct {
	Entity   stage.EntityID
	Square   domain.Square
	Piece    domain.Piece
	Position domain.Vec3
}

type Opening struct {
	Code  string
	Title string
	Label string
}

// View is a read-only snapshot of everything a client renders.
type View struct {
	ID          string
	FEN         string
	Turn        domain.Side
	Status      string
	InCheck     bool
	GameOver    bool
	Selected    *domain.Square
	Targets     []domain.LegalTarget
	Highlights  highlight.Map
	Board       domain.Board
	History     []domain.MoveRecord
	HistoryRows []string
	LastMove    *domain.MoveRecord
	Pieces      []PieceView
	Trays       stage.Trays
	Palette     theme.Palette
	Camera      domain.CameraPose
	Opening     Opening
	Toast       string
}

type opener interface {
	Opening() (code, title string)
}

func (s *Session) State() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.ctrl.History()
	v := View{
		ID:          s.id,
		FEN:         s.oracle.FEN(),
		Turn:        s.oracle.Turn(),
		Status:      s.statusLine(),
		InCheck:     s.oracle.InCheck(),
		GameOver:    s.oracle.IsGameOver(),
		Highlights:  s.ctrl.Highlights(),
		Board:       s.oracle.Board(),
		History:     history,
		HistoryRows: HistoryRows(history, s.deps.Messages),
		Trays:       stage.LayoutTrays(history),
		Palette:     s.palette,
		Camera:      s.camera,
		Toast:       s.toast,
	}
	if sel := s.ctrl.Selection(); sel.Active {
		sq := sel.Square
		v.Selected = &sq
		v.Targets = sel.Targets
	}
	if n := len(history); n > 0 {
		last := history[n-1]
		v.LastMove = &last
	}

	index := s.engine.Index()
	for _, sq := range index.Squares() {
		e, _ := index.Get(sq)
		v.Pieces = append(v.Pieces, PieceView{Entity: e.ID, Square: sq, Piece: e.Piece, Position: stage.WorldPosition(sq)})
	}

	if o, ok := s.oracle.(opener); ok {
		if code, title := o.Opening(); code != "" {
			v.Opening = Opening{
				Code:  code,
				Title: title,
				Label: s.deps.Messages.Text("opening.label", map[string]string{"Code": code, "Title": title}),
			}
		}
	}
	return v
}

func (s *Session) statusLine() string {
	msgs := s.deps.Messages
	notice, winner := interaction.EvaluateEnd(s.oracle)
	switch notice {
	case interaction.NoticeCheckmate:
		return msgs.Text("indicator.checkmate", map[string]string{"Winner": winner.Title()})
	case interaction.NoticeDraw:
		return msgs.Text("indicator.draw", nil)
	case interaction.NoticeGameOver:
		return msgs.Text("indicator.game_over", nil)
	default:
		return msgs.Text("indicator.turn", map[string]string{"Side": s.oracle.Turn().Title()})
	}
}

// HistoryRows pairs moves into numbered rows: "1. e4 e5", "2. Nf3".
func HistoryRows(history []domain.MoveRecord, msgs *msgcat.Catalog) []string {
	var rows []string
	for i := 0; i < len(history); {
		n := len(rows) + 1
		white := history[i]
		if white.Side == domain.Black {
			rows = append(rows, msgs.Text("history.black_only", map[string]any{"Number": n, "Black": notation(white)}))
			i++
			continue
		}
		if i+1 < len(history) && history[i+1].Side == domain.Black {
			rows = append(rows, msgs.Text("history.full", map[string]any{
				"Number": n, "White": notation(white), "Black": notation(history[i+1]),
			}))
			i += 2
			continue
		}
		rows = append(rows, msgs.Text("history.white_only", map[string]any{"Number": n, "White": notation(white)}))
		i++
	}
	return rows
}

func notation(m domain.MoveRecord) string {
	if m.SAN != "" {
		return m.SAN
	}
	return m.UCI()
}

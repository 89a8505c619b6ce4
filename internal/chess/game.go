package chess

import (
	"fmt"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

// Game is the Oracle backed by corentings/chess.
type Game struct {
	game *nchess.Game
}

var _ Oracle = (*Game)(nil)

func NewGame() *Game {
	return &Game{game: nchess.NewGame()}
}

func (g *Game) Reset() {
	g.game = nchess.NewGame()
}

// Load replaces the game with the given position. The current game is kept when the FEN is rejected.
func (g *Game) Load(fen string) error {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFEN)
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	next := nchess.NewGame(opt)
	pos := next.Position()
	if pos == nil {
		return fmt.Errorf("%w: no position", ErrInvalidFEN)
	}
	if err := validatePlacement(boardOf(pos), sideOf(pos.Turn())); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	g.game = next
	return nil
}

func (g *Game) Board() domain.Board {
	return boardOf(g.game.Position())
}

func (g *Game) Turn() domain.Side {
	return sideOf(g.game.Position().Turn())
}

func (g *Game) Moves(from domain.Square) []domain.LegalTarget {
	if !from.Valid() {
		return nil
	}
	src := toLibSquare(from)
	board := g.game.Position().Board()
	var out []domain.LegalTarget
	seen := make(map[domain.Square]int)
	for _, mv := range g.game.ValidMoves() {
		if mv.S1() != src {
			continue
		}
		to := toSquare(mv.S2())
		promo := toKind(mv.Promo())
		// promotions come as four moves per destination; keep one entry with the queen.
		if i, ok := seen[to]; ok {
			if promo == domain.Queen {
				out[i].Promotion = domain.Queen
			}
			continue
		}
		capture := mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant) || board.Piece(mv.S2()) != nchess.NoPiece
		seen[to] = len(out)
		out = append(out, domain.LegalTarget{To: to, IsCapture: capture, Promotion: promo})
	}
	return out
}

func (g *Game) Move(from, to domain.Square, promotion domain.PieceKind) (domain.MoveRecord, error) {
	if !from.Valid() || !to.Valid() {
		return domain.MoveRecord{}, fmt.Errorf("%w: %s%s", ErrIllegalMove, from, to)
	}
	if promotion == domain.NoKind {
		promotion = domain.Queen
	}
	src, dst := toLibSquare(from), toLibSquare(to)
	want := toLibKind(promotion)

	uci := ""
	for _, mv := range g.game.ValidMoves() {
		if mv.S1() != src || mv.S2() != dst {
			continue
		}
		if p := mv.Promo(); p != nchess.NoPieceType {
			if p != want {
				continue
			}
			uci = from.String() + to.String() + promotion.Code()
		} else {
			uci = from.String() + to.String()
		}
		break
	}
	if uci == "" {
		return domain.MoveRecord{}, fmt.Errorf("%w: %s%s", ErrIllegalMove, from, to)
	}
	if err := g.game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return domain.MoveRecord{}, fmt.Errorf("%w: %s: %v", ErrIllegalMove, uci, err)
	}

	moves := g.game.Moves()
	positions := g.game.Positions()
	i := len(moves) - 1
	if i < 0 || i >= len(positions) {
		return domain.MoveRecord{}, fmt.Errorf("%w: history out of sync after %s", ErrIllegalMove, uci)
	}
	return describe(positions[i], moves[i]), nil
}

func (g *Game) InCheck() bool {
	board := g.Board()
	turn := g.Turn()
	king, ok := kingSquare(&board, turn)
	if !ok {
		return false
	}
	return attacked(&board, king, turn.Opponent())
}

// IsCheckmate reads the library's position status, which is evaluated after
// every move and when a FEN is loaded.
func (g *Game) IsCheckmate() bool {
	return g.game.Method() == nchess.Checkmate
}

func (g *Game) IsStalemate() bool {
	return g.game.Method() == nchess.Stalemate
}

// IsDraw counts claimable draws (threefold, fifty-move) as draws.
func (g *Game) IsDraw() bool {
	return g.game.Outcome() == nchess.Draw || g.drawMethod() != ""
}

func (g *Game) drawMethod() string {
	for _, m := range g.game.EligibleDraws() {
		switch m {
		case nchess.ThreefoldRepetition:
			return "threefold_repetition"
		case nchess.FiftyMoveRule:
			return "fifty_move_rule"
		}
	}
	return ""
}

func (g *Game) IsGameOver() bool {
	return g.game.Outcome() != nchess.NoOutcome || g.drawMethod() != ""
}

// Result reports the PGN result token and how the game ended; "*" while in progress.
func (g *Game) Result() (result, method string) {
	switch g.game.Outcome() {
	case nchess.WhiteWon:
		return "1-0", methodName(g.game.Method())
	case nchess.BlackWon:
		return "0-1", methodName(g.game.Method())
	case nchess.Draw:
		return "1/2-1/2", methodName(g.game.Method())
	}
	if m := g.drawMethod(); m != "" {
		return "1/2-1/2", m
	}
	return "*", ""
}

func (g *Game) FEN() string {
	return g.game.Position().String()
}

func (g *Game) History() []domain.MoveRecord {
	moves := g.game.Moves()
	positions := g.game.Positions()
	out := make([]domain.MoveRecord, 0, len(moves))
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		out = append(out, describe(positions[i], mv))
	}
	return out
}

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// Opening returns the ECO code and title of the current line, if any.
// Games loaded from a non-initial FEN have no opening.
func (g *Game) Opening() (code, title string) {
	positions := g.game.Positions()
	if len(positions) == 0 || placement(positions[0].String()) != placement(StartFEN) {
		return "", ""
	}
	moves := g.game.Moves()
	if len(moves) == 0 {
		return "", ""
	}
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	if ecoBook == nil {
		return "", ""
	}
	if o := ecoBook.Find(moves); o != nil {
		return o.Code(), o.Title()
	}
	return "", ""
}

func methodName(m nchess.Method) string {
	switch m {
	case nchess.Checkmate:
		return "checkmate"
	case nchess.Resignation:
		return "resignation"
	case nchess.DrawOffer:
		return "draw_offer"
	case nchess.Stalemate:
		return "stalemate"
	case nchess.ThreefoldRepetition:
		return "threefold_repetition"
	case nchess.FivefoldRepetition:
		return "fivefold_repetition"
	case nchess.FiftyMoveRule:
		return "fifty_move_rule"
	case nchess.SeventyFiveMoveRule:
		return "seventy_five_move_rule"
	case nchess.InsufficientMaterial:
		return "insufficient_material"
	default:
		return ""
	}
}

func placement(fen string) string {
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		return fen[:i]
	}
	return fen
}

func describe(pos *nchess.Position, mv *nchess.Move) domain.MoveRecord {
	board := pos.Board()
	moved := board.Piece(mv.S1())
	rec := domain.MoveRecord{
		From:      toSquare(mv.S1()),
		To:        toSquare(mv.S2()),
		Side:      sideOf(moved.Color()),
		Piece:     toKind(moved.Type()),
		Promotion: toKind(mv.Promo()),
	}
	target := board.Piece(mv.S2())
	// a diagonal pawn step onto an empty square can only be en passant.
	enPassant := mv.HasTag(nchess.EnPassant) ||
		(rec.Piece == domain.Pawn && rec.From.File() != rec.To.File() && target == nchess.NoPiece)
	if enPassant {
		rec.Captured = domain.Pawn
	} else if target != nchess.NoPiece {
		rec.Captured = toKind(target.Type())
	}
	rec.SAN = nchess.AlgebraicNotation{}.Encode(pos, mv)
	rec.Flags = moveFlags(rec, enPassant)
	return rec
}

// moveFlags uses the single-letter flag alphabet of saved records:
// n normal, c capture, b double pawn push, e en passant, p promotion, k/q castling.
func moveFlags(rec domain.MoveRecord, enPassant bool) string {
	var b strings.Builder
	if rec.Captured != domain.NoKind && !enPassant {
		b.WriteByte('c')
	}
	if rec.Piece == domain.Pawn && abs(rec.To.Rank()-rec.From.Rank()) == 2 {
		b.WriteByte('b')
	}
	if enPassant {
		b.WriteByte('e')
	}
	if rec.Promotion != domain.NoKind {
		b.WriteByte('p')
	}
	if rec.Piece == domain.King {
		switch rec.To.File() - rec.From.File() {
		case 2:
			b.WriteByte('k')
		case -2:
			b.WriteByte('q')
		}
	}
	if b.Len() == 0 {
		return "n"
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

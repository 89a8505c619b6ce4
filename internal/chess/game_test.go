package chess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

func sq(s string) domain.Square { return domain.MustSquare(s) }

func play(t *testing.T, g *Game, uci ...string) {
	t.Helper()
	for _, m := range uci {
		_, err := g.Move(sq(m[:2]), sq(m[2:4]), domain.NoKind)
		require.NoError(t, err, "move %s", m)
	}
}

func targets(ts []domain.LegalTarget) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.To.String())
	}
	return out
}

func TestStartPosition(t *testing.T) {
	g := NewGame()
	board := g.Board()
	assert.Equal(t, 32, board.Count())
	assert.Equal(t, domain.White, g.Turn())
	assert.Equal(t, StartFEN, g.FEN())
	assert.ElementsMatch(t, []string{"e3", "e4"}, targets(g.Moves(sq("e2"))))
	assert.Empty(t, g.Moves(sq("e4")))
	assert.False(t, g.InCheck())
	assert.False(t, g.IsGameOver())
}

func TestMoveReturnsVerboseRecord(t *testing.T) {
	g := NewGame()
	rec, err := g.Move(sq("e2"), sq("e4"), domain.NoKind)
	require.NoError(t, err)
	assert.Equal(t, "e2", rec.From.String())
	assert.Equal(t, "e4", rec.To.String())
	assert.Equal(t, domain.Pawn, rec.Piece)
	assert.Equal(t, domain.White, rec.Side)
	assert.Equal(t, "e4", rec.SAN)
	assert.Equal(t, "b", rec.Flags)
	assert.Equal(t, domain.Black, g.Turn())
	require.Len(t, g.History(), 1)
}

func TestIllegalMoveLeavesGameUntouched(t *testing.T) {
	g := NewGame()
	_, err := g.Move(sq("e2"), sq("e5"), domain.NoKind)
	require.ErrorIs(t, err, ErrIllegalMove)
	assert.Equal(t, StartFEN, g.FEN())
	assert.Empty(t, g.History())
}

func TestFoolsMate(t *testing.T) {
	g := NewGame()
	play(t, g, "f2f3", "e7e5", "g2g4", "d8h4")
	assert.True(t, g.InCheck())
	assert.True(t, g.IsCheckmate())
	assert.True(t, g.IsGameOver())
	assert.False(t, g.IsDraw())
	assert.Equal(t, domain.White, g.Turn())
	result, method := g.Result()
	assert.Equal(t, "0-1", result)
	assert.Equal(t, "checkmate", method)
	hist := g.History()
	require.Len(t, hist, 4)
	assert.True(t, strings.HasPrefix(hist[3].SAN, "Qh4"))
}

func TestLoadRejectsBadFEN(t *testing.T) {
	g := NewGame()
	play(t, g, "e2e4")
	before := g.FEN()

	require.ErrorIs(t, g.Load("not a fen"), ErrInvalidFEN)
	require.ErrorIs(t, g.Load(""), ErrInvalidFEN)
	require.ErrorIs(t, g.Load("8/8/8/8/8/8/8/K7 w - - 0 1"), ErrInvalidFEN)
	assert.Equal(t, before, g.FEN())
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	g := NewGame()
	require.NoError(t, g.Load("8/P6k/8/8/8/8/8/K7 w - - 0 1"))

	ts := g.Moves(sq("a7"))
	require.Len(t, ts, 1)
	assert.Equal(t, domain.Queen, ts[0].Promotion)

	rec, err := g.Move(sq("a7"), sq("a8"), domain.NoKind)
	require.NoError(t, err)
	assert.Equal(t, domain.Queen, rec.Promotion)
	assert.Equal(t, "p", rec.Flags)
	board := g.Board()
	p, ok := board.Piece(sq("a8"))
	require.True(t, ok)
	assert.Equal(t, domain.Piece{Kind: domain.Queen, Side: domain.White}, p)
}

func TestEnPassantIsCapture(t *testing.T) {
	g := NewGame()
	require.NoError(t, g.Load("4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1"))

	var found bool
	for _, tgt := range g.Moves(sq("e5")) {
		if tgt.To == sq("d6") {
			found = true
			assert.True(t, tgt.IsCapture)
		}
	}
	require.True(t, found)

	rec, err := g.Move(sq("e5"), sq("d6"), domain.NoKind)
	require.NoError(t, err)
	assert.Equal(t, domain.Pawn, rec.Captured)
	assert.Equal(t, "e", rec.Flags)
	board := g.Board()
	_, ok := board.Piece(sq("d5"))
	assert.False(t, ok)
}

func TestCastlingFlag(t *testing.T) {
	g := NewGame()
	require.NoError(t, g.Load("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"))
	rec, err := g.Move(sq("e1"), sq("g1"), domain.NoKind)
	require.NoError(t, err)
	assert.Equal(t, "k", rec.Flags)
	rec, err = g.Move(sq("e8"), sq("c8"), domain.NoKind)
	require.NoError(t, err)
	assert.Equal(t, "q", rec.Flags)
}

func TestStalemateIsDraw(t *testing.T) {
	g := NewGame()
	require.NoError(t, g.Load("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"))
	assert.False(t, g.InCheck())
	assert.False(t, g.IsCheckmate())
	assert.True(t, g.IsStalemate())
	assert.True(t, g.IsDraw())
	assert.True(t, g.IsGameOver())
	result, method := g.Result()
	assert.Equal(t, "1/2-1/2", result)
	assert.Equal(t, "stalemate", method)
}

func TestLoadedCheckmateResult(t *testing.T) {
	g := NewGame()
	require.NoError(t, g.Load("R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1"))
	assert.True(t, g.InCheck())
	assert.True(t, g.IsCheckmate())
	assert.False(t, g.IsDraw())
	result, method := g.Result()
	assert.Equal(t, "1-0", result)
	assert.Equal(t, "checkmate", method)
}

func TestKingAndBishopIsDraw(t *testing.T) {
	g := NewGame()
	require.NoError(t, g.Load("8/8/4k3/8/2B5/8/4K3/8 w - - 0 1"))
	assert.True(t, g.IsDraw())
	assert.True(t, g.IsGameOver())
	_, method := g.Result()
	assert.Equal(t, "insufficient_material", method)
}

func TestRookEndingNotOver(t *testing.T) {
	g := NewGame()
	require.NoError(t, g.Load("8/8/4k3/8/8/8/4K3/R7 w - - 0 1"))
	assert.False(t, g.IsGameOver())
	result, method := g.Result()
	assert.Equal(t, "*", result)
	assert.Empty(t, method)
}

func TestBareKingsIsDraw(t *testing.T) {
	g := NewGame()
	require.NoError(t, g.Load("8/8/8/4k3/8/8/8/4K3 w - - 0 1"))
	assert.True(t, g.IsDraw())
	result, method := g.Result()
	assert.Equal(t, "1/2-1/2", result)
	assert.Equal(t, "insufficient_material", method)
}

func TestOpeningLabel(t *testing.T) {
	g := NewGame()
	code, _ := g.Opening()
	assert.Empty(t, code)
	play(t, g, "e2e4", "e7e5", "g1f3", "b8c6", "f1b5")
	code, title := g.Opening()
	assert.NotEmpty(t, code)
	assert.NotEmpty(t, title)
}

func TestAttackDetection(t *testing.T) {
	var b domain.Board
	b.Set(sq("e1"), domain.Piece{Kind: domain.King, Side: domain.White})
	b.Set(sq("e8"), domain.Piece{Kind: domain.Rook, Side: domain.Black})
	assert.True(t, attacked(&b, sq("e1"), domain.Black))

	b.Set(sq("e4"), domain.Piece{Kind: domain.Pawn, Side: domain.White})
	assert.False(t, attacked(&b, sq("e1"), domain.Black))
	assert.True(t, attacked(&b, sq("d5"), domain.White))
	assert.False(t, attacked(&b, sq("e5"), domain.White))
}

package stage

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/Cheese-3DChess/internal/chess"
	"github.com/park285/Cheese-3DChess/internal/domain"
)

func newTestEngine(t *testing.T) (*Engine, *Recorder) {
	t.Helper()
	assets := NewAssetCache(BuiltinLoader(true), nil)
	require.NoError(t, assets.Load(context.Background()))
	rec := NewRecorder()
	eng, err := NewEngine(assets, rec, nil)
	require.NoError(t, err)
	return eng, rec
}

func requireInSync(t *testing.T, eng *Engine, rec *Recorder, board domain.Board) {
	t.Helper()
	idx := eng.Index()
	require.Equal(t, board.Occupied(), idx.Squares())
	live := rec.Live()
	require.Len(t, live, idx.Len())
	for _, sq := range board.Occupied() {
		want, _ := board.Piece(sq)
		entry, ok := idx.Get(sq)
		require.True(t, ok, "no entity on %s", sq)
		require.Equal(t, want, entry.Piece, "tag on %s", sq)
		require.Equal(t, want, live[entry.ID], "scene piece on %s", sq)
		back, ok := idx.SquareOf(entry.ID)
		require.True(t, ok)
		require.Equal(t, sq, back)
	}
}

func TestReconcileRequiresReadyAssets(t *testing.T) {
	eng, err := NewEngine(NewAssetCache(nil, nil), NewRecorder(), nil)
	require.NoError(t, err)
	_, err = eng.Reconcile(chess.NewGame().Board())
	require.ErrorIs(t, err, ErrAssetsNotReady)
	assert.Zero(t, eng.Index().Len())
}

func TestReconcileStartPositionIsIdempotent(t *testing.T) {
	eng, rec := newTestEngine(t)
	board := chess.NewGame().Board()

	stats, err := eng.Reconcile(board)
	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 32}, stats)
	requireInSync(t, eng, rec, board)

	stats, err = eng.Reconcile(board)
	require.NoError(t, err)
	assert.Equal(t, Stats{Repositioned: 32}, stats)
	requireInSync(t, eng, rec, board)
}

func TestReconcileAfterMove(t *testing.T) {
	eng, rec := newTestEngine(t)
	game := chess.NewGame()
	_, err := eng.Reconcile(game.Board())
	require.NoError(t, err)
	old, _ := eng.Index().Get(domain.MustSquare("e2"))
	rec.Drain()

	_, err = game.Move(domain.MustSquare("e2"), domain.MustSquare("e4"), domain.NoKind)
	require.NoError(t, err)
	stats, err := eng.Reconcile(game.Board())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Destroyed)
	requireInSync(t, eng, rec, game.Board())

	_, ok := eng.Index().SquareOf(old.ID)
	assert.False(t, ok)
	entry, ok := eng.Index().Get(domain.MustSquare("e4"))
	require.True(t, ok)
	assert.Equal(t, domain.Piece{Kind: domain.Pawn, Side: domain.White}, entry.Piece)

	var created []Op
	for _, op := range rec.Drain() {
		if op.Kind == OpCreate {
			created = append(created, op)
		}
	}
	require.Len(t, created, 1)
	assert.Equal(t, WorldPosition(domain.MustSquare("e4")), created[0].Position)
	assert.Equal(t, "pawn", created[0].Mesh)
}

func TestReconcileRecreatesOnPromotion(t *testing.T) {
	eng, rec := newTestEngine(t)
	var board domain.Board
	a8 := domain.MustSquare("a8")
	board.Set(a8, domain.Piece{Kind: domain.Pawn, Side: domain.White})
	_, err := eng.Reconcile(board)
	require.NoError(t, err)
	pawn, _ := eng.Index().Get(a8)

	board.Set(a8, domain.Piece{Kind: domain.Queen, Side: domain.White})
	stats, err := eng.Reconcile(board)
	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 1, Destroyed: 1}, stats)
	queen, _ := eng.Index().Get(a8)
	assert.NotEqual(t, pawn.ID, queen.ID)
	requireInSync(t, eng, rec, board)
}

func TestReconcileRandomGames(t *testing.T) {
	eng, rec := newTestEngine(t)
	rng := rand.New(rand.NewSource(7))
	for game := 0; game < 3; game++ {
		g := chess.NewGame()
		_, err := eng.Reconcile(g.Board())
		require.NoError(t, err)
		for ply := 0; ply < 80 && !g.IsGameOver(); ply++ {
			board := g.Board()
			var from []domain.Square
			for _, sq := range board.Occupied() {
				if p, _ := board.Piece(sq); p.Side == g.Turn() && len(g.Moves(sq)) > 0 {
					from = append(from, sq)
				}
			}
			require.NotEmpty(t, from)
			src := from[rng.Intn(len(from))]
			targets := g.Moves(src)
			dst := targets[rng.Intn(len(targets))].To
			_, err := g.Move(src, dst, domain.NoKind)
			require.NoError(t, err)

			_, err = eng.Reconcile(g.Board())
			require.NoError(t, err)
			requireInSync(t, eng, rec, g.Board())

			again, err := eng.Reconcile(g.Board())
			require.NoError(t, err)
			require.Zero(t, again.Created)
			require.Zero(t, again.Destroyed)
		}
	}
}

func TestClearDestroysEverything(t *testing.T) {
	eng, rec := newTestEngine(t)
	_, err := eng.Reconcile(chess.NewGame().Board())
	require.NoError(t, err)
	assert.Equal(t, 32, eng.Clear())
	assert.Zero(t, eng.Index().Len())
	assert.Empty(t, rec.Live())
}

func TestAssetCacheFallsBackOnLoaderError(t *testing.T) {
	calls := 0
	cache := NewAssetCache(func(context.Context) (map[domain.PieceKind]Template, error) {
		calls++
		return nil, errors.New("model fetch failed")
	}, nil)
	assert.False(t, cache.Ready())
	_, err := cache.Template(domain.Pawn)
	require.ErrorIs(t, err, ErrAssetsNotReady)

	require.NoError(t, cache.Load(context.Background()))
	require.NoError(t, cache.Load(context.Background()))
	assert.Equal(t, 1, calls)
	assert.True(t, cache.Ready())

	tmpl, err := cache.Template(domain.Knight)
	require.NoError(t, err)
	assert.Empty(t, tmpl.Model)
	assert.Len(t, tmpl.Parts, 2)
}

func TestAssetCacheCancelledLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cache := NewAssetCache(BuiltinLoader(true), nil)
	require.ErrorIs(t, cache.Load(ctx), context.Canceled)
	assert.False(t, cache.Ready())
}

func TestWorldPosition(t *testing.T) {
	assert.Equal(t, domain.Vec3{X: 0.5, Y: 0.35, Z: 2.5}, WorldPosition(domain.MustSquare("e2")))
	assert.Equal(t, domain.Vec3{X: -3.5, Y: 0.35, Z: -3.5}, WorldPosition(domain.MustSquare("a8")))
}

func TestLayoutTrays(t *testing.T) {
	trays := LayoutTrays([]domain.MoveRecord{
		{Side: domain.White, Captured: domain.Pawn},
		{Side: domain.Black, Captured: domain.Knight},
		{Side: domain.White, Captured: domain.Queen},
		{Side: domain.White},
	})
	require.Len(t, trays.Black, 2)
	require.Len(t, trays.White, 1)
	assert.Equal(t, domain.Piece{Kind: domain.Pawn, Side: domain.Black}, trays.Black[0].Piece)
	assert.InDelta(t, -0.3, trays.Black[0].Position.Z, 1e-9)
	assert.InDelta(t, 0.3, trays.Black[1].Position.Z, 1e-9)
	assert.Equal(t, 6.0, trays.Black[0].Position.X)
	assert.Equal(t, -6.0, trays.White[0].Position.X)
	assert.Equal(t, 0.0, trays.White[0].Position.Z)
}

package persist

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/Cheese-3DChess/internal/chess"
	"github.com/park285/Cheese-3DChess/internal/domain"
)

func sq(s string) domain.Square { return domain.MustSquare(s) }

func playedGame(t *testing.T, uci ...string) *chess.Game {
	t.Helper()
	g := chess.NewGame()
	for _, m := range uci {
		_, err := g.Move(sq(m[:2]), sq(m[2:4]), domain.NoKind)
		require.NoError(t, err)
	}
	return g
}

func snapshotOf(g *chess.Game) Snapshot {
	return Snapshot{FEN: g.FEN(), Turn: g.Turn(), History: g.History(), Theme: "winter"}
}

func TestSerializeShape(t *testing.T) {
	g := playedGame(t, "e2e4", "d7d5", "e4d5")
	cam := &domain.CameraPose{Position: domain.Vec3{X: 6, Y: 8, Z: 10}, IsBoardFlipped: true}
	s := snapshotOf(g)
	s.Camera = cam
	rec := Serialize(s, time.UnixMilli(1700000000000))

	raw, err := Encode(rec)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "3d-chess-save", generic["type"])
	assert.EqualValues(t, 2, generic["version"])
	assert.EqualValues(t, 1700000000000, generic["timestamp"])
	assert.Equal(t, "b", generic["turn"])
	assert.Equal(t, "winter", generic["theme"])

	last := generic["lastMove"].(map[string]any)
	assert.Equal(t, "e4", last["from"])
	assert.Equal(t, "d5", last["to"])
	assert.Equal(t, "p", last["captured"])
	assert.Equal(t, "c", last["flags"])

	camera := generic["camera"].(map[string]any)
	assert.Equal(t, true, camera["isBoardFlipped"])
	assert.Equal(t, map[string]any{"x": 6.0, "y": 8.0, "z": 10.0}, camera["position"])
}

func TestRoundTripThroughReplay(t *testing.T) {
	g := playedGame(t, "e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6", "e1g1")
	raw, err := Encode(Serialize(snapshotOf(g), time.Now()))
	require.NoError(t, err)

	rec, err := Decode(raw)
	require.NoError(t, err)
	fresh := chess.NewGame()
	res, err := Replay(fresh, rec, nil)
	require.NoError(t, err)
	assert.Equal(t, PathHistory, res.Path)
	assert.Equal(t, 7, res.Applied)
	assert.False(t, res.FENMismatch)
	assert.Equal(t, FENKey(g.FEN()), FENKey(fresh.FEN()))
	assert.Len(t, fresh.History(), len(g.History()))
}

func TestDecodeRejectsFormat(t *testing.T) {
	cases := map[string]string{
		"wrong type":     `{"type":"chess-save","version":2,"fen":"x"}`,
		"missing type":   `{"version":2,"fen":"x"}`,
		"numeric type":   `{"type":3,"version":2,"fen":"x"}`,
		"future version": `{"type":"3d-chess-save","version":3,"fen":"x"}`,
		"no version":     `{"type":"3d-chess-save","fen":"x"}`,
		"string version": `{"type":"3d-chess-save","version":"2","fen":"x"}`,
	}
	for name, doc := range cases {
		_, err := Decode([]byte(doc))
		assert.ErrorIs(t, err, ErrInvalidRecordFormat, name)
	}
}

func TestDecodeRejectsFEN(t *testing.T) {
	for _, doc := range []string{
		`{"type":"3d-chess-save","version":2}`,
		`{"type":"3d-chess-save","version":2,"fen":""}`,
		`{"type":"3d-chess-save","version":2,"fen":42}`,
		`{"type":"3d-chess-save","version":2,"fen":null}`,
	} {
		_, err := Decode([]byte(doc))
		assert.ErrorIs(t, err, ErrMissingOrMalformedFEN, doc)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, doc := range []string{"", "{", "null", "[1,2]", "not json"} {
		_, err := Decode([]byte(doc))
		assert.ErrorIs(t, err, ErrCorruptRecordEncoding, doc)
	}
}

func TestDecodeOlderRecordWithoutCamera(t *testing.T) {
	rec, err := Decode([]byte(`{"type":"3d-chess-save","version":1,"fen":"` + chess.StartFEN + `","history":[]}`))
	require.NoError(t, err)
	assert.Nil(t, rec.Camera)
	assert.Empty(t, rec.History)

	res, err := Replay(chess.NewGame(), rec, nil)
	require.NoError(t, err)
	assert.Equal(t, PathFEN, res.Path)
}

func TestDecodeDropsBrokenCamera(t *testing.T) {
	rec, err := Decode([]byte(`{"type":"3d-chess-save","version":2,"fen":"x","camera":{"position":{"x":1,"y":2,"z":3}}}`))
	require.NoError(t, err)
	assert.Nil(t, rec.Camera)

	rec, err = Decode([]byte(`{"type":"3d-chess-save","version":2,"fen":"x","camera":{"position":{"x":1,"y":2,"z":3},"target":{"x":0,"y":0,"z":0},"isBoardFlipped":"yes"}}`))
	require.NoError(t, err)
	require.NotNil(t, rec.Camera)
	assert.Nil(t, rec.Camera.IsBoardFlipped)
	assert.True(t, rec.Camera.Pose(true).IsBoardFlipped)
	assert.Equal(t, domain.Vec3{X: 1, Y: 2, Z: 3}, rec.Camera.Pose(false).Position)
}

func TestReplaySkipsIncompleteEntries(t *testing.T) {
	want := playedGame(t, "e2e4", "e7e5").FEN()
	doc := `{"type":"3d-chess-save","version":2,"fen":"` + want + `",
		"history":[{"from":"e2","to":"e4"},{"to":"e5"},{"from":"e7","to":"e5"},{"from":5,"to":"e6"},"junk"]}`
	rec, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, rec.History, 5)

	g := chess.NewGame()
	res, err := Replay(g, rec, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 3, res.Skipped)
	assert.False(t, res.FENMismatch)
	assert.Len(t, g.History(), 2)
}

func TestReplayWarnsOnFENMismatch(t *testing.T) {
	doc := `{"type":"3d-chess-save","version":2,"fen":"` + chess.StartFEN + `","history":[{"from":"d2","to":"d4"}]}`
	rec, err := Decode([]byte(doc))
	require.NoError(t, err)
	g := chess.NewGame()
	res, err := Replay(g, rec, nil)
	require.NoError(t, err)
	assert.True(t, res.FENMismatch)
	assert.Equal(t, domain.Black, g.Turn())
}

func TestReplayCountsRejectedMoves(t *testing.T) {
	doc := `{"type":"3d-chess-save","version":2,"fen":"x","history":[{"from":"e2","to":"e5"},{"from":"e2","to":"e4"}]}`
	rec, err := Decode([]byte(doc))
	require.NoError(t, err)
	res, err := Replay(chess.NewGame(), rec, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 1, res.Applied)
	assert.True(t, res.FENMismatch)
}

func TestReplayIllegalFEN(t *testing.T) {
	rec, err := Decode([]byte(`{"type":"3d-chess-save","version":2,"fen":"8/8/8/8/8/8/8/8 w - - 0 1"}`))
	require.NoError(t, err)
	_, err = Replay(chess.NewGame(), rec, nil)
	require.ErrorIs(t, err, ErrIllegalFEN)
}

func TestReplayPromotionDefaultsToQueen(t *testing.T) {
	g := playedGame(t, "h2h4", "g7g5", "h4g5", "h7h6", "g5h6", "g8f6", "h6h7", "f6g8", "h7g8")
	hist := g.History()
	require.Equal(t, domain.Queen, hist[len(hist)-1].Promotion)

	rec := Serialize(snapshotOf(g), time.Now())
	rec.History[len(rec.History)-1].Promotion = ""
	fresh := chess.NewGame()
	res, err := Replay(fresh, &rec, nil)
	require.NoError(t, err)
	assert.False(t, res.FENMismatch)
	assert.Equal(t, FENKey(g.FEN()), FENKey(fresh.FEN()))
}

func TestFENKey(t *testing.T) {
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -", FENKey(chess.StartFEN))
	assert.Equal(t, "a b", FENKey("a  b"))
}

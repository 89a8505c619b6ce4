package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/Cheese-3DChess/internal/httpapi"
	"github.com/park285/Cheese-3DChess/internal/session"
	"github.com/park285/Cheese-3DChess/internal/stageclient"
	"github.com/park285/Cheese-3DChess/internal/store"
	"github.com/park285/Cheese-3DChess/pkg/stagedto"
)

type harness struct {
	client  *stageclient.Client
	archive *store.MemoryArchive
}

func newHarness(t *testing.T, withArchive bool) *harness {
	t.Helper()
	h := &harness{}
	deps := session.Deps{}
	opts := httpapi.Options{Slots: store.NewMemorySlots(), AllowedOrigins: []string{"http://localhost:3000"}}
	if withArchive {
		h.archive = store.NewMemoryArchive()
		deps.Archive = h.archive
		opts.Archive = h.archive
	}
	opts.Registry = session.NewRegistry(deps, 0)

	srv, err := httpapi.New(opts)
	require.NoError(t, err)
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	h.client = stageclient.NewClient("http://stage",
		stageclient.WithRetry(1),
		stageclient.WithDialer(func(string) (net.Conn, error) { return ln.Dial() }),
	)
	return h
}

func TestCreateAndTap(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	state, err := h.client.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, state.ID)
	assert.Equal(t, "white", state.Turn)
	assert.Len(t, state.Pieces, 32)
	assert.Equal(t, "White to move", state.Status)

	res, err := h.client.Tap(ctx, state.ID, "e2")
	require.NoError(t, err)
	assert.Equal(t, "selected", res.Transition)
	assert.Equal(t, "selected", res.State.Highlights["e2"])
	assert.Equal(t, "legalMove", res.State.Highlights["e4"])

	res, err = h.client.Tap(ctx, state.ID, "e4")
	require.NoError(t, err)
	assert.Equal(t, "moved", res.Transition)
	require.NotNil(t, res.Move)
	assert.Equal(t, "e4", res.Move.SAN)
	assert.Len(t, res.Ops, 33)
	assert.Equal(t, "black", res.State.Turn)

	res, err = h.client.Tap(ctx, state.ID, "d1")
	require.NoError(t, err)
	assert.Equal(t, "not_your_move", res.Notice)
	assert.Equal(t, "Black's move", res.Toast)

	hover, err := h.client.Hover(ctx, state.ID, "e4")
	require.NoError(t, err)
	assert.Equal(t, "White Pawn – e4", hover.Tooltip)
}

func TestErrors(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.client.State(ctx, "missing")
	assert.True(t, stageclient.IsCode(err, "session_not_found"))

	state, err := h.client.CreateSession(ctx)
	require.NoError(t, err)

	_, err = h.client.Tap(ctx, state.ID, "z9")
	var apiErr *stageclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid_square", apiErr.Body.Code)

	_, err = h.client.Import(ctx, state.ID, []byte("not json"))
	assert.True(t, stageclient.IsCode(err, "corrupt_record"))

	_, err = h.client.Import(ctx, state.ID, []byte(`{"type":"other","version":2,"fen":"x"}`))
	assert.True(t, stageclient.IsCode(err, "invalid_record_format"))

	after, err := h.client.State(ctx, state.ID)
	require.NoError(t, err)
	assert.Len(t, after.Pieces, 32)
	assert.Equal(t, "Failed to load game", after.Toast)

	_, err = h.client.Load(ctx, state.ID, "nothing")
	assert.True(t, stageclient.IsCode(err, "slot_not_found"))

	_, err = h.client.Archive(ctx, 5)
	assert.True(t, stageclient.IsCode(err, "archive_disabled"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	state, err := h.client.CreateSession(ctx)
	require.NoError(t, err)
	id := state.ID

	for _, sq := range []string{"e2", "e4", "d7", "d5", "e4", "d5"} {
		_, err := h.client.Tap(ctx, id, sq)
		require.NoError(t, err)
	}
	_, err = h.client.SetTheme(ctx, id, "winter")
	require.NoError(t, err)

	saved, err := h.client.Save(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, store.DefaultSlot, saved.Slot)
	assert.Equal(t, "Game saved", saved.Toast)

	slots, err := h.client.Slots(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{store.DefaultSlot}, slots)

	fresh, err := h.client.NewGame(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, fresh.State.History)
	assert.Nil(t, fresh.Replay)
	assert.Equal(t, "winter", fresh.State.Theme.ID)

	_, err = h.client.SetTheme(ctx, id, "classic")
	require.NoError(t, err)

	loaded, err := h.client.Load(ctx, id, store.DefaultSlot)
	require.NoError(t, err)
	require.NotNil(t, loaded.Replay)
	assert.Equal(t, "history", loaded.Replay.Path)
	assert.Equal(t, 3, loaded.Replay.Applied)
	assert.Equal(t, "Game loaded", loaded.Toast)
	assert.Len(t, loaded.State.Pieces, 31)
	assert.Equal(t, "winter", loaded.State.Theme.ID)
	assert.Equal(t, []string{"1. e4 d5", "2. exd5"}, loaded.State.HistoryRows)

	exported, err := h.client.Export(ctx, id)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(exported, &doc))
	assert.Equal(t, "winter", doc["theme"])

	other, err := h.client.CreateSession(ctx)
	require.NoError(t, err)
	imported, err := h.client.Import(ctx, other.ID, exported)
	require.NoError(t, err)
	assert.Equal(t, loaded.State.FEN, imported.State.FEN)
}

func TestFlipAndPreview(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	state, err := h.client.CreateSession(ctx)
	require.NoError(t, err)

	cam, err := h.client.Flip(ctx, state.ID)
	require.NoError(t, err)
	assert.True(t, cam.IsBoardFlipped)
	assert.InDelta(t, -6, cam.Position.X, 1e-9)
	assert.InDelta(t, -10, cam.Position.Z, 1e-9)

	png, err := h.client.Preview(ctx, state.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestArchiveAfterMate(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	state, err := h.client.CreateSession(ctx)
	require.NoError(t, err)

	var last *string
	for _, sq := range []string{"f2", "f3", "e7", "e5", "g2", "g4", "d8", "h4"} {
		res, err := h.client.Tap(ctx, state.ID, sq)
		require.NoError(t, err)
		last = &res.Toast
	}
	require.NotNil(t, last)
	assert.Equal(t, "Checkmate – Black wins", *last)

	games, err := h.client.Archive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "0-1", games[0].Result)
	assert.Equal(t, state.ID, games[0].SessionID)
	assert.Len(t, games[0].MovesSAN, 4)
}

func serve(srv *httpapi.Server, method, uri string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	srv.Handler(ctx)
	return ctx
}

func errorCode(t *testing.T, ctx *fasthttp.RequestCtx) string {
	t.Helper()
	var body stagedto.Error
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	return body.Code
}

func TestRouting(t *testing.T) {
	srv, err := httpapi.New(httpapi.Options{Registry: session.NewRegistry(session.Deps{}, 0)})
	require.NoError(t, err)

	ctx := serve(srv, fasthttp.MethodGet, "/nowhere")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	assert.Equal(t, "not_found", errorCode(t, ctx))

	ctx = serve(srv, fasthttp.MethodPost, "/sessions")
	require.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())
	var state stagedto.SessionState
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &state))
	base := "/sessions/" + state.ID

	ctx = serve(srv, fasthttp.MethodGet, base+"/tap")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())
	assert.Equal(t, "method_not_allowed", errorCode(t, ctx))

	ctx = serve(srv, fasthttp.MethodGet, base+"/hover/e2")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "White Pawn")

	ctx = serve(srv, fasthttp.MethodGet, base+"/hover/z9")
	assert.Equal(t, "invalid_square", errorCode(t, ctx))

	ctx = serve(srv, fasthttp.MethodDelete, base)
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	ctx = serve(srv, fasthttp.MethodGet, base)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	assert.Equal(t, "session_not_found", errorCode(t, ctx))
}

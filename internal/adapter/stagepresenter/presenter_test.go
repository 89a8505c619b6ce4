package stagepresenter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/persist"
	"github.com/park285/Cheese-3DChess/internal/session"
	"github.com/park285/Cheese-3DChess/internal/stage"
)

func TestStateConversion(t *testing.T) {
	s, err := session.New(context.Background(), "p-1", session.Deps{})
	require.NoError(t, err)
	for _, sq := range []string{"e2", "e4", "d7", "d5", "e4", "d5"} {
		_, err := s.Tap(context.Background(), domain.MustSquare(sq))
		require.NoError(t, err)
	}

	dto := State(s.State())
	assert.Equal(t, "p-1", dto.ID)
	assert.Equal(t, "black", dto.Turn)
	assert.Len(t, dto.Pieces, 31)
	assert.Equal(t, []string{"1. e4 d5", "2. exd5"}, dto.HistoryRows)
	require.Len(t, dto.BlackTray, 1)
	assert.Equal(t, "bp", dto.BlackTray[0].Piece)
	require.NotNil(t, dto.LastMove)
	assert.Equal(t, "p", dto.LastMove.Captured)
	assert.Equal(t, "#dad1c8", dto.Theme.BoardLight)
	assert.Empty(t, dto.Selected)
	assert.Empty(t, dto.Highlights)
}

func TestOpConversion(t *testing.T) {
	ops := Ops([]stage.Op{
		{Kind: stage.OpCreate, ID: 3, Piece: "wq", Mesh: "queen", Position: domain.Vec3{X: 0.5, Y: 0.35, Z: -3.5}},
		{Kind: stage.OpDestroy, ID: 2},
	})
	require.Len(t, ops, 2)
	require.NotNil(t, ops[0].Position)
	assert.Equal(t, 0.5, ops[0].Position.X)
	assert.Nil(t, ops[1].Position)
}

func TestErrorMapping(t *testing.T) {
	status, body := Error(fmt.Errorf("load: %w", persist.ErrInvalidRecordFormat))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_record_format", body.Code)

	status, body = Error(session.ErrBusy)
	assert.Equal(t, http.StatusConflict, status)
	assert.True(t, body.Retryable)

	status, body = Error(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body.Message)
}

func TestTapResponse(t *testing.T) {
	s, err := session.New(context.Background(), "p-2", session.Deps{})
	require.NoError(t, err)
	_, err = s.Tap(context.Background(), domain.MustSquare("g1"))
	require.NoError(t, err)

	res, err := s.Tap(context.Background(), domain.MustSquare("f3"))
	require.NoError(t, err)
	dto := Tap(res, s.State())
	assert.Equal(t, "moved", dto.Transition)
	require.NotNil(t, dto.Move)
	assert.Equal(t, "Nf3", dto.Move.SAN)
	assert.Len(t, dto.Ops, 33)
	assert.Equal(t, "black", dto.State.Turn)
}

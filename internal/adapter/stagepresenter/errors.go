package stagepresenter

import (
	"errors"
	"net/http"

	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/interaction"
	"github.com/park285/Cheese-3DChess/internal/persist"
	"github.com/park285/Cheese-3DChess/internal/session"
	"github.com/park285/Cheese-3DChess/internal/stage"
	"github.com/park285/Cheese-3DChess/internal/store"
	"github.com/park285/Cheese-3DChess/pkg/stagedto"
)

type errorMapping struct {
	target    error
	status    int
	code      string
	retryable bool
}

var errorTable = []errorMapping{
	{session.ErrSessionNotFound, http.StatusNotFound, "session_not_found", false},
	{session.ErrBusy, http.StatusConflict, "busy", true},
	{store.ErrSlotNotFound, http.StatusNotFound, "slot_not_found", false},
	{store.ErrInvalidSlot, http.StatusBadRequest, "invalid_slot", false},
	{domain.ErrInvalidSquare, http.StatusBadRequest, "invalid_square", false},
	{interaction.ErrIllegalMoveAttempt, http.StatusUnprocessableEntity, "illegal_move", false},
	{persist.ErrCorruptRecordEncoding, http.StatusBadRequest, "corrupt_record", false},
	{persist.ErrInvalidRecordFormat, http.StatusBadRequest, "invalid_record_format", false},
	{persist.ErrMissingOrMalformedFEN, http.StatusBadRequest, "missing_fen", false},
	{persist.ErrIllegalFEN, http.StatusUnprocessableEntity, "illegal_fen", false},
	{stage.ErrAssetsNotReady, http.StatusServiceUnavailable, "assets_not_ready", true},
}

// Error maps err to an HTTP status and error body.
func Error(err error) (int, stagedto.Error) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, stagedto.Error{Code: m.code, Message: err.Error(), Retryable: m.retryable}
		}
	}
	return http.StatusInternalServerError, stagedto.Error{Code: "internal", Message: "internal error"}
}

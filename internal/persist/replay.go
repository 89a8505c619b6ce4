package persist

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/Cheese-3DChess/internal/chess"
	"github.com/park285/Cheese-3DChess/internal/domain"
)

type ReplayPath string

const (
	PathHistory ReplayPath = "history"
	PathFEN     ReplayPath = "fen"
)

// ReplayResult summarises how a record was rebuilt.
type ReplayResult struct {
	Path        ReplayPath
	Applied     int
	Skipped     int
	Rejected    int
	FENMismatch bool
}

// FENKey keeps the first four FEN fields: placement, side to move,
// castling rights and en passant target.
func FENKey(fen string) string {
	parts := strings.Fields(fen)
	if len(parts) > 4 {
		parts = parts[:4]
	}
	return strings.Join(parts, " ")
}

// Replay rebuilds the game described by rec on o. With a non-empty history
// the oracle is reset and every entry replayed; entries without from/to, or
// that the oracle refuses, are skipped. The replayed position wins over the
// stored FEN, a mismatch is only reported. Without history the stored FEN is
// loaded directly and a rejected FEN fails the replay.
//
// o should be a fresh oracle: on error it may hold a partial game.
func Replay(o chess.Oracle, rec *Record, logger *zap.Logger) (ReplayResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		return ReplayResult{}, fmt.Errorf("%w: nil record", ErrInvalidRecordFormat)
	}
	if len(rec.History) == 0 {
		if err := o.Load(rec.FEN); err != nil {
			return ReplayResult{Path: PathFEN}, fmt.Errorf("%w: %v", ErrIllegalFEN, err)
		}
		return ReplayResult{Path: PathFEN}, nil
	}

	res := ReplayResult{Path: PathHistory}
	o.Reset()
	for i, entry := range rec.History {
		from, errFrom := domain.ParseSquare(entry.From)
		to, errTo := domain.ParseSquare(entry.To)
		if errFrom != nil || errTo != nil {
			res.Skipped++
			logger.Warn("replay_entry_skipped", zap.Int("ply", i+1), zap.String("from", entry.From), zap.String("to", entry.To))
			continue
		}
		promo, err := domain.ParsePieceKind(entry.Promotion)
		if err != nil || promo == domain.NoKind {
			promo = domain.Queen
		}
		if _, err := o.Move(from, to, promo); err != nil {
			res.Rejected++
			logger.Warn("replay_entry_rejected", zap.Int("ply", i+1), zap.String("uci", entry.From+entry.To), zap.Error(err))
			continue
		}
		res.Applied++
	}

	if got, want := FENKey(o.FEN()), FENKey(rec.FEN); got != want {
		res.FENMismatch = true
		logger.Warn("restore_fen_mismatch", zap.String("replayed", got), zap.String("stored", want))
	}
	return res, nil
}

package interaction

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/Cheese-3DChess/internal/chess"
	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/highlight"
	"github.com/park285/Cheese-3DChess/internal/stage"
)

// ErrIllegalMoveAttempt is returned when the oracle refuses a move the
// controller offered as legal. The selection is left as it was.
var ErrIllegalMoveAttempt = errors.New("illegal move attempt")

// Notice is the user-facing notification raised by a tap.
type Notice string

const (
	NoticeNone        Notice = ""
	NoticeEmptySquare Notice = "empty_square"
	NoticeNotYourMove Notice = "not_your_move"
	NoticeIllegalMove Notice = "illegal_move"
	NoticeCheckmate   Notice = "checkmate"
	NoticeDraw        Notice = "draw"
	NoticeGameOver    Notice = "game_over"
	NoticeCheck       Notice = "check"
)

// Transition names the edge taken by a tap.
type Transition string

const (
	Ignored    Transition = "ignored"
	Selected   Transition = "selected"
	Deselected Transition = "deselected"
	Reselected Transition = "reselected"
	Moved      Transition = "moved"
	Rejected   Transition = "rejected"
)

// Synchronizer is the board synchronization engine as seen by the controller.
type Synchronizer interface {
	Reconcile(board domain.Board) (stage.Stats, error)
}

// PromotionPolicy picks the promotion piece for a chosen target.
type PromotionPolicy func(target domain.LegalTarget) domain.PieceKind

// AutoQueen always promotes to a queen.
func AutoQueen(domain.LegalTarget) domain.PieceKind { return domain.Queen }

// Outcome reports what one tap did. Turn is the side to move after the tap.
type Outcome struct {
	Transition Transition
	Notice     Notice
	Turn       domain.Side
	Winner     domain.Side
	Move       *domain.MoveRecord
	Stats      stage.Stats
}

// Controller is the selection state machine. It is not safe for concurrent
// use; the owning session serialises calls.
type Controller struct {
	oracle     chess.Oracle
	sync       Synchronizer
	promote    PromotionPolicy
	sel        highlight.Selection
	highlights highlight.Map
	history    []domain.MoveRecord
	logger     *zap.Logger
}

type Option func(*Controller)

func WithPromotionPolicy(p PromotionPolicy) Option {
	return func(c *Controller) {
		if p != nil {
			c.promote = p
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(oracle chess.Oracle, sync Synchronizer, opts ...Option) (*Controller, error) {
	if oracle == nil {
		return nil, errors.New("oracle is required")
	}
	if sync == nil {
		return nil, errors.New("synchronizer is required")
	}
	c := &Controller{
		oracle:     oracle,
		sync:       sync,
		promote:    AutoQueen,
		highlights: highlight.Classify(highlight.Selection{}),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Selection returns a copy of the current selection state.
func (c *Controller) Selection() highlight.Selection {
	out := c.sel
	out.Targets = append([]domain.LegalTarget(nil), c.sel.Targets...)
	return out
}

func (c *Controller) Highlights() highlight.Map { return c.highlights }

// History is the visible move list.
func (c *Controller) History() []domain.MoveRecord {
	return append([]domain.MoveRecord(nil), c.history...)
}

// Reset returns to Idle with cleared highlights and replaces the visible
// history. Called after a new game or a restore.
func (c *Controller) Reset(oracle chess.Oracle, history []domain.MoveRecord) {
	if oracle != nil {
		c.oracle = oracle
	}
	c.setSelection(highlight.Selection{})
	c.history = append([]domain.MoveRecord(nil), history...)
}

func (c *Controller) setSelection(sel highlight.Selection) {
	c.sel = sel
	c.highlights = highlight.Classify(sel)
}

func (c *Controller) selectSquare(sq domain.Square) {
	c.setSelection(highlight.Selection{Active: true, Square: sq, Targets: c.oracle.Moves(sq)})
}

// Tap feeds one tapped square through the state machine.
func (c *Controller) Tap(sq domain.Square) (Outcome, error) {
	if !sq.Valid() {
		return Outcome{}, fmt.Errorf("tap: %w", domain.ErrInvalidSquare)
	}
	board := c.oracle.Board()
	turn := c.oracle.Turn()
	piece, occupied := board.Piece(sq)
	out := Outcome{Transition: Ignored, Turn: turn}

	if !c.sel.Active {
		switch {
		case !occupied:
			out.Notice = NoticeEmptySquare
		case piece.Side != turn:
			out.Notice = NoticeNotYourMove
		default:
			c.selectSquare(sq)
			out.Transition = Selected
		}
		return out, nil
	}

	if sq == c.sel.Square {
		c.setSelection(highlight.Selection{})
		out.Transition = Deselected
		return out, nil
	}

	for _, target := range c.sel.Targets {
		if target.To == sq {
			return c.applyMove(target)
		}
	}

	if occupied && piece.Side == turn {
		c.selectSquare(sq)
		out.Transition = Reselected
		return out, nil
	}

	out.Transition = Rejected
	out.Notice = NoticeIllegalMove
	return out, nil
}

func (c *Controller) applyMove(target domain.LegalTarget) (Outcome, error) {
	from := c.sel.Square
	promo := domain.NoKind
	if target.Promotion != domain.NoKind {
		promo = c.promote(target)
	}
	rec, err := c.oracle.Move(from, target.To, promo)
	if err != nil {
		c.logger.Warn("move_rejected",
			zap.String("from", from.String()),
			zap.String("to", target.To.String()),
			zap.Error(err),
		)
		return Outcome{Transition: Rejected, Notice: NoticeIllegalMove, Turn: c.oracle.Turn()},
			fmt.Errorf("%w: %s%s: %v", ErrIllegalMoveAttempt, from, target.To, err)
	}

	c.setSelection(highlight.Selection{})
	c.history = append(c.history, rec)

	out := Outcome{Transition: Moved, Move: &rec, Turn: c.oracle.Turn()}
	stats, err := c.sync.Reconcile(c.oracle.Board())
	out.Stats = stats
	if err != nil {
		return out, fmt.Errorf("sync after %s: %w", rec.UCI(), err)
	}
	out.Notice, out.Winner = EvaluateEnd(c.oracle)

	c.logger.Info("move_applied",
		zap.String("uci", rec.UCI()),
		zap.String("san", rec.SAN),
		zap.String("notice", string(out.Notice)),
	)
	return out, nil
}

// EvaluateEnd applies the post-move priority: checkmate, then draw, then
// any other game over, then check. Winner is meaningful only for checkmate.
func EvaluateEnd(o chess.Oracle) (Notice, domain.Side) {
	switch {
	case o.IsCheckmate():
		return NoticeCheckmate, o.Turn().Opponent()
	case o.IsDraw():
		return NoticeDraw, o.Turn()
	case o.IsGameOver():
		return NoticeGameOver, o.Turn()
	case o.InCheck():
		return NoticeCheck, o.Turn()
	default:
		return NoticeNone, o.Turn()
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-3DChess/internal/chess"
	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/interaction"
	"github.com/park285/Cheese-3DChess/internal/msgcat"
	"github.com/park285/Cheese-3DChess/internal/persist"
	"github.com/park285/Cheese-3DChess/internal/stage"
	"github.com/park285/Cheese-3DChess/internal/theme"
)

var (
	ErrBusy            = errors.New("session busy")
	ErrSessionNotFound = errors.New("session not found")
)

const archiveTimeout = 5 * time.Second

// Archiver stores finished games.
type Archiver interface {
	Archive(ctx context.Context, g domain.ArchivedGame) error
}

// Deps are shared by every session built from them.
type Deps struct {
	Oracles      chess.Factory
	Assets       *stage.AssetCache
	Themes       *theme.Set
	Messages     *msgcat.Catalog
	Scene        func(sessionID string) stage.Scene
	Observer     Observer
	Archive      Archiver
	Promotion    interaction.PromotionPolicy
	DefaultTheme string
	Clock        func() time.Time
	Logger       *zap.Logger
}

func (d *Deps) normalize() {
	if d.Oracles == nil {
		d.Oracles = chess.NewOracle
	}
	if d.Assets == nil {
		d.Assets = stage.NewAssetCache(nil, d.Logger)
	}
	if d.Themes == nil {
		d.Themes = theme.MustBuiltin()
	}
	if d.Messages == nil {
		d.Messages = msgcat.MustDefault()
	}
	if d.Promotion == nil {
		d.Promotion = interaction.AutoQueen
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
}

// Report describes the effect of a session operation.
type Report struct {
	Toast  string
	Stats  stage.Stats
	Ops    []stage.Op
	Replay persist.ReplayResult
}

// TapResult is the outcome of one tap plus the scene ops it produced.
type TapResult struct {
	Outcome interaction.Outcome
	Toast   string
	Ops     []stage.Op
}

// Session owns one game: rules oracle, stage, selection controller,
// theme and camera. Operations are serialised by mu; Restore additionally
// holds the restoring flag while it replays outside the lock.
type Session struct {
	id     string
	deps   Deps
	logger *zap.Logger

	restoring  atomic.Bool
	lastActive atomic.Int64

	mu        sync.Mutex
	oracle    chess.Oracle
	recorder  *stage.Recorder
	engine    *stage.Engine
	ctrl      *interaction.Controller
	palette   theme.Palette
	camera    domain.CameraPose
	toast     string
	startedAt time.Time
	archived  bool
}

// New builds a session on the start position. It loads the asset cache if
// nothing has yet.
func New(ctx context.Context, id string, deps Deps) (*Session, error) {
	deps.normalize()
	if err := deps.Assets.Load(ctx); err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	s := &Session{
		id:       id,
		deps:     deps,
		logger:   deps.Logger.With(zap.String("session_id", id)),
		recorder: stage.NewRecorder(),
	}
	var scene stage.Scene = s.recorder
	if deps.Scene != nil {
		if extra := deps.Scene(id); extra != nil {
			scene = stage.Fanout(s.recorder, extra)
		}
	}
	engine, err := stage.NewEngine(deps.Assets, scene, s.logger)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	s.oracle = deps.Oracles()
	s.ctrl, err = interaction.New(s.oracle, engine,
		interaction.WithPromotionPolicy(deps.Promotion),
		interaction.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	s.palette = deps.Themes.Resolve(deps.DefaultTheme)
	s.camera = DefaultCamera()
	s.startedAt = deps.Clock()
	s.touch()

	if _, err := engine.Reconcile(s.oracle.Board()); err != nil {
		return nil, fmt.Errorf("initial sync: %w", err)
	}
	s.recorder.Drain()
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

func (s *Session) touch() { s.lastActive.Store(s.deps.Clock().UnixNano()) }

func (s *Session) emit(ev Event) {
	if s.deps.Observer != nil {
		s.deps.Observer(s.id, ev)
	}
}

func (s *Session) setToast(text string) {
	s.toast = text
	if text != "" {
		s.emit(Event{Kind: EventToast, Toast: text})
	}
}

func (s *Session) emitBoard() {
	history := s.ctrl.History()
	ev := Event{Kind: EventBoard, Trays: stage.LayoutTrays(history)}
	if n := len(history); n > 0 {
		last := history[n-1]
		ev.LastMove = &last
	}
	s.emit(ev)
}

// Tap forwards a board tap to the selection controller. A refused move is
// reported through the toast and the returned error.
func (s *Session) Tap(ctx context.Context, sq domain.Square) (TapResult, error) {
	if s.restoring.Load() {
		return TapResult{}, ErrBusy
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// a restore may have started while this call waited for the lock.
	if s.restoring.Load() {
		return TapResult{}, ErrBusy
	}
	s.touch()

	out, err := s.ctrl.Tap(sq)
	res := TapResult{Outcome: out, Ops: s.recorder.Drain()}
	if err != nil && !errors.Is(err, interaction.ErrIllegalMoveAttempt) {
		return res, err
	}
	if out.Transition != interaction.Ignored {
		s.emit(Event{Kind: EventHighlights, Highlights: s.ctrl.Highlights()})
	}
	if out.Move != nil {
		s.emitBoard()
		if s.oracle.IsGameOver() {
			s.archiveFinished(ctx)
		}
	}
	res.Toast = s.noticeText(out)
	s.setToast(res.Toast)
	return res, err
}

func (s *Session) noticeText(out interaction.Outcome) string {
	msgs := s.deps.Messages
	switch out.Notice {
	case interaction.NoticeNone:
		return ""
	case interaction.NoticeNotYourMove:
		return msgs.Text("toast.not_your_move", map[string]string{"Turn": out.Turn.Title()})
	case interaction.NoticeCheckmate:
		return msgs.Text("toast.checkmate", map[string]string{"Winner": out.Winner.Title()})
	default:
		return msgs.Text("toast."+string(out.Notice), nil)
	}
}

type resulter interface {
	Result() (result, method string)
}

func (s *Session) archiveFinished(ctx context.Context) {
	if s.deps.Archive == nil || s.archived {
		return
	}
	g := domain.ArchivedGame{
		SessionID: s.id,
		FinalFEN:  s.oracle.FEN(),
		Theme:     s.palette.ID,
		StartedAt: s.startedAt,
		EndedAt:   s.deps.Clock(),
	}
	if r, ok := s.oracle.(resulter); ok {
		g.Result, g.Method = r.Result()
	}
	for _, mv := range s.ctrl.History() {
		g.MovesSAN = append(g.MovesSAN, mv.SAN)
		g.MovesUCI = append(g.MovesUCI, mv.UCI())
	}

	actx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()
	if err := s.deps.Archive.Archive(actx, g); err != nil {
		s.logger.Warn("archive_failed", zap.Error(err))
		return
	}
	s.archived = true
	s.logger.Info("game_archived", zap.String("result", g.Result), zap.String("method", g.Method), zap.Int("plies", len(g.MovesUCI)))
}

// NewGame resets to the start position and the default camera. The theme is kept.
func (s *Session) NewGame() (Report, error) {
	if s.restoring.Load() {
		return Report{}, ErrBusy
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// a restore may have started while this call waited for the lock.
	if s.restoring.Load() {
		return Report{}, ErrBusy
	}
	s.touch()

	fresh := s.deps.Oracles()
	stats, err := s.engine.Reconcile(fresh.Board())
	if err != nil {
		return Report{}, fmt.Errorf("new game: %w", err)
	}
	s.oracle = fresh
	s.ctrl.Reset(fresh, nil)
	s.camera = DefaultCamera()
	s.startedAt = s.deps.Clock()
	s.archived = false

	s.emitBoard()
	s.emit(Event{Kind: EventHighlights, Highlights: s.ctrl.Highlights()})
	s.emit(Event{Kind: EventCamera, Camera: s.camera})
	toast := s.deps.Messages.Text("toast.new_game", nil)
	s.setToast(toast)
	s.logger.Info("new_game", zap.Int("created", stats.Created), zap.Int("destroyed", stats.Destroyed))
	return Report{Toast: toast, Stats: stats, Ops: s.recorder.Drain()}, nil
}

// Export serialises the current game as a save record.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	cam := s.camera
	snap := persist.Snapshot{
		FEN:     s.oracle.FEN(),
		Turn:    s.oracle.Turn(),
		History: s.ctrl.History(),
		Theme:   s.palette.ID,
		Camera:  &cam,
	}
	return persist.Encode(persist.Serialize(snap, s.deps.Clock()))
}

// SaveNotice reports the result of a save attempt to the user.
func (s *Session) SaveNotice(err error) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := "toast.saved"
	if err != nil {
		key = "toast.save_failed"
		s.logger.Warn("save_failed", zap.Error(err))
	}
	text := s.deps.Messages.Text(key, nil)
	s.setToast(text)
	return text
}

// Restore replaces the game with the one in raw. Decoding and replay run on
// a fresh oracle; the session changes only once both succeed, so a failed
// restore leaves board, selection, theme and camera as they were.
func (s *Session) Restore(raw []byte) (Report, error) {
	if !s.restoring.CompareAndSwap(false, true) {
		return Report{}, ErrBusy
	}
	defer s.restoring.Store(false)
	s.touch()

	rep, err := s.restore(raw)
	if err != nil {
		s.logger.Warn("restore_failed", zap.Error(err))
		s.mu.Lock()
		text := s.deps.Messages.Text("toast.load_failed", nil)
		s.setToast(text)
		s.mu.Unlock()
		return Report{Toast: text}, err
	}
	return rep, nil
}

func (s *Session) restore(raw []byte) (Report, error) {
	rec, err := persist.Decode(raw)
	if err != nil {
		return Report{}, err
	}
	fresh := s.deps.Oracles()
	replay, err := persist.Replay(fresh, rec, s.logger)
	if err != nil {
		return Report{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stats, err := s.engine.Reconcile(fresh.Board())
	if err != nil {
		return Report{}, fmt.Errorf("sync restored board: %w", err)
	}

	s.oracle = fresh
	s.ctrl.Reset(fresh, fresh.History())
	s.palette = s.deps.Themes.Resolve(rec.Theme)
	if rec.Camera != nil {
		s.camera = rec.Camera.Pose(s.camera.IsBoardFlipped)
		s.emit(Event{Kind: EventCamera, Camera: s.camera})
	}
	s.startedAt = s.deps.Clock()
	s.archived = fresh.IsGameOver()

	s.emitBoard()
	s.emit(Event{Kind: EventHighlights, Highlights: s.ctrl.Highlights()})
	s.emit(Event{Kind: EventTheme, Palette: s.palette})
	toast := s.deps.Messages.Text("toast.loaded", nil)
	s.setToast(toast)

	s.logger.Info("restore_applied",
		zap.String("path", string(replay.Path)),
		zap.Int("applied", replay.Applied),
		zap.Int("skipped", replay.Skipped),
		zap.Int("rejected", replay.Rejected),
		zap.Bool("fen_mismatch", replay.FENMismatch),
	)
	return Report{Toast: toast, Stats: stats, Ops: s.recorder.Drain(), Replay: replay}, nil
}

// SetTheme applies the palette for id; unknown ids fall back to the default.
func (s *Session) SetTheme(id string) theme.Palette {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.palette = s.deps.Themes.Resolve(id)
	s.emit(Event{Kind: EventTheme, Palette: s.palette})
	s.setToast(s.deps.Messages.Text("toast.theme", map[string]string{"Theme": s.palette.Name}))
	return s.palette
}

func (s *Session) FlipBoard() domain.CameraPose {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.camera = FlipPose(s.camera)
	s.emit(Event{Kind: EventCamera, Camera: s.camera})
	return s.camera
}

// SetCamera records a pose reported by the renderer's orbit controls.
func (s *Session) SetCamera(pose domain.CameraPose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.camera = pose
}

// Hover returns the tooltip for sq.
func (s *Session) Hover(sq domain.Square) (string, error) {
	if !sq.Valid() {
		return "", domain.ErrInvalidSquare
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	board := s.oracle.Board()
	if p, ok := board.Piece(sq); ok {
		return s.deps.Messages.Text("tooltip.piece", map[string]string{"Piece": p.Title(), "Square": sq.String()}), nil
	}
	return s.deps.Messages.Text("tooltip.empty", map[string]string{"Square": sq.String()}), nil
}

// HoverEntity resolves a rendered entity back to its square and tooltip.
func (s *Session) HoverEntity(id stage.EntityID) (domain.Square, string, bool) {
	s.mu.Lock()
	sq, ok := s.engine.Index().SquareOf(id)
	s.mu.Unlock()
	if !ok {
		return domain.NoSquare, "", false
	}
	text, err := s.Hover(sq)
	return sq, text, err == nil
}

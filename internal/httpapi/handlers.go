package httpapi

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/Cheese-3DChess/internal/adapter/stagepresenter"
	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/interaction"
	"github.com/park285/Cheese-3DChess/internal/preview"
	"github.com/park285/Cheese-3DChess/internal/session"
	"github.com/park285/Cheese-3DChess/internal/stage"
	"github.com/park285/Cheese-3DChess/internal/store"
	"github.com/park285/Cheese-3DChess/pkg/stagedto"
)

const (
	defaultArchiveLimit = 20
	maxArchiveLimit     = 200
)

func (s *Server) handleThemes(ctx *fasthttp.RequestCtx) {
	ids := s.opts.Themes.IDs()
	out := make([]stagedto.Palette, 0, len(ids))
	for _, id := range ids {
		p, _ := s.opts.Themes.Get(id)
		out = append(out, stagepresenter.Palette(p))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleArchive(ctx *fasthttp.RequestCtx) {
	if s.opts.Archive == nil {
		s.writeStatusError(ctx, fasthttp.StatusNotFound, "archive_disabled", "game archive is not configured")
		return
	}
	limit := defaultArchiveLimit
	if raw := ctx.QueryArgs().Peek("limit"); len(raw) > 0 {
		n, err := strconv.Atoi(string(raw))
		if err != nil || n <= 0 {
			s.writeStatusError(ctx, fasthttp.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxArchiveLimit)
	}
	games, err := s.opts.Archive.Recent(ctx, limit)
	if err != nil {
		s.writeError(ctx, fmt.Errorf("recent games: %w", err))
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, stagepresenter.ArchivedGames(games))
}

func (s *Server) handleCreate(ctx *fasthttp.RequestCtx) {
	sess, err := s.opts.Registry.Create(ctx)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	ctx.Response.Header.Set("Location", "/sessions/"+sess.ID())
	s.writeJSON(ctx, fasthttp.StatusCreated, stagepresenter.State(sess.State()))
}

func (s *Server) handleTap(ctx *fasthttp.RequestCtx, sess *session.Session) {
	var req stagedto.TapRequest
	if err := decode(ctx, &req); err != nil {
		s.writeError(ctx, err)
		return
	}
	sq, err := domain.ParseSquare(req.Square)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	res, err := sess.Tap(ctx, sq)
	if err != nil && !errors.Is(err, interaction.ErrIllegalMoveAttempt) {
		s.writeError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, stagepresenter.Tap(res, sess.State()))
}

func (s *Server) handleNewGame(ctx *fasthttp.RequestCtx, sess *session.Session) {
	rep, err := sess.NewGame()
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, stagepresenter.Load(rep, sess.State()))
}

func (s *Server) handleSave(ctx *fasthttp.RequestCtx, sess *session.Session) {
	var req stagedto.SaveRequest
	if err := decode(ctx, &req); err != nil {
		s.writeError(ctx, err)
		return
	}
	slot := req.Slot
	if slot == "" {
		slot = store.DefaultSlot
	}
	raw, err := sess.Export()
	if err == nil {
		err = s.opts.Slots.Put(ctx, sess.ID(), slot, raw)
	}
	toast := sess.SaveNotice(err)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, stagedto.SaveResponse{Slot: slot, Toast: toast})
}

func (s *Server) handleLoad(ctx *fasthttp.RequestCtx, sess *session.Session) {
	var req stagedto.LoadRequest
	if err := decode(ctx, &req); err != nil {
		s.writeError(ctx, err)
		return
	}
	slot := req.Slot
	if slot == "" {
		slot = store.DefaultSlot
	}
	raw, err := s.opts.Slots.Get(ctx, sess.ID(), slot)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	s.restore(ctx, sess, raw)
}

// handleImport restores a save record carried as the request body.
func (s *Server) handleImport(ctx *fasthttp.RequestCtx, sess *session.Session) {
	raw := append([]byte(nil), ctx.PostBody()...)
	s.restore(ctx, sess, raw)
}

func (s *Server) restore(ctx *fasthttp.RequestCtx, sess *session.Session, raw []byte) {
	rep, err := sess.Restore(raw)
	if err != nil {
		s.logger.Info("load_rejected", zap.String("session_id", sess.ID()), zap.Error(err))
		s.writeError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, stagepresenter.Load(rep, sess.State()))
}

func (s *Server) handleExport(ctx *fasthttp.RequestCtx, sess *session.Session) {
	raw, err := sess.Export()
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	name := fmt.Sprintf("chess-save-%d.json", ctx.Time().UnixMilli())
	ctx.Response.Header.Set("Content-Disposition", `attachment; filename="`+name+`"`)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(raw)
}

func (s *Server) handleSlots(ctx *fasthttp.RequestCtx, sess *session.Session) {
	slots, err := s.opts.Slots.List(ctx, sess.ID())
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	s.writeJSON(ctx, fasthttp.StatusOK, stagedto.SlotList{Slots: slots})
}

func (s *Server) handleDeleteSlot(ctx *fasthttp.RequestCtx, sess *session.Session, slot string) {
	if err := s.opts.Slots.Delete(ctx, sess.ID(), slot); err != nil {
		s.writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleTheme(ctx *fasthttp.RequestCtx, sess *session.Session) {
	var req stagedto.ThemeRequest
	if err := decode(ctx, &req); err != nil {
		s.writeError(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, stagepresenter.Palette(sess.SetTheme(req.Theme)))
}

func (s *Server) handleCamera(ctx *fasthttp.RequestCtx, sess *session.Session) {
	var req stagedto.CameraRequest
	if err := decode(ctx, &req); err != nil {
		s.writeError(ctx, err)
		return
	}
	pose := stagepresenter.CameraPose(req.Camera)
	sess.SetCamera(pose)
	s.writeJSON(ctx, fasthttp.StatusOK, stagepresenter.Camera(pose))
}

func (s *Server) handleHover(ctx *fasthttp.RequestCtx, sess *session.Session, raw string) {
	sq, err := domain.ParseSquare(raw)
	if err == nil {
		var text string
		text, err = sess.Hover(sq)
		if err == nil {
			s.writeJSON(ctx, fasthttp.StatusOK, stagedto.HoverResponse{Square: sq.String(), Tooltip: text})
			return
		}
	}
	s.writeError(ctx, err)
}

func (s *Server) handleEntity(ctx *fasthttp.RequestCtx, sess *session.Session, raw string) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.writeStatusError(ctx, fasthttp.StatusBadRequest, "bad_request", "entity id must be numeric")
		return
	}
	sq, text, ok := sess.HoverEntity(stage.EntityID(id))
	if !ok {
		s.writeStatusError(ctx, fasthttp.StatusNotFound, "entity_not_found", "no live entity "+raw)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, stagedto.HoverResponse{Square: sq.String(), Tooltip: text})
}

func (s *Server) handlePreview(ctx *fasthttp.RequestCtx, sess *session.Session) {
	v := sess.State()
	png, err := s.opts.Renderer.RenderPNG(ctx, preview.Frame{
		Board:      v.Board,
		Highlights: v.Highlights,
		LastMove:   v.LastMove,
		Palette:    v.Palette,
		Flipped:    v.Camera.IsBoardFlipped,
		Status:     v.Status,
	})
	if err != nil {
		s.writeError(ctx, fmt.Errorf("render preview: %w", err))
		return
	}
	ctx.SetContentType("image/png")
	ctx.SetBody(png)
}

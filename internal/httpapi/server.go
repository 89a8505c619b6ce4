package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/Cheese-3DChess/internal/adapter/stagepresenter"
	"github.com/park285/Cheese-3DChess/internal/preview"
	"github.com/park285/Cheese-3DChess/internal/session"
	"github.com/park285/Cheese-3DChess/internal/store"
	"github.com/park285/Cheese-3DChess/internal/theme"
	"github.com/park285/Cheese-3DChess/pkg/stagedto"
)

const maxBodyBytes = 1 << 20

var errBadJSON = errors.New("malformed json body")

type Options struct {
	Registry       *session.Registry
	Slots          store.SlotStore
	Archive        store.GameArchive
	Themes         *theme.Set
	Renderer       *preview.Renderer
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Server is the JSON control surface of the stage.
type Server struct {
	opts   Options
	srv    *fasthttp.Server
	router *router.Router
	logger *zap.Logger
}

func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, errors.New("httpapi: nil registry")
	}
	if opts.Slots == nil {
		opts.Slots = store.NewMemorySlots()
	}
	if opts.Themes == nil {
		opts.Themes = theme.MustBuiltin()
	}
	if opts.Renderer == nil {
		opts.Renderer = preview.NewRenderer(preview.DefaultSquareSize)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{opts: opts, logger: opts.Logger}
	s.router = s.routes()
	s.srv = &fasthttp.Server{
		Handler:            s.Handler,
		Name:               "stage",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxRequestBodySize: maxBodyBytes,
	}
	return s, nil
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http_listening", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handler applies the shared headers and dispatches one request.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	s.applyHeaders(ctx)
	if ctx.IsOptions() {
		ctx.SetStatusCode(fasthttp.StatusNoContent)
		return
	}
	s.router.Handler(ctx)
	s.logger.Debug("http_request",
		zap.ByteString("method", ctx.Method()),
		zap.ByteString("path", ctx.Path()),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("took", time.Since(start)),
	)
}

func (s *Server) routes() *router.Router {
	r := router.New()
	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	})
	r.GET("/themes", s.handleThemes)
	r.GET("/archive", s.handleArchive)
	r.POST("/sessions", s.handleCreate)

	r.GET("/sessions/{id}", s.withSession(func(ctx *fasthttp.RequestCtx, sess *session.Session) {
		s.writeJSON(ctx, fasthttp.StatusOK, stagepresenter.State(sess.State()))
	}))
	r.DELETE("/sessions/{id}", s.withSession(func(ctx *fasthttp.RequestCtx, sess *session.Session) {
		s.opts.Registry.Remove(sess.ID())
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}))
	r.POST("/sessions/{id}/tap", s.withSession(s.handleTap))
	r.POST("/sessions/{id}/new", s.withSession(s.handleNewGame))
	r.POST("/sessions/{id}/save", s.withSession(s.handleSave))
	r.POST("/sessions/{id}/load", s.withSession(s.handleLoad))
	r.POST("/sessions/{id}/import", s.withSession(s.handleImport))
	r.GET("/sessions/{id}/export", s.withSession(s.handleExport))
	r.GET("/sessions/{id}/slots", s.withSession(s.handleSlots))
	r.DELETE("/sessions/{id}/slots/{slot}", s.withSession(func(ctx *fasthttp.RequestCtx, sess *session.Session) {
		s.handleDeleteSlot(ctx, sess, param(ctx, "slot"))
	}))
	r.POST("/sessions/{id}/theme", s.withSession(s.handleTheme))
	r.POST("/sessions/{id}/flip", s.withSession(func(ctx *fasthttp.RequestCtx, sess *session.Session) {
		s.writeJSON(ctx, fasthttp.StatusOK, stagepresenter.Camera(sess.FlipBoard()))
	}))
	r.PUT("/sessions/{id}/camera", s.withSession(s.handleCamera))
	r.GET("/sessions/{id}/hover/{square}", s.withSession(func(ctx *fasthttp.RequestCtx, sess *session.Session) {
		s.handleHover(ctx, sess, param(ctx, "square"))
	}))
	r.GET("/sessions/{id}/entities/{entity}", s.withSession(func(ctx *fasthttp.RequestCtx, sess *session.Session) {
		s.handleEntity(ctx, sess, param(ctx, "entity"))
	}))
	r.GET("/sessions/{id}/preview.png", s.withSession(s.handlePreview))

	r.NotFound = func(ctx *fasthttp.RequestCtx) {
		s.writeStatusError(ctx, fasthttp.StatusNotFound, "not_found", "no such route")
	}
	r.MethodNotAllowed = func(ctx *fasthttp.RequestCtx) {
		s.writeStatusError(ctx, fasthttp.StatusMethodNotAllowed, "method_not_allowed", "method not allowed on this route")
	}
	return r
}

// withSession resolves the {id} path parameter before calling h.
func (s *Server) withSession(h func(*fasthttp.RequestCtx, *session.Session)) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		sess, err := s.opts.Registry.Get(param(ctx, "id"))
		if err != nil {
			s.writeError(ctx, err)
			return
		}
		h(ctx, sess)
	}
}

func param(ctx *fasthttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func (s *Server) applyHeaders(ctx *fasthttp.RequestCtx) {
	h := &ctx.Response.Header
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	origin := string(ctx.Request.Header.Peek("Origin"))
	if origin == "" {
		return
	}
	if slices.Contains(s.opts.AllowedOrigins, "*") || slices.Contains(s.opts.AllowedOrigins, origin) {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
	}
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode_response_failed", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(payload)
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, err error) {
	status, body := stagepresenter.Error(err)
	if errors.Is(err, errBadJSON) {
		status, body = fasthttp.StatusBadRequest, stagedto.Error{Code: "bad_request", Message: err.Error()}
	}
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Error("request_failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
	}
	s.writeJSON(ctx, status, body)
}

func (s *Server) writeStatusError(ctx *fasthttp.RequestCtx, status int, code, msg string) {
	s.writeJSON(ctx, status, stagedto.Error{Code: code, Message: msg})
}

// decode reads an optional JSON body into dst.
func decode(ctx *fasthttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.Join(errBadJSON, err)
	}
	return nil
}

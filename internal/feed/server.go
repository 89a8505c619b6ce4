package feed

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Cheese-3DChess/internal/adapter/stagepresenter"
	"github.com/park285/Cheese-3DChess/internal/session"
	"github.com/park285/Cheese-3DChess/pkg/stagedto"
)

const (
	pathPrefix   = "/feed/"
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Lookup resolves a session id to a live session.
type Lookup func(id string) (*session.Session, error)

// Server upgrades GET /feed/{session} to a websocket that first sends a
// snapshot and then streams the session's hub messages.
type Server struct {
	hub     *Hub
	lookup  Lookup
	origins []string
	logger  *zap.Logger
}

func NewServer(hub *Hub, lookup Lookup, origins []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{hub: hub, lookup: lookup, origins: append([]string(nil), origins...), logger: logger}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, pathPrefix), "/")
	if !strings.HasPrefix(r.URL.Path, pathPrefix) || id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	sess, err := s.lookup(id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Subscribe before the snapshot so nothing between the two is lost.
	msgs, cancel := s.hub.Subscribe(id)
	defer cancel()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Warn("feed_accept_failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	logger := s.logger.With(zap.String("session_id", id))
	logger.Info("feed_connected", zap.Int("subscribers", s.hub.Subscribers(id)))
	ctx := conn.CloseRead(r.Context())

	snapshot := stagedto.FeedMessage{Type: stagedto.FeedSnapshot, Session: id, State: stagepresenter.State(sess.State())}
	if err := write(ctx, conn, snapshot); err != nil {
		logger.Debug("feed_write_failed", zap.Error(err))
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("feed_disconnected")
			return
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				logger.Debug("feed_ping_failed", zap.Error(err))
				return
			}
		case msg, ok := <-msgs:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "session closed")
				logger.Info("feed_closed")
				return
			}
			if err := write(ctx, conn, msg); err != nil {
				logger.Debug("feed_write_failed", zap.Error(err))
				return
			}
			if msg.Type == stagedto.FeedClosed {
				conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg stagedto.FeedMessage) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, msg)
}

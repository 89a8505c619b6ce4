package feed

import (
	"sync"

	"go.uber.org/zap"

	"github.com/park285/Cheese-3DChess/internal/adapter/stagepresenter"
	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/session"
	"github.com/park285/Cheese-3DChess/internal/stage"
	"github.com/park285/Cheese-3DChess/pkg/stagedto"
)

const defaultBuffer = 256

type subscriber struct {
	ch      chan stagedto.FeedMessage
	dropped int
}

type topic struct {
	seq  uint64
	subs map[int]*subscriber
}

// Hub fans session changes out to feed subscribers. Publishing never
// blocks: a subscriber whose buffer is full loses the message.
type Hub struct {
	mu     sync.Mutex
	topics map[string]*topic
	nextID int
	buffer int
	logger *zap.Logger
}

func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{topics: make(map[string]*topic), buffer: buffer, logger: logger}
}

// Subscribe returns a channel of messages for one session and a cancel func.
// The channel is closed by cancel or by Close.
func (h *Hub) Subscribe(sessionID string) (<-chan stagedto.FeedMessage, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topic(sessionID)
	h.nextID++
	id := h.nextID
	sub := &subscriber{ch: make(chan stagedto.FeedMessage, h.buffer)}
	t.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			t, ok := h.topics[sessionID]
			if !ok {
				return
			}
			if s, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(s.ch)
			}
			if len(t.subs) == 0 {
				delete(h.topics, sessionID)
			}
		})
	}
	return sub.ch, cancel
}

// Subscribers reports how many feeds watch a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.topics[sessionID]; ok {
		return len(t.subs)
	}
	return 0
}

// Close sends a closed frame to every subscriber of a session and ends their
// channels.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[sessionID]
	if !ok {
		return
	}
	t.seq++
	msg := stagedto.FeedMessage{Type: stagedto.FeedClosed, Session: sessionID, Seq: t.seq}
	for id, s := range t.subs {
		select {
		case s.ch <- msg:
		default:
		}
		close(s.ch)
		delete(t.subs, id)
	}
	delete(h.topics, sessionID)
}

func (h *Hub) topic(sessionID string) *topic {
	t, ok := h.topics[sessionID]
	if !ok {
		t = &topic{subs: make(map[int]*subscriber)}
		h.topics[sessionID] = t
	}
	return t
}

func (h *Hub) publish(sessionID string, msg stagedto.FeedMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[sessionID]
	if !ok || len(t.subs) == 0 {
		return
	}
	t.seq++
	msg.Session = sessionID
	msg.Seq = t.seq
	for _, s := range t.subs {
		select {
		case s.ch <- msg:
		default:
			s.dropped++
			h.logger.Debug("feed_dropped",
				zap.String("session_id", sessionID),
				zap.String("type", msg.Type),
				zap.Int("dropped", s.dropped),
			)
		}
	}
}

// Observe is a session.Observer.
func (h *Hub) Observe(sessionID string, ev session.Event) {
	msg := stagedto.FeedMessage{Type: string(ev.Kind)}
	switch ev.Kind {
	case session.EventHighlights:
		msg.Highlights = stagepresenter.Highlights(ev.Highlights)
	case session.EventBoard:
		msg.WhiteTray, msg.BlackTray = stagepresenter.Trays(ev.Trays)
		if ev.LastMove != nil {
			mv := stagepresenter.Move(*ev.LastMove)
			msg.LastMove = &mv
		}
	case session.EventTheme:
		p := stagepresenter.Palette(ev.Palette)
		msg.Theme = &p
	case session.EventCamera:
		c := stagepresenter.Camera(ev.Camera)
		msg.Camera = &c
	case session.EventToast:
		msg.Toast = ev.Toast
	}
	h.publish(sessionID, msg)
}

// Scene returns the per-session scene that forwards entity ops to the feed.
func (h *Hub) Scene(sessionID string) stage.Scene {
	return &feedScene{hub: h, sessionID: sessionID}
}

type feedScene struct {
	hub       *Hub
	sessionID string
}

func (s *feedScene) send(op stage.Op) {
	dto := stagepresenter.Op(op)
	s.hub.publish(s.sessionID, stagedto.FeedMessage{Type: stagedto.FeedOp, Op: &dto})
}

func (s *feedScene) Create(id stage.EntityID, piece domain.Piece, tmpl stage.Template, pos domain.Vec3) {
	s.send(stage.Op{Kind: stage.OpCreate, ID: id, Piece: piece.Code(), Mesh: tmpl.Mesh, Position: pos})
}

func (s *feedScene) Destroy(id stage.EntityID) {
	s.send(stage.Op{Kind: stage.OpDestroy, ID: id})
}

func (s *feedScene) Reposition(id stage.EntityID, pos domain.Vec3) {
	s.send(stage.Op{Kind: stage.OpReposition, ID: id, Position: pos})
}

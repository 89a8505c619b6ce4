package stageclient

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Cheese-3DChess/pkg/stagedto"
)

type FeedState string

const (
	FeedDisconnected FeedState = "disconnected"
	FeedConnecting   FeedState = "connecting"
	FeedConnected    FeedState = "connected"
	FeedReconnecting FeedState = "reconnecting"
	FeedFailed       FeedState = "failed"
)

type MessageCallback func(msg *stagedto.FeedMessage)

type StateCallback func(state FeedState)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Feed follows one session's websocket feed and reconnects after drops.
// A session closed by the server is not reconnected.
type Feed struct {
	wsURL string

	conn   *websocket.Conn
	connM  sync.Mutex
	state  FeedState
	stateM sync.RWMutex

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
}

// NewFeed builds a feed client for wsURL, e.g. ws://host:8081/feed/<id>.
func NewFeed(wsURL string, maxReconnectAttempts int) *Feed {
	return &Feed{
		wsURL:                wsURL,
		state:                FeedDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
	}
}

func (f *Feed) Connect(ctx context.Context) error {
	f.stateM.Lock()
	if f.state == FeedConnected || f.state == FeedConnecting {
		f.stateM.Unlock()
		return nil
	}
	f.stateM.Unlock()

	f.rootCtx, f.rootCancel = context.WithCancel(context.Background())
	f.setState(FeedConnecting)

	conn, err := f.dial(ctx)
	if err != nil {
		f.setState(FeedFailed)
		f.scheduleReconnect()
		return err
	}
	f.attach(conn)
	return nil
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, f.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      f.buildHeaders(),
	})
	return conn, err
}

func (f *Feed) attach(conn *websocket.Conn) {
	f.connM.Lock()
	f.conn = conn
	f.connM.Unlock()
	f.setState(FeedConnected)

	f.wg.Add(2)
	go f.listen(conn)
	go f.pingLoop(conn)
}

func (f *Feed) listen(conn *websocket.Conn) {
	defer f.wg.Done()
	for {
		var msg stagedto.FeedMessage
		if err := wsjson.Read(f.rootCtx, conn, &msg); err != nil {
			if f.isStopping() {
				return
			}
			f.setState(FeedDisconnected)
			f.closeConn(conn, websocket.StatusGoingAway, "reconnect")
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return
			}
			f.scheduleReconnect()
			return
		}

		f.cbM.RLock()
		callbacks := make([]callbackEntry, len(f.msgCbs))
		copy(callbacks, f.msgCbs)
		f.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(&msg)
			}
		}
	}
}

func (f *Feed) pingLoop(conn *websocket.Conn) {
	defer f.wg.Done()
	t := time.NewTicker(f.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-f.stopCh:
			return
		case <-f.rootCtx.Done():
			return
		case <-t.C:
			f.connM.Lock()
			current := f.conn
			f.connM.Unlock()
			if current != conn {
				return
			}
			ctx, cancel := context.WithTimeout(f.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				// listen sees the closed conn and schedules the reconnect.
				f.closeConn(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (f *Feed) scheduleReconnect() {
	if f.maxReconnectAttempts <= 0 {
		return
	}
	f.setState(FeedReconnecting)

	go func() {
		for attempt := 1; attempt <= f.maxReconnectAttempts; attempt++ {
			select {
			case <-f.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			conn, err := f.dial(f.rootCtx)
			if err != nil {
				continue
			}
			f.attach(conn)
			return
		}
		f.setState(FeedFailed)
	}()
}

func (f *Feed) OnMessage(cb MessageCallback) int {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	f.nextCbID++
	f.msgCbs = append(f.msgCbs, callbackEntry{id: f.nextCbID, callback: cb})
	return f.nextCbID
}

func (f *Feed) RemoveMessageCallback(id int) {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	for i, cb := range f.msgCbs {
		if cb.id == id {
			f.msgCbs = append(f.msgCbs[:i], f.msgCbs[i+1:]...)
			break
		}
	}
}

func (f *Feed) OnStateChange(cb StateCallback) int {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	f.nextCbID++
	f.stateCbs = append(f.stateCbs, stateCallbackEntry{id: f.nextCbID, callback: cb})
	return f.nextCbID
}

func (f *Feed) RemoveStateCallback(id int) {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	for i, cb := range f.stateCbs {
		if cb.id == id {
			f.stateCbs = append(f.stateCbs[:i], f.stateCbs[i+1:]...)
			break
		}
	}
}

func (f *Feed) State() FeedState {
	f.stateM.RLock()
	defer f.stateM.RUnlock()
	return f.state
}

func (f *Feed) setState(state FeedState) {
	f.stateM.Lock()
	f.state = state
	f.stateM.Unlock()

	f.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(f.stateCbs))
	copy(callbacks, f.stateCbs)
	f.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

func (f *Feed) Close(ctx context.Context) error {
	f.stopOnce.Do(func() { close(f.stopCh) })
	f.connM.Lock()
	conn := f.conn
	f.connM.Unlock()
	if conn != nil {
		f.closeConn(conn, websocket.StatusNormalClosure, "close")
	}
	if f.rootCancel != nil {
		f.rootCancel()
	}

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		f.setState(FeedDisconnected)
		return nil
	}
}

func (f *Feed) closeConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	f.connM.Lock()
	if f.conn == conn {
		f.conn = nil
	}
	f.connM.Unlock()
	_ = conn.Close(code, reason)
}

func (f *Feed) isStopping() bool {
	select {
	case <-f.stopCh:
		return true
	default:
		return false
	}
}

// SetHeaderProvider allows injecting headers into the WS handshake.
func (f *Feed) SetHeaderProvider(h HeaderProvider) {
	f.headerProvider = h
}

func (f *Feed) buildHeaders() http.Header {
	hdr := http.Header{}
	if f.headerProvider == nil {
		return hdr
	}
	for k, v := range f.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}

package stagedto

const (
	FeedSnapshot   = "snapshot"
	FeedOp         = "op"
	FeedHighlights = "highlights"
	FeedBoard      = "board"
	FeedTheme      = "theme"
	FeedCamera     = "camera"
	FeedToast      = "toast"
	FeedClosed     = "closed"
)

// FeedMessage is one frame on the session websocket feed. Only the fields
// relevant to Type are set.
type FeedMessage struct {
	Type       string            `json:"type"`
	Session    string            `json:"session"`
	Seq        uint64            `json:"seq"`
	Op         *SceneOp          `json:"op,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
	WhiteTray  []TrayPiece       `json:"whiteTray,omitempty"`
	BlackTray  []TrayPiece       `json:"blackTray,omitempty"`
	LastMove   *Move             `json:"lastMove,omitempty"`
	Theme      *Palette          `json:"theme,omitempty"`
	Camera     *Camera           `json:"camera,omitempty"`
	Toast      string            `json:"toast,omitempty"`
	State      *SessionState     `json:"state,omitempty"`
}

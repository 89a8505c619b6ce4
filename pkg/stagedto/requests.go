package stagedto

type TapRequest struct {
	Square string `json:"square"`
}

type TapResponse struct {
	Transition string        `json:"transition"`
	Notice     string        `json:"notice,omitempty"`
	Toast      string        `json:"toast,omitempty"`
	Move       *Move         `json:"move,omitempty"`
	Ops        []SceneOp     `json:"ops"`
	State      *SessionState `json:"state"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type CameraRequest struct {
	Camera Camera `json:"camera"`
}

type SaveRequest struct {
	Slot string `json:"slot"`
}

type SaveResponse struct {
	Slot  string `json:"slot"`
	Toast string `json:"toast"`
}

type SlotList struct {
	Slots []string `json:"slots"`
}

// LoadRequest names a stored slot. A load request may instead carry a raw
// save record as its body.
type LoadRequest struct {
	Slot string `json:"slot"`
}

type ReplaySummary struct {
	Path        string `json:"path"`
	Applied     int    `json:"applied"`
	Skipped     int    `json:"skipped"`
	Rejected    int    `json:"rejected"`
	FENMismatch bool   `json:"fenMismatch"`
}

type LoadResponse struct {
	Toast  string        `json:"toast"`
	Replay *ReplaySummary `json:"replay,omitempty"`
	Ops    []SceneOp     `json:"ops"`
	State  *SessionState `json:"state"`
}

type HoverResponse struct {
	Square  string `json:"square"`
	Tooltip string `json:"tooltip"`
}

type ArchivedGame struct {
	ID         int64    `json:"id"`
	SessionID  string   `json:"sessionId"`
	Result     string   `json:"result"`
	Method     string   `json:"method"`
	MovesSAN   []string `json:"movesSan"`
	FinalFEN   string   `json:"finalFen"`
	EndedAt    int64    `json:"endedAt"`
	DurationMS int64    `json:"durationMs"`
}

package stagedto

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Camera struct {
	Position       Vec3 `json:"position"`
	Target         Vec3 `json:"target"`
	IsBoardFlipped bool `json:"isBoardFlipped"`
}

type Piece struct {
	Entity   uint64 `json:"entity"`
	Square   string `json:"square"`
	Piece    string `json:"piece"`
	Name     string `json:"name"`
	Position Vec3   `json:"position"`
}

type TrayPiece struct {
	Piece    string `json:"piece"`
	Position Vec3   `json:"position"`
}

type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Color     string `json:"color"`
	Piece     string `json:"piece"`
	Captured  string `json:"captured,omitempty"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san"`
	Flags     string `json:"flags"`
}

type Palette struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BoardLight string `json:"boardLight"`
	BoardDark  string `json:"boardDark"`
	Frame      string `json:"frame"`
	WhitePiece string `json:"whitePiece"`
	BlackPiece string `json:"blackPiece"`
	Background string `json:"background"`
	Ground     string `json:"ground"`
}

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
	Label string `json:"label"`
}

// SessionState is the full render state of a session.
type SessionState struct {
	ID          string            `json:"id"`
	FEN         string            `json:"fen"`
	Turn        string            `json:"turn"`
	Status      string            `json:"status"`
	InCheck     bool              `json:"inCheck"`
	GameOver    bool              `json:"gameOver"`
	Selected    string            `json:"selected,omitempty"`
	Highlights  map[string]string `json:"highlights"`
	Pieces      []Piece           `json:"pieces"`
	WhiteTray   []TrayPiece       `json:"whiteTray"`
	BlackTray   []TrayPiece       `json:"blackTray"`
	History     []Move            `json:"history"`
	HistoryRows []string          `json:"historyRows"`
	LastMove    *Move             `json:"lastMove,omitempty"`
	Theme       Palette           `json:"theme"`
	Camera      Camera            `json:"camera"`
	Opening     *Opening          `json:"opening,omitempty"`
	Toast       string            `json:"toast,omitempty"`
}

// SceneOp is one entity change for the renderer.
type SceneOp struct {
	Kind     string `json:"kind"`
	Entity   uint64 `json:"entity"`
	Piece    string `json:"piece,omitempty"`
	Mesh     string `json:"mesh,omitempty"`
	Position *Vec3  `json:"position,omitempty"`
}

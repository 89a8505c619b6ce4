package session

import (
	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/highlight"
	"github.com/park285/Cheese-3DChess/internal/stage"
	"github.com/park285/Cheese-3DChess/internal/theme"
)

type EventKind string

const (
	EventHighlights EventKind = "highlights"
	EventBoard      EventKind = "board"
	EventTheme      EventKind = "theme"
	EventCamera     EventKind = "camera"
	EventToast      EventKind = "toast"
)

// Event is a non-entity change a renderer has to apply. Entity changes
// travel through the stage.Scene given to the session.
type Event struct {
	Kind       EventKind
	Highlights highlight.Map
	Trays      stage.Trays
	LastMove   *domain.MoveRecord
	Palette    theme.Palette
	Camera     domain.CameraPose
	Toast      string
}

// Observer receives events while the session lock is held; it must not block
// or call back into the session.
type Observer func(sessionID string, ev Event)

package domain

import "time"

// ArchivedGame is a finished game written to the long-term archive.
type ArchivedGame struct {
	ID        int64
	SessionID string
	Result    string
	Method    string
	MovesSAN  []string
	MovesUCI  []string
	FinalFEN  string
	Theme     string
	StartedAt time.Time
	EndedAt   time.Time
}

func (g ArchivedGame) Duration() time.Duration {
	if g.StartedAt.IsZero() || g.EndedAt.IsZero() {
		return 0
	}
	return g.EndedAt.Sub(g.StartedAt)
}

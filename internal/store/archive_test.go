package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

func finishedGame(session string, ended time.Time) domain.ArchivedGame {
	return domain.ArchivedGame{
		SessionID: session,
		Result:    "0-1",
		Method:    "checkmate",
		MovesSAN:  []string{"f3", "e5", "g4", "Qh4#"},
		MovesUCI:  []string{"f2f3", "e7e5", "g2g4", "d8h4"},
		FinalFEN:  "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		Theme:     "classic",
		StartedAt: ended.Add(-90 * time.Second),
		EndedAt:   ended,
	}
}

func archives(t *testing.T) map[string]GameArchive {
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	out := map[string]GameArchive{
		"memory": NewMemoryArchive(),
		"sqlite": sqlite,
	}
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		pg, err := OpenPostgres(context.Background(), dsn)
		require.NoError(t, err)
		_, err = pg.db.Exec(`TRUNCATE stage_games`)
		require.NoError(t, err)
		out["postgres"] = pg
	}
	for _, a := range out {
		a := a
		t.Cleanup(func() { _ = a.Close() })
	}
	return out
}

func TestArchiveContract(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, a := range archives(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, a.Archive(ctx, finishedGame("s-1", base)))
			require.NoError(t, a.Archive(ctx, finishedGame("s-2", base.Add(time.Minute))))
			assert.ErrorIs(t, a.Archive(ctx, finishedGame("s-1", base)), ErrDuplicateGame)

			games, err := a.Recent(ctx, 10)
			require.NoError(t, err)
			require.Len(t, games, 2)
			assert.Equal(t, "s-2", games[0].SessionID)
			assert.Equal(t, "s-1", games[1].SessionID)
			assert.NotZero(t, games[0].ID)

			g := games[1]
			assert.Equal(t, []string{"f2f3", "e7e5", "g2g4", "d8h4"}, g.MovesUCI)
			assert.Equal(t, "Qh4#", g.MovesSAN[3])
			assert.Equal(t, "checkmate", g.Method)
			assert.True(t, base.Equal(g.EndedAt))
			assert.Equal(t, 90*time.Second, g.Duration())

			games, err = a.Recent(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, games, 1)
		})
	}
}

func TestOpenSQLiteCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "archive.db")
	a, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer a.Close()
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

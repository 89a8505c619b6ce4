package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS stage_games (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	result      TEXT NOT NULL,
	method      TEXT NOT NULL DEFAULT '',
	moves_san   TEXT NOT NULL,
	moves_uci   TEXT NOT NULL,
	final_fen   TEXT NOT NULL,
	theme       TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	ended_at    INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	UNIQUE (session_id, ended_at)
);
CREATE INDEX IF NOT EXISTS stage_games_ended_at ON stage_games (ended_at);
`

// SQLiteArchive is the single-node archive. Times are stored as unix milliseconds.
type SQLiteArchive struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteArchive, error) {
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, ":memory:") && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps a :memory: database on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteArchive{db: db}, nil
}

func (a *SQLiteArchive) Archive(ctx context.Context, g domain.ArchivedGame) error {
	movesSAN, movesUCI, err := marshalMoves(g)
	if err != nil {
		return err
	}
	const q = `
	INSERT OR IGNORE INTO stage_games (
		session_id, result, method, moves_san, moves_uci,
		final_fen, theme, started_at, ended_at, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	res, err := a.db.ExecContext(ctx, q,
		g.SessionID, g.Result, g.Method, string(movesSAN), string(movesUCI),
		g.FinalFEN, g.Theme, g.StartedAt.UnixMilli(), g.EndedAt.UnixMilli(), g.Duration().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert stage game: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateGame
	}
	return nil
}

func (a *SQLiteArchive) Recent(ctx context.Context, limit int) ([]domain.ArchivedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
	SELECT id, session_id, result, method, moves_san, moves_uci,
		final_fen, theme, started_at, ended_at
	FROM stage_games
	ORDER BY ended_at DESC, id DESC
	LIMIT ?;`

	rows, err := a.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("select stage games: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ArchivedGame, 0, limit)
	for rows.Next() {
		var (
			g                  domain.ArchivedGame
			sanJSON, uciJSON   string
			startedMS, endedMS int64
		)
		if err := rows.Scan(&g.ID, &g.SessionID, &g.Result, &g.Method, &sanJSON, &uciJSON,
			&g.FinalFEN, &g.Theme, &startedMS, &endedMS); err != nil {
			return nil, fmt.Errorf("scan stage game: %w", err)
		}
		g.StartedAt = time.UnixMilli(startedMS).UTC()
		g.EndedAt = time.UnixMilli(endedMS).UTC()
		if err := unmarshalMoves(&g, []byte(sanJSON), []byte(uciJSON)); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (a *SQLiteArchive) Close() error { return a.db.Close() }

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS stage_games (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT NOT NULL,
	result      TEXT NOT NULL,
	method      TEXT NOT NULL DEFAULT '',
	moves_san   JSONB NOT NULL,
	moves_uci   JSONB NOT NULL,
	final_fen   TEXT NOT NULL,
	theme       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	UNIQUE (session_id, ended_at)
)`

// PostgresArchive stores finished games in stage_games.
type PostgresArchive struct {
	db *sql.DB
}

// OpenPostgres connects, applies pool settings and creates the table.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	a := NewPostgresArchive(db)
	if err := a.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func NewPostgresArchive(db *sql.DB) *PostgresArchive { return &PostgresArchive{db: db} }

func (a *PostgresArchive) Migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate stage_games: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Archive(ctx context.Context, g domain.ArchivedGame) error {
	movesSAN, movesUCI, err := marshalMoves(g)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO stage_games (
			session_id, result, method, moves_san, moves_uci,
			final_fen, theme, started_at, ended_at, duration_ms
		)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id, ended_at) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = a.db.QueryRowContext(ctx, query,
		g.SessionID, g.Result, g.Method, movesSAN, movesUCI,
		g.FinalFEN, g.Theme, g.StartedAt, g.EndedAt, g.Duration().Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return ErrDuplicateGame
	}
	if err != nil {
		return fmt.Errorf("insert stage game: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Recent(ctx context.Context, limit int) ([]domain.ArchivedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT id, session_id, result, method, moves_san, moves_uci,
			final_fen, theme, started_at, ended_at
		FROM stage_games
		ORDER BY ended_at DESC, id DESC
		LIMIT $1`

	rows, err := a.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select stage games: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ArchivedGame, 0, limit)
	for rows.Next() {
		var (
			g       domain.ArchivedGame
			sanJSON []byte
			uciJSON []byte
		)
		if err := rows.Scan(&g.ID, &g.SessionID, &g.Result, &g.Method, &sanJSON, &uciJSON,
			&g.FinalFEN, &g.Theme, &g.StartedAt, &g.EndedAt); err != nil {
			return nil, fmt.Errorf("scan stage game: %w", err)
		}
		if err := unmarshalMoves(&g, sanJSON, uciJSON); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (a *PostgresArchive) Close() error { return a.db.Close() }

func marshalMoves(g domain.ArchivedGame) (san, uci []byte, err error) {
	if g.MovesSAN == nil {
		g.MovesSAN = []string{}
	}
	if g.MovesUCI == nil {
		g.MovesUCI = []string{}
	}
	if san, err = json.Marshal(g.MovesSAN); err != nil {
		return nil, nil, fmt.Errorf("marshal moves_san: %w", err)
	}
	if uci, err = json.Marshal(g.MovesUCI); err != nil {
		return nil, nil, fmt.Errorf("marshal moves_uci: %w", err)
	}
	return san, uci, nil
}

func unmarshalMoves(g *domain.ArchivedGame, san, uci []byte) error {
	if err := json.Unmarshal(san, &g.MovesSAN); err != nil {
		return fmt.Errorf("unmarshal moves_san: %w", err)
	}
	if err := json.Unmarshal(uci, &g.MovesUCI); err != nil {
		return fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	return nil
}

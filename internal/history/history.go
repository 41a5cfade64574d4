package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository archives finished matches in Postgres. It is append-only; live
// match state is never restored from it.
type Repository struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	room_id    TEXT PRIMARY KEY,
	white_name TEXT NOT NULL,
	black_name TEXT NOT NULL,
	result     TEXT NOT NULL,
	method     TEXT NOT NULL,
	moves_san  JSONB NOT NULL,
	pgn        TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at   TIMESTAMPTZ NOT NULL
)`

func New(ctx context.Context, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("empty database url")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	repo := &Repository{pool: pool}
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating matches table: %w", err)
	}
	return nil
}

// MatchRecord is one finished match.
type MatchRecord struct {
	RoomID    string
	White     string
	Black     string
	Result    string // "white", "black" or "draw"
	Method    string // "checkmate", "draw", "timeout", "aborted"
	MovesSAN  []string
	StartedAt time.Time
	EndedAt   time.Time
}

// SaveResult upserts the record so a retried archive cannot duplicate a
// match.
func (r *Repository) SaveResult(ctx context.Context, rec MatchRecord) error {
	if r == nil || r.pool == nil {
		return nil
	}

	moves, err := json.Marshal(rec.MovesSAN)
	if err != nil {
		return fmt.Errorf("encoding move list: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO matches (room_id, white_name, black_name, result, method, moves_san, pgn, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (room_id) DO UPDATE SET
			white_name = EXCLUDED.white_name,
			black_name = EXCLUDED.black_name,
			result     = EXCLUDED.result,
			method     = EXCLUDED.method,
			moves_san  = EXCLUDED.moves_san,
			pgn        = EXCLUDED.pgn,
			started_at = EXCLUDED.started_at,
			ended_at   = EXCLUDED.ended_at`,
		rec.RoomID, rec.White, rec.Black, rec.Result, rec.Method,
		moves, buildPGN(rec), rec.StartedAt, rec.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("saving match %s: %w", rec.RoomID, err)
	}
	return nil
}

func mapResultToPGN(result string) string {
	switch result {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	}
	return "*"
}

// buildPGN renders the archived game as a minimal PGN document.
func buildPGN(rec MatchRecord) string {
	result := mapResultToPGN(rec.Result)

	var b strings.Builder
	b.WriteString("[Event \"Casual game\"]\n")
	b.WriteString(fmt.Sprintf("[Date %q]\n", rec.EndedAt.Format("2006.01.02")))
	b.WriteString(fmt.Sprintf("[White %q]\n", sanitizePGN(rec.White)))
	b.WriteString(fmt.Sprintf("[Black %q]\n", sanitizePGN(rec.Black)))
	b.WriteString(fmt.Sprintf("[Termination %q]\n", sanitizePGN(rec.Method)))
	b.WriteString(fmt.Sprintf("[Result %q]\n", result))
	b.WriteString("\n")

	for i, san := range rec.MovesSAN {
		if i%2 == 0 {
			b.WriteString(fmt.Sprintf("%d. ", i/2+1))
		}
		b.WriteString(san)
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", "")
	s = strings.ReplaceAll(s, "\"", "")
	return s
}

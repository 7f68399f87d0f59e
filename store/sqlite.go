// Package store supplies ratings and head-to-head records to the
// relativity table: a sqlite game log, a YAML league file, and a scraped
// ratings page.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/domino14/lineupsolver/relativity"
)

var ErrUnknownPlayer = errors.New("player not in store")

var (
	_ relativity.RatingSource  = (*SQLiteStore)(nil)
	_ relativity.HistorySource = (*SQLiteStore)(nil)
)

// Game is one decided individual game.
type Game struct {
	White       string
	Black       string
	Winner      string
	TimeControl string
	PlayedAt    time.Time
}

// SQLiteStore keeps ratings and every recorded game in a sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway store.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection keeps :memory: databases coherent
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("sqlite-store-opened")
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS players (
		name TEXT PRIMARY KEY COLLATE NOCASE,
		rating REAL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS games (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		white TEXT NOT NULL COLLATE NOCASE,
		black TEXT NOT NULL COLLATE NOCASE,
		winner TEXT NOT NULL COLLATE NOCASE,
		time_control TEXT NOT NULL DEFAULT '',
		played_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_games_players ON games(white, black);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SetRating inserts or updates a player's rating.
func (s *SQLiteStore) SetRating(ctx context.Context, name string, rating float64) error {
	query := `
	INSERT INTO players (name, rating, updated_at) VALUES (?, ?, ?)
	ON CONFLICT (name) DO UPDATE SET
		rating = excluded.rating,
		updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, strings.TrimSpace(name), rating, time.Now().UTC())
	return err
}

// SetRatings stores many ratings in one transaction.
func (s *SQLiteStore) SetRatings(ctx context.Context, ratings map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := time.Now().UTC()
	for name, r := range ratings {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO players (name, rating, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET rating = excluded.rating, updated_at = excluded.updated_at
		`, strings.TrimSpace(name), r, now)
		if err != nil {
			return fmt.Errorf("storing rating for %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Ratings returns every rated player.
func (s *SQLiteStore) Ratings(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, rating FROM players WHERE rating IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()
	out := map[string]float64{}
	for rows.Next() {
		var name string
		var r float64
		if err := rows.Scan(&name, &r); err != nil {
			return nil, err
		}
		out[name] = r
	}
	return out, rows.Err()
}

// RecordGame logs a game. Both players must already be known.
func (s *SQLiteStore) RecordGame(ctx context.Context, g Game) error {
	winner := strings.TrimSpace(g.Winner)
	if !strings.EqualFold(winner, g.White) && !strings.EqualFold(winner, g.Black) {
		return fmt.Errorf("winner %q did not play %s vs %s", g.Winner, g.White, g.Black)
	}
	for _, n := range []string{g.White, g.Black} {
		if err := s.known(ctx, n); err != nil {
			return err
		}
	}
	if g.PlayedAt.IsZero() {
		g.PlayedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (white, black, winner, time_control, played_at) VALUES (?, ?, ?, ?, ?)`,
		strings.TrimSpace(g.White), strings.TrimSpace(g.Black), winner, g.TimeControl, g.PlayedAt.UTC())
	return err
}

func (s *SQLiteStore) known(ctx context.Context, name string) error {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players WHERE name = ?`,
		strings.TrimSpace(name)).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	}
	return nil
}

// HeadToHead counts a's and b's wins in games between them, whoever had
// white. Two known players who never met have a 0-0 record.
func (s *SQLiteStore) HeadToHead(ctx context.Context, a, b string) (int, int, error) {
	for _, n := range []string{a, b} {
		if err := s.known(ctx, n); err != nil {
			return 0, 0, err
		}
	}
	query := `
	SELECT
		COALESCE(SUM(CASE WHEN winner = ?1 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN winner = ?2 THEN 1 ELSE 0 END), 0)
	FROM games
	WHERE (white = ?1 AND black = ?2) OR (white = ?2 AND black = ?1)
	`
	var aWins, bWins int
	err := s.db.QueryRowContext(ctx, query, strings.TrimSpace(a), strings.TrimSpace(b)).Scan(&aWins, &bWins)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count head-to-head games: %w", err)
	}
	return aWins, bWins, nil
}

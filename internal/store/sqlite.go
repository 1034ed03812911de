// Package store reads results from the site's SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/poku-e/shootingboard/internal/scores"
)

// ErrNotFound is returned when the database file does not exist.
var ErrNotFound = errors.New("database not found")

// Store is a read-only view of a shooting.db file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens path read-only.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "shooting.db"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Load reads every player, score and team goal.
func (s *Store) Load(ctx context.Context) (*scores.DB, error) {
	out := &scores.DB{}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, COALESCE(gender, ''), COALESCE(entry_year, 0) FROM player ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}
	for rows.Next() {
		var p scores.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Gender, &p.EntryYear); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out.Players = append(out.Players, p)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("players: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, player_id, date, COALESCE(match_name, ''), COALESCE(category, ''),
		COALESCE(event_name, ''), COALESCE(s1, 0), COALESCE(s2, 0), COALESCE(s3, 0), COALESCE(s4, 0),
		COALESCE(s5, 0), COALESCE(s6, 0), COALESCE(total, 0) FROM score ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("select scores: %w", err)
	}
	for rows.Next() {
		var sc scores.Score
		var date string
		if err := rows.Scan(&sc.ID, &sc.PlayerID, &date, &sc.Match, &sc.Category, &sc.Event,
			&sc.Shots[0], &sc.Shots[1], &sc.Shots[2], &sc.Shots[3], &sc.Shots[4], &sc.Shots[5], &sc.Total); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan score: %w", err)
		}
		d, err := parseDate(date)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("score %d: %w", sc.ID, err)
		}
		sc.Date = d
		out.Scores = append(out.Scores, sc)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("scores: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT event_name, gender, COALESCE(target_score, 0) FROM team_goal ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select team goals: %w", err)
	}
	for rows.Next() {
		var g scores.TeamGoal
		if err := rows.Scan(&g.Event, &g.Gender, &g.Target); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan team goal: %w", err)
		}
		out.Goals = append(out.Goals, g)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("team goals: %w", err)
	}
	return out, nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}

// SQLAlchemy writes dates as ISO strings; older rows may carry a time part.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Package feedback records whether metadata lookups actually answered the
// question asked about a dashboard. Entries accumulate in a SQLite database
// and feed per-dashboard resolution stats.
package feedback

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one recorded interaction.
type Entry struct {
	ID        string
	SessionID string
	Dashboard string
	Question  string
	Answer    string
	Resolved  bool
	Comment   string
	CreatedAt time.Time
}

// Stats summarizes entries for one dashboard, or all of them when the
// dashboard name is empty.
type Stats struct {
	Dashboard      string
	Total          int
	Resolved       int
	Unresolved     int
	ResolutionRate float64
}

// Store is a SQLite-backed feedback log. Use ":memory:" as the path for an
// in-memory store in tests.
type Store struct {
	db *sql.DB
}

// Open opens the database and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening feedback database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging feedback database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing feedback schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Log records one entry. A missing id or session id is filled in; the
// stored entry is returned.
func (s *Store) Log(ctx context.Context, e Entry) (Entry, error) {
	if e.Dashboard == "" {
		return Entry{}, fmt.Errorf("feedback entry needs a dashboard name")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.SessionID == "" {
		e.SessionID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, session_id, dashboard, question, answer, resolved, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Dashboard, e.Question, e.Answer, e.Resolved, e.Comment, e.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("inserting feedback: %w", err)
	}
	return e, nil
}

// Stats returns resolution stats for one dashboard, or across all
// dashboards when the name is empty.
func (s *Store) Stats(ctx context.Context, dashboard string) (Stats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(resolved), 0) FROM feedback`
	args := []any{}
	if dashboard != "" {
		query += ` WHERE dashboard = ?`
		args = append(args, dashboard)
	}

	st := Stats{Dashboard: dashboard}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&st.Total, &st.Resolved); err != nil {
		return Stats{}, fmt.Errorf("querying feedback stats: %w", err)
	}
	st.Unresolved = st.Total - st.Resolved
	if st.Total > 0 {
		st.ResolutionRate = float64(st.Resolved) / float64(st.Total)
	}
	return st, nil
}

// StatsByDashboard returns stats for every dashboard with entries, sorted
// by dashboard name.
func (s *Store) StatsByDashboard(ctx context.Context) ([]Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dashboard, COUNT(*), COALESCE(SUM(resolved), 0)
		 FROM feedback GROUP BY dashboard ORDER BY dashboard`)
	if err != nil {
		return nil, fmt.Errorf("querying feedback stats: %w", err)
	}
	defer rows.Close()

	var out []Stats
	for rows.Next() {
		var st Stats
		if err := rows.Scan(&st.Dashboard, &st.Total, &st.Resolved); err != nil {
			return nil, fmt.Errorf("scanning feedback stats: %w", err)
		}
		st.Unresolved = st.Total - st.Resolved
		if st.Total > 0 {
			st.ResolutionRate = float64(st.Resolved) / float64(st.Total)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, dashboard, question, answer, resolved, comment, created_at
		 FROM feedback ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Dashboard, &e.Question, &e.Answer, &e.Resolved, &e.Comment, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

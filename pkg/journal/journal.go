// Package journal keeps a local sqlite record of answered questions so a
// deployment can be reviewed after the fact.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Outcomes recorded for a turn.
const (
	OutcomeAnswered   = "answered"
	OutcomeResolved   = "resolved"
	OutcomeEmpty      = "empty_response"
	OutcomeFailed     = "command_failed"
	OutcomeConnection = "connection_failed"
	OutcomeSpeakError = "speak_failed"
)

// Turn is one question and what came of it.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Score     float64   `json:"score"`
	Origin    string    `json:"origin"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
}

// Journal is a sqlite-backed turn log.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("journal: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	// A single connection keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record appends t. Missing ID and timestamp are filled in.
func (j *Journal) Record(ctx context.Context, t Turn) (Turn, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.At.IsZero() {
		t.At = time.Now()
	}

	const insertTurn = `
INSERT INTO turns (id, session_id, at, question, answer, score, origin, outcome, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

	_, err := j.db.ExecContext(ctx, insertTurn,
		t.ID,
		t.SessionID,
		t.At.UnixMilli(),
		t.Question,
		t.Answer,
		t.Score,
		t.Origin,
		t.Outcome,
		t.Error,
	)
	if err != nil {
		return Turn{}, fmt.Errorf("insert turn: %w", err)
	}
	return t, nil
}

// Recent returns up to n turns, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Turn, error) {
	const recent = `
SELECT id, session_id, at, question, answer, score, origin, outcome, error
FROM turns
ORDER BY at DESC, rowid DESC
LIMIT ?
`
	return j.query(ctx, recent, n)
}

// Session returns the turns of one session in order.
func (j *Journal) Session(ctx context.Context, sessionID string) ([]Turn, error) {
	const bySession = `
SELECT id, session_id, at, question, answer, score, origin, outcome, error
FROM turns
WHERE session_id = ?
ORDER BY at, rowid
`
	return j.query(ctx, bySession, sessionID)
}

// Count returns the number of recorded turns.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT count(*) FROM turns`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return n, nil
}

func (j *Journal) query(ctx context.Context, query string, args ...any) ([]Turn, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var at int64
		if err := rows.Scan(
			&t.ID,
			&t.SessionID,
			&at,
			&t.Question,
			&t.Answer,
			&t.Score,
			&t.Origin,
			&t.Outcome,
			&t.Error,
		); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.At = time.UnixMilli(at)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

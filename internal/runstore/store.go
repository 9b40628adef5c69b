package runstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jamiesonbates/trendscout/internal/analysis"
)

// Store persists completed analysis runs to SQLite. The full response
// envelope is kept as a JSON blob; keyword, mode, and timestamps are
// lifted into columns for querying.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	keyword    TEXT NOT NULL,
	mode       TEXT NOT NULL,
	envelope   TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_keyword ON runs (keyword, created_at DESC);
`

var ErrNotFound = errors.New("run not found")

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type RunSummary struct {
	ID        int64     `json:"id"`
	Keyword   string    `json:"keyword"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Store) SaveRun(env analysis.ResponseEnvelope) (int64, error) {
	blob, err := json.Marshal(env)
	if err != nil {
		return 0, fmt.Errorf("marshal envelope: %w", err)
	}
	res, err := s.db.Exec(
		"INSERT INTO runs (keyword, mode, envelope, created_at) VALUES (?, ?, ?, ?)",
		env.Keyword, string(env.ReportMode), string(blob), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// LatestByKeyword returns the most recent run for a keyword.
func (s *Store) LatestByKeyword(keyword string) (analysis.ResponseEnvelope, error) {
	var blob string
	err := s.db.QueryRow(
		"SELECT envelope FROM runs WHERE keyword = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		keyword,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.ResponseEnvelope{}, ErrNotFound
	}
	if err != nil {
		return analysis.ResponseEnvelope{}, err
	}
	var env analysis.ResponseEnvelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return analysis.ResponseEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

func (s *Store) GetRun(id int64) (analysis.ResponseEnvelope, error) {
	var blob string
	err := s.db.QueryRow("SELECT envelope FROM runs WHERE id = ?", id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.ResponseEnvelope{}, ErrNotFound
	}
	if err != nil {
		return analysis.ResponseEnvelope{}, err
	}
	var env analysis.ResponseEnvelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return analysis.ResponseEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// ListRuns returns summaries of the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT id, keyword, mode, created_at FROM runs ORDER BY created_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Keyword, &r.Mode, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Attempt statuses recorded locally.
const (
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusAbandoned  = "abandoned"
)

// Attempt is one locally recorded attempt.
type Attempt struct {
	AttemptID     string
	CategoryID    string
	Status        string
	AnsweredCount int
	StartedAt     time.Time
	FinishedAt    time.Time // zero while in progress
}

// Store keeps a local record of attempts and autosaved answer drafts so the
// history survives restarts and an interrupted attempt's selections are not
// silently lost. Everything here is an offline convenience: the scoring
// service remains the source of truth.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = "history.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			attempt_id TEXT PRIMARY KEY,
			category_id TEXT NOT NULL,
			status TEXT NOT NULL,
			answered_count INTEGER NOT NULL DEFAULT 0,
			started_at_unix INTEGER NOT NULL,
			finished_at_unix INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS drafts (
			attempt_id TEXT PRIMARY KEY,
			answers_json TEXT NOT NULL,
			updated_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON attempts(started_at_unix DESC);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) RecordStart(ctx context.Context, attemptID, categoryID string) error {
	if attemptID == "" {
		return errors.New("attempt id is required")
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO attempts (attempt_id, category_id, status, answered_count, started_at_unix, finished_at_unix)
		 VALUES (?, ?, ?, 0, ?, NULL)`,
		attemptID,
		categoryID,
		StatusInProgress,
		time.Now().UTC().Unix(),
	)
	return err
}

func (s *Store) MarkSubmitted(ctx context.Context, attemptID string, answered int) error {
	return s.finish(ctx, attemptID, StatusSubmitted, answered)
}

func (s *Store) MarkAbandoned(ctx context.Context, attemptID string) error {
	return s.finish(ctx, attemptID, StatusAbandoned, -1)
}

func (s *Store) finish(ctx context.Context, attemptID, status string, answered int) error {
	if attemptID == "" {
		return errors.New("attempt id is required")
	}

	if answered >= 0 {
		_, err := s.db.ExecContext(
			ctx,
			`UPDATE attempts SET status = ?, answered_count = ?, finished_at_unix = ? WHERE attempt_id = ?`,
			status, answered, time.Now().UTC().Unix(), attemptID,
		)
		return err
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE attempts SET status = ?, finished_at_unix = ? WHERE attempt_id = ?`,
		status, time.Now().UTC().Unix(), attemptID,
	)
	return err
}

// SaveDraft replaces the autosaved answer map for an attempt. The answer map
// is the serialization unit: question id to the ordered selections.
func (s *Store) SaveDraft(ctx context.Context, attemptID string, answers map[string][]string) error {
	if attemptID == "" {
		return errors.New("attempt id is required")
	}

	encoded, err := json.Marshal(answers)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO drafts (attempt_id, answers_json, updated_at_unix) VALUES (?, ?, ?)`,
		attemptID,
		string(encoded),
		time.Now().UTC().Unix(),
	)
	return err
}

// Draft loads the autosaved answer map for an attempt, reporting whether one
// exists.
func (s *Store) Draft(ctx context.Context, attemptID string) (map[string][]string, bool, error) {
	var encoded string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT answers_json FROM drafts WHERE attempt_id = ?`,
		attemptID,
	).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	answers := make(map[string][]string)
	if err := json.Unmarshal([]byte(encoded), &answers); err != nil {
		return nil, false, fmt.Errorf("decode draft: %w", err)
	}
	return answers, true, nil
}

func (s *Store) ClearDraft(ctx context.Context, attemptID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE attempt_id = ?`, attemptID)
	return err
}

// ListAttempts returns the most recently started attempts, newest first.
func (s *Store) ListAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT attempt_id, category_id, status, answered_count, started_at_unix, finished_at_unix
		 FROM attempts ORDER BY started_at_unix DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var item Attempt
		var startedAt int64
		var finishedAt sql.NullInt64
		if err := rows.Scan(&item.AttemptID, &item.CategoryID, &item.Status, &item.AnsweredCount, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		item.StartedAt = time.Unix(startedAt, 0).UTC()
		if finishedAt.Valid {
			item.FinishedAt = time.Unix(finishedAt.Int64, 0).UTC()
		}
		attempts = append(attempts, item)
	}
	return attempts, rows.Err()
}

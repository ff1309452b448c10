// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides transcript persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode so the CLI can read while a chat is writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS transcripts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			agent_name TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL,
			message_count INTEGER NOT NULL,
			payload BLOB NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transcripts_created
			ON transcripts(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTranscript inserts a transcript, assigning an ID if missing.
func (s *SQLiteStore) SaveTranscript(ctx context.Context, t *Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Payload == nil {
		t.Payload = []byte("[]")
	}

	query := `
		INSERT INTO transcripts (id, session_id, agent_name, reason, message_count, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.SessionID,
		t.AgentName,
		t.Reason,
		t.MessageCount,
		t.Payload,
		t.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting transcript: %w", err)
	}

	s.logger.Debug("saved transcript", "id", t.ID, "messages", t.MessageCount, "reason", t.Reason)
	return nil
}

// GetTranscript retrieves a transcript by ID.
// Returns ErrNotFound if the transcript doesn't exist.
func (s *SQLiteStore) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	query := `
		SELECT id, session_id, agent_name, reason, message_count, payload, created_at
		FROM transcripts
		WHERE id = ?
	`

	var t Transcript
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.SessionID,
		&t.AgentName,
		&t.Reason,
		&t.MessageCount,
		&t.Payload,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}

	t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &t, nil
}

// ListTranscripts returns up to limit transcripts ordered by created_at DESC.
func (s *SQLiteStore) ListTranscripts(ctx context.Context, limit int) ([]*Transcript, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT id, session_id, agent_name, reason, message_count, created_at
		FROM transcripts
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		var t Transcript
		var createdAtStr string

		if err := rows.Scan(
			&t.ID,
			&t.SessionID,
			&t.AgentName,
			&t.Reason,
			&t.MessageCount,
			&createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("scanning transcript row: %w", err)
		}

		t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		transcripts = append(transcripts, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transcript rows: %w", err)
	}

	return transcripts, nil
}

// DeleteTranscript removes a transcript by ID.
func (s *SQLiteStore) DeleteTranscript(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transcripts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting transcript: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

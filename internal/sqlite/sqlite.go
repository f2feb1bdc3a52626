// Package sqlite is a local, file-backed store with the same conversations
// and messages tables as the hosted backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vasilisp/postgen/internal/store"
	"github.com/vasilisp/postgen/internal/util"
)

const schema = `
	CREATE TABLE IF NOT EXISTS conversations(
		id TEXT PRIMARY KEY,
		title TEXT,
		status TEXT,
		summary TEXT,
		state TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages(
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		agent_name TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS messages_conversation_created
		ON messages(conversation_id, created_at);
`

// Timestamps are stored as fixed-width UTC text so that ORDER BY on the
// column sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	util.Assert(path != "", "Open empty path")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	slog.Info("opened sqlite store", "path", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	util.Assert(s != nil && s.db != nil, "Close nil DB")
	s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return store.ParseTime(s)
}

func (s *Store) Conversation(ctx context.Context, id string) (*store.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, status, summary, state, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`, id)

	c, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("conversation %s: %w", id, err)
	}
	return c, nil
}

func (s *Store) Conversations(ctx context.Context, limit int) ([]store.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, status, summary, state, created_at, updated_at
		FROM conversations
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	result := make([]store.Conversation, 0, limit)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (s *Store) Messages(ctx context.Context, conversationID string) ([]store.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, agent_name, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("messages of %s: %w", conversationID, err)
	}
	defer rows.Close()

	result := []store.Message{}
	for rows.Next() {
		var m store.Message
		var agentName sql.NullString
		var createdAt string

		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &agentName, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("message %s created_at: %w", m.ID, err)
		}
		m.AgentName = agentName.String
		result = append(result, m)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*store.Conversation, error) {
	var c store.Conversation
	var title, status, summary, state sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&c.ID, &title, &status, &summary, &state, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}

	c.Title = title.String
	c.Status = status.String
	c.Summary = summary.String
	if state.Valid {
		c.State = []byte(state.String)
	}
	return &c, nil
}

// InsertConversation adds c, leaving an existing row with the same id
// untouched.
func (s *Store) InsertConversation(ctx context.Context, c store.Conversation) error {
	var state any
	if len(c.State) > 0 {
		state = string(c.State)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations(id, title, status, summary, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, c.ID, c.Title, c.Status, nullString(c.Summary), state, formatTime(c.CreatedAt), formatTime(c.UpdatedAt)); err != nil {
		return fmt.Errorf("insert conversation %s: %w", c.ID, err)
	}

	slog.Debug("inserted conversation", "id", c.ID)
	return nil
}

// InsertMessage adds m, leaving an existing row with the same id untouched.
func (s *Store) InsertMessage(ctx context.Context, m store.Message) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO messages(id, conversation_id, role, content, agent_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, m.ID, m.ConversationID, m.Role, m.Content, nullString(m.AgentName), formatTime(m.CreatedAt)); err != nil {
		return fmt.Errorf("insert message %s: %w", m.ID, err)
	}

	slog.Debug("inserted message", "id", m.ID, "conversation_id", m.ConversationID)
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

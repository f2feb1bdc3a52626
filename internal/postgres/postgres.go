// Package postgres reads conversations straight from the Postgres database
// behind the hosted backend.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasilisp/postgen/internal/store"
	"github.com/vasilisp/postgen/internal/util"
)

const conversationColumns = `
	id::text, COALESCE(title, ''), COALESCE(status, ''), COALESCE(summary, ''),
	state, created_at, updated_at`

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	util.Assert(dsn != "", "Open empty dsn")

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Conversation(ctx context.Context, id string) (*store.Conversation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+`
		 FROM conversations WHERE id::text = $1`,
		id,
	)

	c, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("conversation %s: %w", id, err)
	}
	return c, nil
}

func (s *Store) Conversations(ctx context.Context, limit int) ([]store.Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+conversationColumns+`
		 FROM conversations ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
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
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, conversation_id::text, COALESCE(role, ''), COALESCE(content, ''),
		        COALESCE(agent_name, ''), created_at
		 FROM messages WHERE conversation_id::text = $1 ORDER BY created_at ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("messages of %s: %w", conversationID, err)
	}
	defer rows.Close()

	result := []store.Message{}
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.AgentName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func scanConversation(row pgx.Row) (*store.Conversation, error) {
	var c store.Conversation
	var state []byte

	if err := row.Scan(&c.ID, &c.Title, &c.Status, &c.Summary, &state, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.State = state
	return &c, nil
}

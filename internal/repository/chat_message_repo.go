package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rmi/internal/domain"
)

// ChatMessageRepository es el historial append-only de cada usuario.
type ChatMessageRepository interface {
	Create(ctx context.Context, message domain.ChatMessage) error
	ListByUser(ctx context.Context, userID string) ([]domain.ChatMessage, error)
	// LastUserMessage devuelve nil si el usuario todavía no escribió nada.
	LastUserMessage(ctx context.Context, userID string) (*domain.ChatMessage, error)
	DeleteAll(ctx context.Context, userID string) error
}

type PgChatMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatMessageRepository(pool *pgxpool.Pool) *PgChatMessageRepository {
	return &PgChatMessageRepository{pool: pool}
}

func (r *PgChatMessageRepository) Create(ctx context.Context, m domain.ChatMessage) error {
	const query = `
		INSERT INTO chat_messages (id, user_id, sender, text, ts, structured_response)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var structured []byte
	if m.Response != nil {
		b, err := json.Marshal(m.Response)
		if err != nil {
			return fmt.Errorf("marshal structured response: %w", err)
		}
		structured = b
	}
	_, err := r.pool.Exec(ctx, query,
		m.ID,
		m.UserID,
		string(m.Sender),
		m.Text,
		m.Timestamp,
		structured,
	)
	return err
}

func (r *PgChatMessageRepository) ListByUser(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	const query = `
		SELECT id, user_id, sender, text, ts, structured_response
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY ts ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		m, err := scanChatMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PgChatMessageRepository) LastUserMessage(ctx context.Context, userID string) (*domain.ChatMessage, error) {
	const query = `
		SELECT id, user_id, sender, text, ts, structured_response
		FROM chat_messages
		WHERE user_id = $1 AND sender = 'user'
		ORDER BY ts DESC, id DESC
		LIMIT 1
	`
	m, err := scanChatMessage(r.pool.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgChatMessageRepository) DeleteAll(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chat_messages WHERE user_id = $1`, userID)
	return err
}

func scanChatMessage(row pgx.Row) (domain.ChatMessage, error) {
	var (
		m          domain.ChatMessage
		sender     string
		structured []byte
	)
	if err := row.Scan(&m.ID, &m.UserID, &sender, &m.Text, &m.Timestamp, &structured); err != nil {
		return domain.ChatMessage{}, err
	}
	m.Sender = domain.Sender(sender)
	if len(structured) > 0 {
		var resp domain.AIResponse
		if err := json.Unmarshal(structured, &resp); err != nil {
			return domain.ChatMessage{}, fmt.Errorf("unmarshal structured response: %w", err)
		}
		m.Response = &resp
	}
	return m, nil
}

package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"driftchat/internal/db"
	"driftchat/internal/models"
)

type MessageRepo interface {
	// Save persists the message and all of its attachments in a single
	// transaction; either everything commits or nothing is visible.
	Save(ctx context.Context, m *models.Message) error

	// HistoryByChat returns every message of the chat in ascending timestamp
	// order with attachments resolved; ties fall back to insertion order.
	HistoryByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error)
}

type PostgresMessagesRepo struct {
	pool Querier
}

func NewMessagesRepo(pool Querier) MessageRepo {
	return &PostgresMessagesRepo{
		pool: pool,
	}
}

func (r *PostgresMessagesRepo) Save(ctx context.Context, m *models.Message) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insertMessage = `
			INSERT INTO messages (id, chat_id, sender_id, content, created_at)
			VALUES ($1, $2, $3, $4, $5)`

		if _, err := tx.Exec(ctx, insertMessage,
			m.ID, m.ChatID, m.SenderID, m.Content, m.Timestamp); err != nil {
			return err
		}

		for _, a := range m.Attachments {
			const insertAttachment = `
				INSERT INTO attachments (id, kind, url, filename, mime_type, size_bytes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`

			if _, err := tx.Exec(ctx, insertAttachment,
				a.ID, a.Kind, a.URL, a.Filename, a.MimeType, a.SizeBytes, a.CreatedAt); err != nil {
				return err
			}

			const insertJoin = `
				INSERT INTO message_attachments (message_id, attachment_id)
				VALUES ($1, $2)`

			if _, err := tx.Exec(ctx, insertJoin, m.ID, a.ID); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		log.Printf("[REPO ERROR] Failed to save message %s from %s: %v", m.ID, m.SenderID, err)
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

func (r *PostgresMessagesRepo) HistoryByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	const query = `
		SELECT id, chat_id, sender_id, content, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC, seq ASC`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		log.Printf("[REPO ERROR] History fetch failed for chat %s: %v", chatID, err)
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	byID := make(map[uuid.UUID]*models.Message)
	for rows.Next() {
		m := &models.Message{Attachments: []models.Attachment{}}
		err := rows.Scan(
			&m.ID,
			&m.ChatID,
			&m.SenderID,
			&m.Content,
			&m.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, m)
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		return messages, nil
	}

	const attachmentQuery = `
		SELECT ma.message_id, a.id, a.kind, a.url, a.filename, a.mime_type, a.size_bytes, a.created_at
		FROM attachments a
		JOIN message_attachments ma ON a.id = ma.attachment_id
		JOIN messages m ON m.id = ma.message_id
		WHERE m.chat_id = $1
		ORDER BY ma.seq ASC`

	arows, err := r.pool.Query(ctx, attachmentQuery, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachments: %w", err)
	}
	defer arows.Close()

	for arows.Next() {
		var messageID uuid.UUID
		var a models.Attachment
		err := arows.Scan(
			&messageID,
			&a.ID,
			&a.Kind,
			&a.URL,
			&a.Filename,
			&a.MimeType,
			&a.SizeBytes,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		if m, ok := byID[messageID]; ok {
			m.Attachments = append(m.Attachments, a)
		}
	}

	return messages, arows.Err()
}

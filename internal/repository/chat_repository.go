package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"driftchat/internal/db"
	"driftchat/internal/models"
)

type ChatRepository interface {
	// FindOrCreateDirect resolves the canonical direct chat for the unordered
	// pair {a, b}: a read-only lookup first, then a transactional create. Two
	// concurrent first contacts for the same pair can both miss the lookup
	// and create two chats; that window is left open on purpose (see
	// DESIGN.md) rather than papered over with a constraint that would
	// change observable behavior.
	FindOrCreateDirect(ctx context.Context, a, b uuid.UUID) (uuid.UUID, bool, error)

	GetChat(ctx context.Context, chatID uuid.UUID) (*models.Chat, error)
	ChatsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error)
	IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
	Participants(ctx context.Context, chatID uuid.UUID) ([]models.Participant, error)
}

type PostgresChatRepo struct {
	pool Querier
}

func NewChatRepo(pool Querier) ChatRepository {
	return &PostgresChatRepo{
		pool: pool,
	}
}

func (r *PostgresChatRepo) FindOrCreateDirect(ctx context.Context, a, b uuid.UUID) (uuid.UUID, bool, error) {
	const lookup = `
		SELECT c.id
		FROM chats c
		JOIN chat_participants cp1 ON c.id = cp1.chat_id
		JOIN chat_participants cp2 ON c.id = cp2.chat_id
		WHERE c.chat_type = 'direct'
		  AND cp1.user_id = $1
		  AND cp2.user_id = $2
		LIMIT 1`

	var chatID uuid.UUID
	err := r.pool.QueryRow(ctx, lookup, a, b).Scan(&chatID)
	if err == nil {
		return chatID, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, fmt.Errorf("direct chat lookup failed: %w", err)
	}

	chatID = uuid.New()
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chats (id, chat_type) VALUES ($1, 'direct')`, chatID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2), ($1, $3)`,
			chatID, a, b)
		return err
	})
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("direct chat create failed: %w", err)
	}

	log.Printf("[REPO] Created direct chat %s for pair (%s, %s)", chatID, a, b)
	return chatID, true, nil
}

func (r *PostgresChatRepo) GetChat(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	const query = `
		SELECT id, name, chat_type, created_at
		FROM chats
		WHERE id = $1`

	chat := &models.Chat{}
	err := r.pool.QueryRow(ctx, query, chatID).Scan(
		&chat.ID,
		&chat.Name,
		&chat.Type,
		&chat.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find chat by ID: %w", err)
	}

	participants, err := r.Participants(ctx, chatID)
	if err != nil {
		return nil, err
	}
	chat.Participants = make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		chat.Participants = append(chat.Participants, p.UserID)
	}

	return chat, nil
}

func (r *PostgresChatRepo) ChatsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error) {
	const query = `
		SELECT c.id, c.name, c.chat_type, c.created_at
		FROM chats c
		JOIN chat_participants cp ON c.id = cp.chat_id
		WHERE cp.user_id = $1
		ORDER BY c.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []*models.Chat
	for rows.Next() {
		chat := &models.Chat{}
		if err := rows.Scan(&chat.ID, &chat.Name, &chat.Type, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, chat := range chats {
		participants, err := r.Participants(ctx, chat.ID)
		if err != nil {
			return nil, err
		}
		chat.Participants = make([]uuid.UUID, 0, len(participants))
		for _, p := range participants {
			chat.Participants = append(chat.Participants, p.UserID)
		}
	}

	return chats, nil
}

func (r *PostgresChatRepo) IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	const query = `SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2`

	var one int
	err := r.pool.QueryRow(ctx, query, chatID, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("participant check failed: %w", err)
	}
	return true, nil
}

func (r *PostgresChatRepo) Participants(ctx context.Context, chatID uuid.UUID) ([]models.Participant, error) {
	const query = `
		SELECT u.id, u.username
		FROM chat_participants cp
		JOIN users u ON cp.user_id = u.id
		WHERE cp.chat_id = $1`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.UserID, &p.Username); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

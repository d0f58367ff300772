package models

import (
	"time"

	"github.com/google/uuid"
)

type ChatType string

const (
	ChatDirect ChatType = "direct"
	ChatGroup  ChatType = "group"
	ChatServer ChatType = "server"
)

type Chat struct {
	ID           uuid.UUID   `json:"id"`
	Name         *string     `json:"name,omitempty"`
	Type         ChatType    `json:"chat_type"`
	CreatedAt    time.Time   `json:"created_at"`
	Participants []uuid.UUID `json:"participants"`
}

// Participant is one membership row of a chat, resolved to a username so the
// fan-out layer can address the user's live sessions.
type Participant struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

package types

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserDTO struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name,omitempty"`
	Bio         *string   `json:"bio,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type InitiateChatRequest struct {
	TargetID uuid.UUID `json:"target_id" validate:"required"`
}

type ChatStatus string

const (
	ChatExists  ChatStatus = "exists"
	ChatCreated ChatStatus = "created"
)

type InitiateChatResponse struct {
	ChatID uuid.UUID  `json:"chat_id"`
	Status ChatStatus `json:"status"`
}

type UploadResponse struct {
	URL       string  `json:"url"`
	Filename  string  `json:"filename"`
	MimeType  *string `json:"mimeType,omitempty"`
	SizeBytes int64   `json:"sizeBytes"`
}

package types

import (
	"github.com/google/uuid"

	"driftchat/internal/models"
)

// Inbound is the wire shape a client sends over the push connection. Tags
// cover structural validity; the attachment limits and the text-or-files
// rule live in the pipeline where they produce specific messages.
type Inbound struct {
	ChatID  uuid.UUID     `json:"chatId" validate:"required"`
	Content *string       `json:"content"`
	Files   []InboundFile `json:"files" validate:"dive"`
}

type InboundFile struct {
	Kind      models.AttachmentKind `json:"type" validate:"required,oneof=picture video audio file"`
	URL       string                `json:"url" validate:"required"`
	Filename  string                `json:"filename" validate:"required"`
	MimeType  *string               `json:"mimeType"`
	SizeBytes int64                 `json:"sizeBytes" validate:"gte=0"`
}

// HistoryResponse is the REST shape for an ordered chat history read.
type HistoryResponse struct {
	ChatID   uuid.UUID         `json:"chat_id"`
	Messages []*models.Message `json:"messages"`
}

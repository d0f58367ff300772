package models

import (
	"time"

	"github.com/google/uuid"
)

type AttachmentKind string

const (
	KindPicture AttachmentKind = "picture"
	KindVideo   AttachmentKind = "video"
	KindAudio   AttachmentKind = "audio"
	KindFile    AttachmentKind = "file"
)

type Attachment struct {
	ID        uuid.UUID      `json:"id"`
	Kind      AttachmentKind `json:"type"`
	URL       string         `json:"url"`
	Filename  string         `json:"filename"`
	MimeType  *string        `json:"mimeType,omitempty"`
	SizeBytes int64          `json:"sizeBytes"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Message is the persisted form; its JSON encoding is also the fan-out
// payload pushed to live sessions. Timestamp is server-assigned at persist
// time and is the sole ordering key for history reads.
type Message struct {
	ID          uuid.UUID    `json:"id"`
	ChatID      uuid.UUID    `json:"chatId"`
	SenderID    uuid.UUID    `json:"senderId"`
	Content     *string      `json:"content,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"files"`
}

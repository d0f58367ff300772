package pipeline

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"driftchat/internal/apperr"
	"driftchat/internal/auth"
	"driftchat/internal/metrics"
	"driftchat/internal/models"
	"driftchat/internal/registry"
	"driftchat/internal/types"
)

const (
	maxAttachments     = 10
	maxAttachmentBytes = 10 * 1024 * 1024
)

// Pipeline is the single choke point every chat message passes through:
// validate, authorize, persist, fan out. Multiple Submit calls may run
// concurrently; no global lock serializes them, and a Submit is never
// cancelled once persistence has started.
type Pipeline struct {
	chats    repositoryChats
	messages repositoryMessages
	registry *registry.Registry
	validate *validator.Validate
}

// The pipeline only needs these slices of the repository surface; the narrow
// interfaces keep it testable against in-memory fakes.
type repositoryChats interface {
	IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
	Participants(ctx context.Context, chatID uuid.UUID) ([]models.Participant, error)
}

type repositoryMessages interface {
	Save(ctx context.Context, m *models.Message) error
	HistoryByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error)
}

func New(chats repositoryChats, messages repositoryMessages, reg *registry.Registry) *Pipeline {
	return &Pipeline{
		chats:    chats,
		messages: messages,
		registry: reg,
		validate: validator.New(),
	}
}

// Submit validates, authorizes, persists and fans out one inbound message.
// Persistence is the durability boundary: once Save commits, live-push
// failures cannot fail the call.
func (p *Pipeline) Submit(ctx context.Context, sender auth.Principal, in *types.Inbound) (*models.Message, error) {
	if err := p.validateContent(in); err != nil {
		return nil, err
	}

	// Membership must reflect committed state at call time; nothing is cached.
	isParticipant, err := p.chats.IsParticipant(ctx, in.ChatID, sender.UserID)
	if err != nil {
		return nil, apperr.Storage("participant check failed", err)
	}
	if !isParticipant {
		return nil, apperr.Authorization("user %s is not a participant of chat %s", sender.Username, in.ChatID)
	}

	msg := p.buildMessage(sender.UserID, in)
	if err := p.messages.Save(ctx, msg); err != nil {
		return nil, apperr.Storage("failed to persist message", err)
	}
	metrics.MessagesPersisted.Inc()

	p.fanOut(ctx, msg)

	return msg, nil
}

// History returns the chat's messages in ascending timestamp order after the
// same membership check Submit performs.
func (p *Pipeline) History(ctx context.Context, caller auth.Principal, chatID uuid.UUID) ([]*models.Message, error) {
	isParticipant, err := p.chats.IsParticipant(ctx, chatID, caller.UserID)
	if err != nil {
		return nil, apperr.Storage("participant check failed", err)
	}
	if !isParticipant {
		return nil, apperr.Authorization("user %s is not a participant of chat %s", caller.Username, chatID)
	}

	messages, err := p.messages.HistoryByChat(ctx, chatID)
	if err != nil {
		return nil, apperr.Storage("failed to read history", err)
	}
	return messages, nil
}

func (p *Pipeline) validateContent(in *types.Inbound) error {
	if err := p.validate.Struct(in); err != nil {
		return apperr.Validation("malformed message: %v", err)
	}

	hasContent := in.Content != nil && strings.TrimSpace(*in.Content) != ""
	if !hasContent && len(in.Files) == 0 {
		return apperr.Validation("message must have text or at least one file")
	}
	if len(in.Files) > maxAttachments {
		return apperr.Validation("maximum %d files allowed per message", maxAttachments)
	}
	for _, f := range in.Files {
		if f.SizeBytes > maxAttachmentBytes {
			return apperr.Validation("file %s exceeds 10MB limit", f.Filename)
		}
	}
	return nil
}

// buildMessage assigns the server-side identity and timestamp. The timestamp
// is taken once and shared with every attachment so history ordering has a
// single key.
func (p *Pipeline) buildMessage(senderID uuid.UUID, in *types.Inbound) *models.Message {
	now := time.Now().UTC()

	msg := &models.Message{
		ID:          uuid.New(),
		ChatID:      in.ChatID,
		SenderID:    senderID,
		Content:     in.Content,
		Timestamp:   now,
		Attachments: make([]models.Attachment, 0, len(in.Files)),
	}
	for _, f := range in.Files {
		msg.Attachments = append(msg.Attachments, models.Attachment{
			ID:        uuid.New(),
			Kind:      f.Kind,
			URL:       f.URL,
			Filename:  f.Filename,
			MimeType:  f.MimeType,
			SizeBytes: f.SizeBytes,
			CreatedAt: now,
		})
	}
	return msg
}

// fanOut serializes the persisted message once and try-publishes it to every
// participant, sender included so their other sessions see it too. All
// failures here are swallowed: the store is the source of truth, live push
// is a convenience.
func (p *Pipeline) fanOut(ctx context.Context, msg *models.Message) {
	participants, err := p.chats.Participants(ctx, msg.ChatID)
	if err != nil {
		log.Printf("[PIPELINE] Fan-out skipped for message %s: participant load failed: %v", msg.ID, err)
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[PIPELINE] Fan-out skipped for message %s: marshal failed: %v", msg.ID, err)
		return
	}

	for _, participant := range participants {
		p.registry.TryPublish(participant.Username, payload)
	}
}

package interfaces

import (
	"context"

	"github.com/fpylas/mailsync/internal/models"
)

// MessageRepository is the append-only normalized message store.
type MessageRepository interface {
	// Create persists a normalized message. Persisting the same
	// (mailbox, message id) twice is a no-op so overlapping syncs stay
	// idempotent.
	Create(ctx context.Context, message *models.Message) error

	// GetByMessageID looks a message up by its provider-issued id within
	// one mailbox. Returns nil without error when absent.
	GetByMessageID(ctx context.Context, mailbox, messageID string) (*models.Message, error)

	// GetByID looks a message up by its record id.
	// Returns nil without error when absent.
	GetByID(ctx context.Context, id string) (*models.Message, error)

	// List returns stored messages, newest first. An empty mailbox
	// returns every message.
	List(ctx context.Context, mailbox string) ([]*models.Message, error)
}

// AttachmentRepository tracks the attachment manifests of stored messages.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.MessageAttachment) error
	GetByID(ctx context.Context, id string) (*models.MessageAttachment, error)
	ListByMessage(ctx context.Context, messageRecordID string) ([]*models.MessageAttachment, error)

	// MarkStored records where materialized bytes ended up.
	MarkStored(ctx context.Context, id, storageKey string, size int) error
}

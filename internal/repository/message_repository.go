package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fpylas/mailsync/interfaces"
	"github.com/fpylas/mailsync/internal/models"
	"github.com/fpylas/mailsync/internal/tracing"
)

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) interfaces.MessageRepository {
	return &messageRepository{db: db}
}

// Create persists a normalized message, ignoring duplicates by
// (mailbox, message_id) so re-processed deltas stay idempotent
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, message.Mailbox)
	span.SetTag("message_id", message.MessageID)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mailbox"}, {Name: "message_id"}},
			DoNothing: true,
		}).
		Create(message)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to save message: %w", result.Error)
	}

	return nil
}

// GetByMessageID looks a message up by its provider-issued id within one mailbox
func (r *messageRepository) GetByMessageID(ctx context.Context, mailbox, messageID string) (*models.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageRepository.GetByMessageID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, mailbox)
	span.SetTag("message_id", messageID)

	var message models.Message
	result := r.db.WithContext(ctx).
		Where("mailbox = ? AND message_id = ?", mailbox, messageID).
		First(&message)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get message: %w", result.Error)
	}

	return &message, nil
}

// GetByID looks a message up by its record id
func (r *messageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("record_id", id)

	var message models.Message
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&message)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get message: %w", result.Error)
	}

	return &message, nil
}

// List returns stored messages, newest first
func (r *messageRepository) List(ctx context.Context, mailbox string) ([]*models.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageRepository.List")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	query := r.db.WithContext(ctx)
	if mailbox != "" {
		query = query.Where("mailbox = ?", mailbox)
	}

	var messages []*models.Message
	err := query.
		Order("created_at DESC").
		Find(&messages).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

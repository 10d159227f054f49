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
	"github.com/fpylas/mailsync/internal/utils"
)

type attachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) interfaces.AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *models.MessageAttachment) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("message_record_id", attachment.MessageID)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "provider_attachment_id"}},
			DoNothing: true,
		}).
		Create(attachment)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to save attachment: %w", result.Error)
	}

	return nil
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*models.MessageAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var attachment models.MessageAttachment
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&attachment)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get attachment: %w", result.Error)
	}

	return &attachment, nil
}

// ListByMessage returns a message's attachment manifest in traversal order
func (r *attachmentRepository) ListByMessage(ctx context.Context, messageRecordID string) ([]*models.MessageAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.ListByMessage")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var attachments []*models.MessageAttachment
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageRecordID).
		Order("position ASC").
		Find(&attachments).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}

	return attachments, nil
}

// MarkStored records the storage key and size after materialization
func (r *attachmentRepository) MarkStored(ctx context.Context, id, storageKey string, size int) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.MarkStored")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Model(&models.MessageAttachment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"storage_key": storageKey,
			"size":        size,
			"updated_at":  utils.Now(),
		})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to mark attachment stored: %w", result.Error)
	}

	return nil
}

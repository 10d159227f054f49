package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fpylas/mailsync/interfaces"
	"github.com/fpylas/mailsync/internal/models"
	"github.com/fpylas/mailsync/internal/tracing"
	"github.com/fpylas/mailsync/internal/utils"
)

type credentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) interfaces.CredentialRepository {
	return &credentialRepository{db: db}
}

// GetByMailbox retrieves the credential record for a mailbox
func (r *credentialRepository) GetByMailbox(ctx context.Context, mailbox string) (*models.MailboxCredential, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialRepository.GetByMailbox")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, mailbox)

	var credential models.MailboxCredential
	result := r.db.WithContext(ctx).
		Where("mailbox = ?", mailbox).
		First(&credential)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get credential: %w", result.Error)
	}

	return &credential, nil
}

// Save fully overwrites the credential record for the mailbox
func (r *credentialRepository) Save(ctx context.Context, credential *models.MailboxCredential) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, credential.Mailbox)

	credential.UpdatedAt = utils.Now()

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mailbox"}},
			UpdateAll: true,
		}).
		Create(credential)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to save credential: %w", result.Error)
	}

	return nil
}

// AdvanceWatermark updates only the stored watermark for the mailbox
func (r *credentialRepository) AdvanceWatermark(ctx context.Context, mailbox, historyID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialRepository.AdvanceWatermark")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, mailbox)
	span.SetTag("history_id", historyID)

	result := r.db.WithContext(ctx).
		Model(&models.MailboxCredential{}).
		Where("mailbox = ?", mailbox).
		Updates(map[string]interface{}{
			"history_id": historyID,
			"updated_at": utils.Now(),
		})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to advance watermark: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		err := fmt.Errorf("no credential for mailbox %s", mailbox)
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

// UpdateWatchExpiration updates only the push subscription expiry
func (r *credentialRepository) UpdateWatchExpiration(ctx context.Context, mailbox string, expiration time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialRepository.UpdateWatchExpiration")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, mailbox)

	result := r.db.WithContext(ctx).
		Model(&models.MailboxCredential{}).
		Where("mailbox = ?", mailbox).
		Updates(map[string]interface{}{
			"watch_expiration": expiration,
			"updated_at":       utils.Now(),
		})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to update watch expiration: %w", result.Error)
	}

	return nil
}

// ListAll returns every stored credential record
func (r *credentialRepository) ListAll(ctx context.Context) ([]*models.MailboxCredential, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialRepository.ListAll")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var credentials []*models.MailboxCredential
	if err := r.db.WithContext(ctx).Find(&credentials).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	return credentials, nil
}

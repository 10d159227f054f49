package attachments

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/fpylas/mailsync/interfaces"
	"github.com/fpylas/mailsync/internal/logger"
	"github.com/fpylas/mailsync/internal/models"
	"github.com/fpylas/mailsync/internal/tracing"
	"github.com/fpylas/mailsync/internal/utils"
)

// Materializer fetches attachment bytes from the provider on first read
// and persists them to the storage backend. Bytes are never fetched at
// ingestion time; concurrent first reads simply fetch and overwrite the
// same key, which is idempotent because the source bytes are immutable.
type Materializer struct {
	provider    interfaces.GmailProvider
	storage     interfaces.StorageService
	attachments interfaces.AttachmentRepository
	log         logger.Logger
}

func NewMaterializer(
	provider interfaces.GmailProvider,
	storage interfaces.StorageService,
	attachments interfaces.AttachmentRepository,
	log logger.Logger,
) *Materializer {
	return &Materializer{
		provider:    provider,
		storage:     storage,
		attachments: attachments,
		log:         log,
	}
}

// Fetch retrieves the raw attachment bytes from the provider, decoding
// its URL-safe base64 transport encoding.
func (m *Materializer) Fetch(ctx context.Context, token *oauth2.Token, messageID, providerAttachmentID string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Materializer.Fetch")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("message_id", messageID)

	encoded, err := m.provider.AttachmentData(ctx, token, messageID, providerAttachmentID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	data, err := utils.DecodeWebSafeBase64(encoded)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to decode attachment payload")
	}

	return data, nil
}

// Materialize writes attachment bytes to storage under a key derived
// from the message id and sanitized filename, creating any missing
// directories, and records the key on the attachment.
func (m *Materializer) Materialize(ctx context.Context, attachment *models.MessageAttachment, messageID string, data []byte) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Materializer.Materialize")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("attachment_id", attachment.ID)

	key := StorageKey(messageID, attachment.Filename)

	if err := m.storage.Upload(ctx, key, data, attachment.ContentType); err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "failed to store attachment")
	}

	if err := m.attachments.MarkStored(ctx, attachment.ID, key, len(data)); err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return key, nil
}

// Bytes returns the attachment's content, materializing it on first
// access and reading from storage afterwards.
func (m *Materializer) Bytes(ctx context.Context, token *oauth2.Token, message *models.Message, attachment *models.MessageAttachment) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Materializer.Bytes")
	defer span.Finish()
	tracing.TagComponentService(span)

	if attachment.StorageKey != "" {
		data, err := m.storage.Download(ctx, attachment.StorageKey)
		if err == nil {
			return data, nil
		}
		m.log.Warnf("stored attachment %s unreadable, re-fetching: %v", attachment.ID, err)
	}

	data, err := m.Fetch(ctx, token, message.MessageID, attachment.ProviderAttachmentID)
	if err != nil {
		return nil, err
	}

	if _, err := m.Materialize(ctx, attachment, message.MessageID, data); err != nil {
		return nil, err
	}

	return data, nil
}

// StorageKey is the filename-addressed location of an attachment.
func StorageKey(messageID, filename string) string {
	return fmt.Sprintf("%s/%s", messageID, utils.SanitizeFilename(filename))
}

package sync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/fpylas/mailsync/interfaces"
	er "github.com/fpylas/mailsync/internal/errors"
	"github.com/fpylas/mailsync/internal/logger"
	"github.com/fpylas/mailsync/internal/models"
	"github.com/fpylas/mailsync/internal/repository"
	"github.com/fpylas/mailsync/internal/tracing"
	"github.com/fpylas/mailsync/internal/utils"
	"github.com/fpylas/mailsync/services/mime"
)

// Labels that qualify a "message added" event for normalization. Drafts,
// trash and spam deltas never reach the store.
var qualifyingLabels = map[string]struct{}{
	"INBOX": {},
	"SENT":  {},
}

// Service is the history sync engine. One Sync call processes the delta
// between the stored watermark and the provider's head, then commits
// the webhook-declared watermark. Syncs for the same mailbox are
// serialized; different mailboxes run independently.
type Service struct {
	provider     interfaces.GmailProvider
	repositories *repository.Repositories
	log          logger.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewSyncService(provider interfaces.GmailProvider, repositories *repository.Repositories, log logger.Logger) *Service {
	return &Service{
		provider:     provider,
		repositories: repositories,
		log:          log,
		locks:        make(map[string]*sync.Mutex),
	}
}

// mailboxLock returns the mutex guarding read-watermark/process/
// write-watermark for one mailbox, creating it on first use.
func (s *Service) mailboxLock(mailbox string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[mailbox]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[mailbox] = lock
	}
	return lock
}

// Sync fetches the history delta starting at the mailbox's stored
// watermark and normalizes every qualifying added message. The stored
// watermark advances to declaredHistoryID exactly once, only after the
// whole delta was processed; any earlier failure leaves it untouched so
// the next delivery reprocesses the same range.
func (s *Service) Sync(ctx context.Context, mailbox, declaredHistoryID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.Sync")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagMailbox(span, mailbox)
	span.SetTag("declared_history_id", declaredHistoryID)

	runID := uuid.New().String()
	span.SetTag("sync_run_id", runID)

	lock := s.mailboxLock(mailbox)
	lock.Lock()
	defer lock.Unlock()

	credential, err := s.repositories.CredentialRepository.GetByMailbox(ctx, mailbox)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if credential == nil {
		tracing.TraceErr(span, er.ErrMailboxNotAuthenticated)
		return errors.Wrapf(er.ErrMailboxNotAuthenticated, "mailbox %s", mailbox)
	}

	token := credential.OAuthToken()

	// The delta starts at the stored watermark; the declared watermark
	// is only the value committed afterwards.
	records, err := s.provider.HistoryDelta(ctx, token, credential.HistoryID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if len(records) == 0 {
		tracing.TraceErr(span, er.ErrNoHistory)
		return errors.Wrapf(er.ErrNoHistory, "mailbox %s at watermark %s", mailbox, credential.HistoryID)
	}

	stored := 0
	skipped := 0
	for _, record := range records {
		if record == nil {
			continue
		}
		for _, added := range record.MessagesAdded {
			if added == nil || added.Message == nil {
				continue
			}
			if !hasQualifyingLabel(added.Message.LabelIds) {
				continue
			}

			err := s.processMessage(ctx, token, mailbox, added.Message.Id)
			switch {
			case err == nil:
				stored++
			case errors.Is(err, er.ErrMalformedMessage):
				// Skip-and-log keeps the rest of the batch moving.
				skipped++
				s.log.Warnf("[%s] skipping malformed message %s: %v", mailbox, added.Message.Id, err)
			default:
				tracing.TraceErr(span, err)
				return err
			}
		}
	}

	if err := s.repositories.CredentialRepository.AdvanceWatermark(ctx, mailbox, declaredHistoryID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	span.SetTag("messages_stored", stored)
	span.SetTag("messages_skipped", skipped)
	s.log.Infof("[%s] sync %s complete: %d stored, %d skipped, watermark %s",
		mailbox, runID, stored, skipped, declaredHistoryID)

	return nil
}

// processMessage fetches one added message, extracts its envelope,
// decomposes the MIME tree and persists the normalized record together
// with its attachment manifest. Attachment content is not fetched here.
func (s *Service) processMessage(ctx context.Context, token *oauth2.Token, mailbox, providerMessageID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.processMessage")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagMailbox(span, mailbox)
	span.SetTag("provider_message_id", providerMessageID)

	full, err := s.provider.FullMessage(ctx, token, providerMessageID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if full == nil || full.Payload == nil {
		return errors.Wrapf(er.ErrMalformedMessage, "message %s has no payload", providerMessageID)
	}

	from, ok := headerValue(full.Payload.Headers, "From")
	if !ok {
		return errors.Wrapf(er.ErrMalformedMessage, "message %s missing From header", providerMessageID)
	}
	to, ok := headerValue(full.Payload.Headers, "To")
	if !ok {
		return errors.Wrapf(er.ErrMalformedMessage, "message %s missing To header", providerMessageID)
	}
	subject, ok := headerValue(full.Payload.Headers, "Subject")
	if !ok {
		return errors.Wrapf(er.ErrMalformedMessage, "message %s missing Subject header", providerMessageID)
	}

	decomposed := mime.Decompose(full.Payload)

	rawHeaders := models.JSONMap{}
	for _, header := range full.Payload.Headers {
		if header != nil {
			rawHeaders[header.Name] = header.Value
		}
	}

	message := &models.Message{
		Mailbox:       mailbox,
		MessageID:     providerMessageID,
		ThreadID:      full.ThreadId,
		FromAddress:   utils.ExtractAddress(from),
		ToAddress:     utils.ExtractAddress(to),
		Subject:       subject,
		BodyText:      decomposed.PlainText,
		BodyHTML:      decomposed.HTMLContent,
		Labels:        full.LabelIds,
		HasAttachment: len(decomposed.Attachments) > 0,
		RawHeaders:    rawHeaders,
		ReceivedAt:    utils.Ptr(receivedAt(full.InternalDate)),
	}

	if err := s.repositories.MessageRepository.Create(ctx, message); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	// Create is a no-op on an already seen (mailbox, message id) pair;
	// the attachment manifest belongs to whichever record survived.
	persisted, err := s.repositories.MessageRepository.GetByMessageID(ctx, mailbox, providerMessageID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if persisted == nil {
		return errors.Errorf("message %s not found after create", providerMessageID)
	}

	for position, attachment := range decomposed.Attachments {
		record := &models.MessageAttachment{
			MessageID:            persisted.ID,
			Filename:             attachment.Filename,
			ContentType:          attachment.MimeType,
			ProviderAttachmentID: attachment.AttachmentID,
			ContentID:            attachment.ContentID,
			Position:             position,
		}
		if err := s.repositories.AttachmentRepository.Create(ctx, record); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	return nil
}

func hasQualifyingLabel(labels []string) bool {
	for _, label := range labels {
		if _, ok := qualifyingLabels[label]; ok {
			return true
		}
	}
	return false
}

// headerValue finds a header by exact name match.
func headerValue(headers []*gmail.MessagePartHeader, name string) (string, bool) {
	for _, header := range headers {
		if header != nil && header.Name == name {
			return header.Value, true
		}
	}
	return "", false
}

func receivedAt(internalDate int64) time.Time {
	if internalDate <= 0 {
		return utils.Now()
	}
	return time.UnixMilli(internalDate).UTC()
}

package interfaces

import (
	"context"
	"time"

	"github.com/fpylas/mailsync/internal/models"
)

// CredentialRepository owns the mailbox-keyed credential/watermark table.
// Field-level update contract: Save overwrites the whole record,
// AdvanceWatermark touches only history_id, UpdateWatchExpiration only
// watch_expiration. All operations are atomic per mailbox.
type CredentialRepository interface {
	// GetByMailbox returns nil without error when the mailbox is unknown.
	GetByMailbox(ctx context.Context, mailbox string) (*models.MailboxCredential, error)

	// Save fully overwrites the credential record for the mailbox.
	Save(ctx context.Context, credential *models.MailboxCredential) error

	// AdvanceWatermark commits the declared watermark after a successful sync.
	AdvanceWatermark(ctx context.Context, mailbox, historyID string) error

	// UpdateWatchExpiration records a renewed push subscription expiry.
	UpdateWatchExpiration(ctx context.Context, mailbox string, expiration time.Time) error

	ListAll(ctx context.Context) ([]*models.MailboxCredential, error)
}

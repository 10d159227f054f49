package interfaces

import "context"

// SyncService runs one incremental sync for a mailbox. declaredHistoryID
// is the watermark announced by the push notification; it is committed
// as the new stored watermark only after the whole delta was processed.
type SyncService interface {
	Sync(ctx context.Context, mailbox, declaredHistoryID string) error
}

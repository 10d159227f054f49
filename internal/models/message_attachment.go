package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/fpylas/mailsync/internal/utils"
)

// MessageAttachment is one entry of a message's attachment manifest.
// Bytes are materialized lazily on first read; StorageKey stays empty
// until then.
type MessageAttachment struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey"`
	MessageID string `gorm:"column:message_id;type:varchar(50);uniqueIndex:idx_message_provider_attachment;not null"`

	Filename    string `gorm:"column:filename;type:varchar(500)"`
	ContentType string `gorm:"column:content_type;type:varchar(255)"`

	// ProviderAttachmentID is the provider-side handle used to fetch bytes.
	// Unique per message so re-processed deltas cannot grow the manifest.
	ProviderAttachmentID string `gorm:"column:provider_attachment_id;type:varchar(1000);uniqueIndex:idx_message_provider_attachment;not null"`

	// ContentID is set for inline attachments, angle brackets stripped.
	ContentID string `gorm:"column:content_id;type:varchar(255)"`

	// Position preserves traversal order within the manifest.
	Position int `gorm:"column:position;default:0"`

	StorageKey string `gorm:"column:storage_key;type:varchar(1000)"`
	Size       int    `gorm:"column:size;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (MessageAttachment) TableName() string {
	return "message_attachments"
}

func (a *MessageAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("att", 12)
	}
	a.CreatedAt = utils.Now()
	return nil
}

// IsInline reports whether the attachment is referenced from the HTML
// body through a content-id.
func (a *MessageAttachment) IsInline() bool {
	return a.ContentID != ""
}

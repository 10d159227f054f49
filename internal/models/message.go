package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/fpylas/mailsync/internal/utils"
)

// Message is a normalized mail message produced by the sync pipeline.
// Immutable once stored; identity is (mailbox, message_id) with the
// provider-issued message id.
type Message struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey"`
	Mailbox   string `gorm:"column:mailbox;type:varchar(255);uniqueIndex:idx_mailbox_message;not null"`
	MessageID string `gorm:"column:message_id;type:varchar(255);uniqueIndex:idx_mailbox_message;not null"`
	ThreadID  string `gorm:"column:thread_id;type:varchar(255);index"`

	FromAddress string `gorm:"column:from_address;type:varchar(255);index"`
	ToAddress   string `gorm:"column:to_address;type:varchar(255);index"`
	Subject     string `gorm:"column:subject;type:varchar(1000)"`

	// Bodies are stored base64-encoded; at most one of each per message.
	BodyText string `gorm:"column:body_text;type:text"`
	BodyHTML string `gorm:"column:body_html;type:text"`

	Labels        pq.StringArray `gorm:"column:labels;type:text[]"`
	HasAttachment bool           `gorm:"column:has_attachment;default:false"`

	RawHeaders JSONMap `gorm:"column:raw_headers;type:jsonb"`

	ReceivedAt *time.Time `gorm:"column:received_at;type:timestamp;index"`
	CreatedAt  time.Time  `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("msg", 16)
	}
	m.CreatedAt = utils.Now()
	return nil
}

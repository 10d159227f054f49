package models

import (
	"time"

	"golang.org/x/oauth2"
)

// MailboxCredential is the durable per-mailbox OAuth credential plus the
// sync watermark. The mailbox address is the unique key; every save fully
// overwrites the previous record, watermark and watch expiration are
// updated through dedicated merge operations.
type MailboxCredential struct {
	Mailbox      string    `gorm:"column:mailbox;type:varchar(255);primaryKey"`
	AccessToken  string    `gorm:"column:access_token;type:text;not null"`
	RefreshToken string    `gorm:"column:refresh_token;type:text"`
	TokenExpiry  time.Time `gorm:"column:token_expiry;type:timestamp"`

	// HistoryID is the last committed watermark. Monotonically
	// non-decreasing per mailbox; advanced exactly once per successful sync.
	HistoryID string `gorm:"column:history_id;type:varchar(50);not null"`

	// WatchExpiration is when the provider-side push subscription lapses.
	WatchExpiration *time.Time `gorm:"column:watch_expiration;type:timestamp"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (MailboxCredential) TableName() string {
	return "mailbox_credentials"
}

// OAuthToken builds the oauth2 token view used for provider calls.
// The token source layered on top handles refresh transparently.
func (c *MailboxCredential) OAuthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.TokenExpiry,
	}
}

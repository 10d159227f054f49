package interfaces

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
)

// WatchResult is the outcome of registering a push subscription for a
// mailbox: the watermark the provider issued and when the subscription
// lapses.
type WatchResult struct {
	HistoryID  string
	Expiration time.Time
}

// GmailProvider is the capability surface consumed by the sync pipeline.
// Implementations talk to the Gmail REST API; tests substitute fakes.
type GmailProvider interface {
	// AuthCodeURL returns the consent URL the authorization flow redirects to.
	AuthCodeURL(state string) string

	// ExchangeAuthCode trades an authorization code for tokens.
	ExchangeAuthCode(ctx context.Context, code string) (*oauth2.Token, error)

	// Profile resolves the mailbox address behind a token.
	Profile(ctx context.Context, token *oauth2.Token) (string, error)

	// Watch registers (or renews) the push subscription for the mailbox.
	Watch(ctx context.Context, token *oauth2.Token, labels []string) (*WatchResult, error)

	// HistoryDelta lists the ordered history records after startHistoryID.
	// A stale or expired watermark yields errors.ErrNoHistory.
	HistoryDelta(ctx context.Context, token *oauth2.Token, startHistoryID string) ([]*gmail.History, error)

	// FullMessage fetches headers and the complete payload part tree.
	FullMessage(ctx context.Context, token *oauth2.Token, messageID string) (*gmail.Message, error)

	// AttachmentData fetches an attachment's transport-encoded payload.
	AttachmentData(ctx context.Context, token *oauth2.Token, messageID, attachmentID string) (string, error)
}

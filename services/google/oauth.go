package google

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// WatchLabels restricts push notifications to the labels the sync
// pipeline stores.
var WatchLabels = []string{"INBOX", "SENT"}

type OAuthConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID,required"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET,required"`
	RedirectURL  string `env:"GOOGLE_CLIENT_REDIRECT_URI,required"`
	PubSubTopic  string `env:"GOOGLE_PUBSUB_TOPIC,required"`
}

// oauthConfig builds the oauth2 configuration for the Gmail scopes the
// sync pipeline needs. Offline access so a refresh token is issued.
func oauthConfig(cfg *OAuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			gmail.GmailReadonlyScope,
			gmail.GmailModifyScope,
		},
	}
}

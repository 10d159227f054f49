package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fpylas/mailsync/interfaces"
	"github.com/fpylas/mailsync/internal/logger"
	"github.com/fpylas/mailsync/internal/models"
	"github.com/fpylas/mailsync/internal/tracing"
	"github.com/fpylas/mailsync/internal/utils"
	"github.com/fpylas/mailsync/services/google"
)

// Connect redirects the browser to the provider's consent screen.
func Connect(provider interfaces.GmailProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := c.Query("state")
		c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
	}
}

// AuthCallback completes the authorization flow: exchanges the code,
// resolves the mailbox address, registers the push subscription and
// persists the credential with the watch-issued watermark. Re-running
// the flow for a known mailbox overwrites its whole credential record.
func AuthCallback(provider interfaces.GmailProvider, credentials interfaces.CredentialRepository, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "AuthCallback", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		code := c.Query("code")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
			return
		}

		token, err := provider.ExchangeAuthCode(ctx, code)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "authorization code exchange failed"})
			return
		}

		mailbox, err := provider.Profile(ctx, token)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to resolve mailbox profile"})
			return
		}
		tracing.TagMailbox(span, mailbox)

		watch, err := provider.Watch(ctx, token, google.WatchLabels)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to register push subscription"})
			return
		}

		credential := &models.MailboxCredential{
			Mailbox:         mailbox,
			AccessToken:     token.AccessToken,
			RefreshToken:    token.RefreshToken,
			TokenExpiry:     token.Expiry,
			HistoryID:       watch.HistoryID,
			WatchExpiration: utils.Ptr(watch.Expiration),
		}
		if err := credentials.Save(ctx, credential); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist credential"})
			return
		}

		log.Infof("mailbox %s connected, watching until %s", mailbox, watch.Expiration)

		c.JSON(http.StatusOK, gin.H{
			"status":           "connected",
			"mailbox":          mailbox,
			"history_id":       watch.HistoryID,
			"watch_expiration": watch.Expiration,
		})
	}
}

package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/fpylas/mailsync/interfaces"
	er "github.com/fpylas/mailsync/internal/errors"
	"github.com/fpylas/mailsync/internal/logger"
	"github.com/fpylas/mailsync/internal/tracing"
)

// PushEnvelope is the Pub/Sub push delivery wrapper.
type PushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// pushPayload is the decoded notification body. The provider sends
// historyId as a number or a string depending on the path; json.Number
// absorbs both.
type pushPayload struct {
	EmailAddress string      `json:"emailAddress"`
	HistoryID    json.Number `json:"historyId"`
}

// Webhook receives Pub/Sub push notifications and triggers a sync.
// The response is 200 no matter what happens internally; a non-2xx
// would make the broker redeliver forever on a permanently broken
// notification, while missed deltas are covered by the next delivery.
func Webhook(syncService interfaces.SyncService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "Webhook", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		ack := func() { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }

		var envelope PushEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			tracing.TraceErr(span, err)
			log.Warnf("webhook: unreadable envelope: %v", err)
			ack()
			return
		}

		if envelope.Message.Data == "" || envelope.Message.MessageID == "" {
			log.Warn("webhook: envelope missing message data or messageId")
			ack()
			return
		}

		raw, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
		if err != nil {
			tracing.TraceErr(span, err)
			log.Warnf("webhook: undecodable notification data: %v", err)
			ack()
			return
		}

		var payload pushPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			tracing.TraceErr(span, err)
			log.Warnf("webhook: malformed notification payload: %v", err)
			ack()
			return
		}

		if payload.EmailAddress == "" || payload.HistoryID.String() == "" {
			log.Warnf("webhook: notification missing emailAddress or historyId")
			ack()
			return
		}

		tracing.TagMailbox(span, payload.EmailAddress)
		span.SetTag("history_id", payload.HistoryID.String())
		tracing.LogObjectAsJson(span, "notification", payload)

		err = syncService.Sync(ctx, payload.EmailAddress, payload.HistoryID.String())
		switch {
		case err == nil:
		case errors.Is(err, er.ErrNoHistory):
			log.Infof("webhook: no new history for %s", payload.EmailAddress)
		case errors.Is(err, er.ErrMailboxNotAuthenticated):
			log.Warnf("webhook: notification for unknown mailbox %s", payload.EmailAddress)
		default:
			tracing.TraceErr(span, err)
			log.Errorf("webhook: sync failed for %s: %v", payload.EmailAddress, err)
		}

		ack()
	}
}

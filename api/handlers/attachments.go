package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fpylas/mailsync/interfaces"
	er "github.com/fpylas/mailsync/internal/errors"
	"github.com/fpylas/mailsync/internal/tracing"
	"github.com/fpylas/mailsync/services/attachments"
)

// DownloadAttachment serves attachment bytes, materializing them from
// the provider on first access. disposition=inline renders in place;
// anything else downloads with the original filename.
func DownloadAttachment(
	messages interfaces.MessageRepository,
	attachmentRepo interfaces.AttachmentRepository,
	credentials interfaces.CredentialRepository,
	materializer *attachments.Materializer,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "DownloadAttachment", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		message, err := messages.GetByID(ctx, c.Param("id"))
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
			return
		}
		if message == nil {
			tracing.TraceErr(span, er.ErrMessageNotFound)
			c.JSON(http.StatusNotFound, gin.H{"error": er.ErrMessageNotFound.Error()})
			return
		}
		tracing.TagMailbox(span, message.Mailbox)

		attachment, err := attachmentRepo.GetByID(ctx, c.Param("attachmentId"))
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load attachment"})
			return
		}
		if attachment == nil || attachment.MessageID != message.ID {
			tracing.TraceErr(span, er.ErrAttachmentNotFound)
			c.JSON(http.StatusNotFound, gin.H{"error": er.ErrAttachmentNotFound.Error()})
			return
		}

		credential, err := credentials.GetByMailbox(ctx, message.Mailbox)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load credential"})
			return
		}
		if credential == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "mailbox is no longer connected"})
			return
		}

		data, err := materializer.Bytes(ctx, credential.OAuthToken(), message, attachment)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch attachment content"})
			return
		}

		contentType := attachment.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		disposition := "attachment"
		if c.Query("disposition") == "inline" {
			disposition = "inline"
		}
		c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, attachment.Filename))
		c.Data(http.StatusOK, contentType, data)
	}
}

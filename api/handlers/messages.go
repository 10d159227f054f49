package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fpylas/mailsync/interfaces"
	er "github.com/fpylas/mailsync/internal/errors"
	"github.com/fpylas/mailsync/internal/models"
	"github.com/fpylas/mailsync/internal/tracing"
	"github.com/fpylas/mailsync/internal/utils"
	"github.com/fpylas/mailsync/services/attachments"
)

const previewLength = 160

// MessageSummary is the list-view projection of a stored message.
type MessageSummary struct {
	ID            string     `json:"id"`
	Mailbox       string     `json:"mailbox"`
	MessageID     string     `json:"message_id"`
	From          string     `json:"from"`
	To            string     `json:"to"`
	Subject       string     `json:"subject"`
	Preview       string     `json:"preview"`
	Labels        []string   `json:"labels"`
	HasAttachment bool       `json:"has_attachment"`
	ReceivedAt    *time.Time `json:"received_at,omitempty"`
}

// MessageDetail is the single-message view: decoded bodies, inline
// references rewritten to serving URLs, and the attachment manifest.
type MessageDetail struct {
	MessageSummary
	BodyText    string              `json:"body_text"`
	BodyHTML    string              `json:"body_html"`
	Attachments []AttachmentSummary `json:"attachments"`
}

type AttachmentSummary struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Inline      bool   `json:"inline"`
	Size        int    `json:"size,omitempty"`
	URL         string `json:"url"`
}

// ListMessages returns stored messages, optionally filtered by mailbox.
func ListMessages(messages interfaces.MessageRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ListMessages", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		mailbox := c.Query("mailbox")
		if mailbox != "" {
			tracing.TagMailbox(span, mailbox)
		}

		stored, err := messages.List(ctx, mailbox)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
			return
		}

		summaries := make([]MessageSummary, 0, len(stored))
		for _, message := range stored {
			summaries = append(summaries, summarize(message))
		}

		c.JSON(http.StatusOK, gin.H{"messages": summaries, "count": len(summaries)})
	}
}

// GetMessage returns one message with decoded bodies and its manifest.
func GetMessage(messages interfaces.MessageRepository, attachmentRepo interfaces.AttachmentRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "GetMessage", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		id := c.Param("id")
		message, err := messages.GetByID(ctx, id)
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

		manifest, err := attachmentRepo.ListByMessage(ctx, message.ID)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load attachments"})
			return
		}

		bodyText := decodeBody(message.BodyText)
		bodyHTML := decodeBody(message.BodyHTML)
		if bodyHTML != "" {
			bodyHTML = attachments.RewriteInlineReferences(bodyHTML, message.ID, manifest)
		}

		detail := MessageDetail{
			MessageSummary: summarize(message),
			BodyText:       bodyText,
			BodyHTML:       bodyHTML,
			Attachments:    make([]AttachmentSummary, 0, len(manifest)),
		}
		for _, attachment := range manifest {
			detail.Attachments = append(detail.Attachments, AttachmentSummary{
				ID:          attachment.ID,
				Filename:    attachment.Filename,
				ContentType: attachment.ContentType,
				Inline:      attachment.IsInline(),
				Size:        attachment.Size,
				URL:         attachments.InlineURL(message.ID, attachment.ID),
			})
		}

		c.JSON(http.StatusOK, detail)
	}
}

func summarize(message *models.Message) MessageSummary {
	return MessageSummary{
		ID:            message.ID,
		Mailbox:       message.Mailbox,
		MessageID:     message.MessageID,
		From:          message.FromAddress,
		To:            message.ToAddress,
		Subject:       message.Subject,
		Preview:       preview(message),
		Labels:        message.Labels,
		HasAttachment: message.HasAttachment,
		ReceivedAt:    message.ReceivedAt,
	}
}

// preview builds a short text excerpt, falling back to stripped HTML
// when the message carried no plain part.
func preview(message *models.Message) string {
	if text := decodeBody(message.BodyText); text != "" {
		return utils.TruncateText(text, previewLength)
	}
	if html := decodeBody(message.BodyHTML); html != "" {
		return utils.TruncateText(utils.HTMLToText(html), previewLength)
	}
	return ""
}

func decodeBody(encoded string) string {
	if encoded == "" {
		return ""
	}
	decoded, err := utils.DecodeBase64(encoded)
	if err != nil {
		return ""
	}
	return string(decoded)
}

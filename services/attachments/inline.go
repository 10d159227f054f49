package attachments

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fpylas/mailsync/internal/models"
)

// InlineURL is the serving path for an inline attachment reference.
func InlineURL(messageID, attachmentID string) string {
	return fmt.Sprintf("/v1/messages/%s/attachments/%s?disposition=inline", messageID, attachmentID)
}

// RewriteInlineReferences replaces every cid: reference in an HTML body
// with the serving URL of the matching attachment. Rewriting happens at
// render time only; stored HTML keeps the original cid: scheme.
func RewriteInlineReferences(html, messageID string, manifest []*models.MessageAttachment) string {
	inline := make([]*models.MessageAttachment, 0, len(manifest))
	for _, attachment := range manifest {
		if attachment.ContentID != "" {
			inline = append(inline, attachment)
		}
	}

	// Longest content-ids first, so one that prefixes another ("img1"
	// vs "img10") cannot clip the longer reference.
	sort.SliceStable(inline, func(i, j int) bool {
		return len(inline[i].ContentID) > len(inline[j].ContentID)
	})

	for _, attachment := range inline {
		html = strings.ReplaceAll(
			html,
			"cid:"+attachment.ContentID,
			InlineURL(messageID, attachment.ID),
		)
	}
	return html
}

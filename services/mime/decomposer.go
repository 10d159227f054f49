package mime

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/fpylas/mailsync/internal/utils"
)

// Attachment is one entry of the manifest produced by Decompose, in
// payload traversal order.
type Attachment struct {
	Filename     string
	MimeType     string
	AttachmentID string
	ContentID    string
}

// Result is the normalized view of a message payload. Bodies are
// base64-encoded; empty string means the payload carried no such part.
type Result struct {
	PlainText   string
	HTMLContent string
	Attachments []Attachment
}

// Decompose reduces a payload part tree to at most one plain-text body,
// at most one HTML body and an ordered attachment manifest. The first
// text/plain and text/html leaves win; later duplicates are ignored.
// Malformed or unclassifiable parts are skipped, never errored, so the
// result is deterministic for a fixed input tree.
func Decompose(payload *gmail.MessagePart) Result {
	var result Result
	walk(payload, &result)
	return result
}

func walk(part *gmail.MessagePart, result *Result) {
	if part == nil {
		return
	}

	// Containers contribute nothing themselves.
	if len(part.Parts) > 0 {
		for _, child := range part.Parts {
			walk(child, result)
		}
		return
	}

	switch {
	case part.MimeType == "text/plain" && hasBodyData(part):
		if result.PlainText == "" {
			result.PlainText = reencodeBody(part.Body.Data)
		}

	case part.MimeType == "text/html" && hasBodyData(part):
		if result.HTMLContent == "" {
			result.HTMLContent = reencodeBody(part.Body.Data)
		}

	case part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" && !hasBodyData(part):
		result.Attachments = append(result.Attachments, Attachment{
			Filename:     part.Filename,
			MimeType:     part.MimeType,
			AttachmentID: part.Body.AttachmentId,
			ContentID:    contentID(part.Headers),
		})
	}
}

func hasBodyData(part *gmail.MessagePart) bool {
	return part.Body != nil && part.Body.Data != ""
}

// reencodeBody converts the provider's URL-safe body encoding to the
// standard encoding stored records use. Undecodable data is dropped.
func reencodeBody(data string) string {
	raw, err := utils.DecodeWebSafeBase64(data)
	if err != nil {
		return ""
	}
	return utils.EncodeBase64(raw)
}

// contentID extracts the Content-Id header value, matched
// case-insensitively, with the surrounding angle brackets stripped.
func contentID(headers []*gmail.MessagePartHeader) string {
	for _, header := range headers {
		if header == nil {
			continue
		}
		if strings.EqualFold(header.Name, "Content-Id") {
			return utils.StripContentID(header.Value)
		}
	}
	return ""
}

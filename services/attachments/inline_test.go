package attachments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fpylas/mailsync/internal/models"
)

func TestRewriteInlineReferences(t *testing.T) {
	html := `<p>Hi</p><img src="cid:logo@mail"><img src="cid:banner@mail">`
	manifest := []*models.MessageAttachment{
		{ID: "att_1", ContentID: "logo@mail"},
		{ID: "att_2", ContentID: "banner@mail"},
		{ID: "att_3"}, // regular attachment, no content id
	}

	rewritten := RewriteInlineReferences(html, "msg_1", manifest)

	assert.NotContains(t, rewritten, "cid:")
	assert.Contains(t, rewritten, `src="/v1/messages/msg_1/attachments/att_1?disposition=inline"`)
	assert.Contains(t, rewritten, `src="/v1/messages/msg_1/attachments/att_2?disposition=inline"`)
}

func TestRewriteInlineReferences_RepeatedReference(t *testing.T) {
	html := `<img src="cid:pix"><img src="cid:pix">`
	manifest := []*models.MessageAttachment{{ID: "att_9", ContentID: "pix"}}

	rewritten := RewriteInlineReferences(html, "msg_2", manifest)

	assert.NotContains(t, rewritten, "cid:")
	assert.Equal(t, 2, strings.Count(rewritten, InlineURL("msg_2", "att_9")))
}

func TestRewriteInlineReferences_PrefixedContentIDs(t *testing.T) {
	html := `<img src="cid:img1"><img src="cid:img10">`
	manifest := []*models.MessageAttachment{
		{ID: "att_1", ContentID: "img1"},
		{ID: "att_10", ContentID: "img10"},
	}

	rewritten := RewriteInlineReferences(html, "msg_4", manifest)

	assert.NotContains(t, rewritten, "cid:")
	assert.Contains(t, rewritten, `src="`+InlineURL("msg_4", "att_1")+`"`)
	assert.Contains(t, rewritten, `src="`+InlineURL("msg_4", "att_10")+`"`)
	assert.NotContains(t, rewritten, InlineURL("msg_4", "att_1")+`0`)
}

func TestRewriteInlineReferences_UnmatchedReferenceKept(t *testing.T) {
	html := `<img src="cid:unknown">`

	rewritten := RewriteInlineReferences(html, "msg_3", nil)

	assert.Equal(t, html, rewritten)
}

func TestInlineURL(t *testing.T) {
	assert.Equal(t,
		"/v1/messages/msg_7/attachments/att_4?disposition=inline",
		InlineURL("msg_7", "att_4"))
}

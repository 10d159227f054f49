package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpylas/mailsync/internal/models"
)

type fakeMessageRepo struct {
	messages []*models.Message
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *models.Message) error {
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeMessageRepo) GetByMessageID(ctx context.Context, mailbox, messageID string) (*models.Message, error) {
	for _, message := range r.messages {
		if message.Mailbox == mailbox && message.MessageID == messageID {
			return message, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	for _, message := range r.messages {
		if message.ID == id {
			return message, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) List(ctx context.Context, mailbox string) ([]*models.Message, error) {
	if mailbox == "" {
		return r.messages, nil
	}
	var out []*models.Message
	for _, message := range r.messages {
		if message.Mailbox == mailbox {
			out = append(out, message)
		}
	}
	return out, nil
}

type fakeManifestRepo struct {
	attachments []*models.MessageAttachment
}

func (r *fakeManifestRepo) Create(ctx context.Context, attachment *models.MessageAttachment) error {
	r.attachments = append(r.attachments, attachment)
	return nil
}

func (r *fakeManifestRepo) GetByID(ctx context.Context, id string) (*models.MessageAttachment, error) {
	for _, attachment := range r.attachments {
		if attachment.ID == id {
			return attachment, nil
		}
	}
	return nil, nil
}

func (r *fakeManifestRepo) ListByMessage(ctx context.Context, messageRecordID string) ([]*models.MessageAttachment, error) {
	var out []*models.MessageAttachment
	for _, attachment := range r.attachments {
		if attachment.MessageID == messageRecordID {
			out = append(out, attachment)
		}
	}
	return out, nil
}

func (r *fakeManifestRepo) MarkStored(ctx context.Context, id, storageKey string, size int) error {
	return nil
}

func std(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func messagesRouter(messages *fakeMessageRepo, manifest *fakeManifestRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/v1/messages", ListMessages(messages))
	router.GET("/v1/messages/:id", GetMessage(messages, manifest))
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestListMessages_PreviewFromPlainText(t *testing.T) {
	messages := &fakeMessageRepo{messages: []*models.Message{
		{
			ID:          "msg_1",
			Mailbox:     "user@example.com",
			MessageID:   "gm-1",
			FromAddress: "alice@example.com",
			Subject:     "hello",
			BodyText:    std("the plain body"),
		},
	}}
	router := messagesRouter(messages, &fakeManifestRepo{})

	recorder := get(router, "/v1/messages")

	require.Equal(t, http.StatusOK, recorder.Code)
	var response struct {
		Messages []MessageSummary `json:"messages"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, "the plain body", response.Messages[0].Preview)
}

func TestListMessages_PreviewFallsBackToHTML(t *testing.T) {
	messages := &fakeMessageRepo{messages: []*models.Message{
		{
			ID:       "msg_1",
			Mailbox:  "user@example.com",
			BodyHTML: std("<p>Only <b>html</b> here</p>"),
		},
	}}
	router := messagesRouter(messages, &fakeManifestRepo{})

	recorder := get(router, "/v1/messages")

	require.Equal(t, http.StatusOK, recorder.Code)
	var response struct {
		Messages []MessageSummary `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Len(t, response.Messages, 1)
	assert.Equal(t, "Only html here", response.Messages[0].Preview)
}

func TestListMessages_MailboxFilter(t *testing.T) {
	messages := &fakeMessageRepo{messages: []*models.Message{
		{ID: "msg_1", Mailbox: "a@example.com"},
		{ID: "msg_2", Mailbox: "b@example.com"},
	}}
	router := messagesRouter(messages, &fakeManifestRepo{})

	recorder := get(router, "/v1/messages?mailbox=a@example.com")

	require.Equal(t, http.StatusOK, recorder.Code)
	var response struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)
}

func TestGetMessage_NotFound(t *testing.T) {
	router := messagesRouter(&fakeMessageRepo{}, &fakeManifestRepo{})

	recorder := get(router, "/v1/messages/msg_missing")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGetMessage_InlineReferencesRewritten(t *testing.T) {
	messages := &fakeMessageRepo{messages: []*models.Message{
		{
			ID:            "msg_1",
			Mailbox:       "user@example.com",
			MessageID:     "gm-1",
			BodyHTML:      std(`<p>Logo: <img src="cid:logo@mail"></p>`),
			HasAttachment: true,
		},
	}}
	manifest := &fakeManifestRepo{attachments: []*models.MessageAttachment{
		{ID: "att_1", MessageID: "msg_1", Filename: "logo.png", ContentType: "image/png", ContentID: "logo@mail"},
	}}
	router := messagesRouter(messages, manifest)

	recorder := get(router, "/v1/messages/msg_1")

	require.Equal(t, http.StatusOK, recorder.Code)
	var detail MessageDetail
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &detail))
	assert.NotContains(t, detail.BodyHTML, "cid:")
	assert.Contains(t, detail.BodyHTML, "/v1/messages/msg_1/attachments/att_1?disposition=inline")
	require.Len(t, detail.Attachments, 1)
	assert.True(t, detail.Attachments[0].Inline)
}

func TestGetMessage_DecodedBodies(t *testing.T) {
	messages := &fakeMessageRepo{messages: []*models.Message{
		{
			ID:       "msg_1",
			BodyText: std("plain"),
			BodyHTML: std("<p>rich</p>"),
		},
	}}
	router := messagesRouter(messages, &fakeManifestRepo{})

	recorder := get(router, "/v1/messages/msg_1")

	require.Equal(t, http.StatusOK, recorder.Code)
	var detail MessageDetail
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &detail))
	assert.Equal(t, "plain", detail.BodyText)
	assert.Equal(t, "<p>rich</p>", detail.BodyHTML)
}

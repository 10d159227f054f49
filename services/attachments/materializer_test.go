package attachments

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/fpylas/mailsync/interfaces"
	"github.com/fpylas/mailsync/internal/logger"
	"github.com/fpylas/mailsync/internal/models"
	"github.com/fpylas/mailsync/services/storage"
)

type fakeAttachmentProvider struct {
	data       map[string]string
	fetchCount int
}

func (p *fakeAttachmentProvider) AuthCodeURL(state string) string { return "" }

func (p *fakeAttachmentProvider) ExchangeAuthCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeAttachmentProvider) Profile(ctx context.Context, token *oauth2.Token) (string, error) {
	return "", errors.New("not implemented")
}

func (p *fakeAttachmentProvider) Watch(ctx context.Context, token *oauth2.Token, labels []string) (*interfaces.WatchResult, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeAttachmentProvider) HistoryDelta(ctx context.Context, token *oauth2.Token, startHistoryID string) ([]*gmail.History, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeAttachmentProvider) FullMessage(ctx context.Context, token *oauth2.Token, messageID string) (*gmail.Message, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeAttachmentProvider) AttachmentData(ctx context.Context, token *oauth2.Token, messageID, attachmentID string) (string, error) {
	p.fetchCount++
	encoded, ok := p.data[attachmentID]
	if !ok {
		return "", errors.Errorf("no attachment %s", attachmentID)
	}
	return encoded, nil
}

type fakeAttachmentRepo struct {
	records map[string]*models.MessageAttachment
}

func (r *fakeAttachmentRepo) Create(ctx context.Context, attachment *models.MessageAttachment) error {
	r.records[attachment.ID] = attachment
	return nil
}

func (r *fakeAttachmentRepo) GetByID(ctx context.Context, id string) (*models.MessageAttachment, error) {
	return r.records[id], nil
}

func (r *fakeAttachmentRepo) ListByMessage(ctx context.Context, messageRecordID string) ([]*models.MessageAttachment, error) {
	var out []*models.MessageAttachment
	for _, record := range r.records {
		if record.MessageID == messageRecordID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *fakeAttachmentRepo) MarkStored(ctx context.Context, id, storageKey string, size int) error {
	record, ok := r.records[id]
	if !ok {
		return errors.Errorf("no attachment %s", id)
	}
	record.StorageKey = storageKey
	record.Size = size
	return nil
}

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

func webSafe(data []byte) string {
	return base64.URLEncoding.EncodeToString(data)
}

func testToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "at", Expiry: time.Now().Add(time.Hour)}
}

func newMaterializerFixture(t *testing.T, content []byte) (*Materializer, *fakeAttachmentProvider, *fakeAttachmentRepo, string) {
	t.Helper()
	dir := t.TempDir()
	provider := &fakeAttachmentProvider{data: map[string]string{"prov-1": webSafe(content)}}
	repo := &fakeAttachmentRepo{records: map[string]*models.MessageAttachment{}}
	materializer := NewMaterializer(provider, storage.NewLocalStorageService(dir), repo, testLogger())
	return materializer, provider, repo, dir
}

func TestMaterializer_LazyFirstRead(t *testing.T) {
	content := []byte("pdf bytes here")
	materializer, provider, repo, dir := newMaterializerFixture(t, content)

	attachment := &models.MessageAttachment{
		ID:                   "att_1",
		MessageID:            "msg_1",
		Filename:             "report.pdf",
		ContentType:          "application/pdf",
		ProviderAttachmentID: "prov-1",
	}
	repo.records[attachment.ID] = attachment
	message := &models.Message{ID: "msg_1", MessageID: "gm-1"}

	data, err := materializer.Bytes(context.Background(), testToken(), message, attachment)

	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, 1, provider.fetchCount)
	assert.Equal(t, "gm-1/report.pdf", attachment.StorageKey)
	assert.Equal(t, len(content), attachment.Size)

	onDisk, err := os.ReadFile(filepath.Join(dir, "gm-1", "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, content, onDisk)
}

func TestMaterializer_SecondReadServedFromStorage(t *testing.T) {
	content := []byte("image bytes")
	materializer, provider, repo, _ := newMaterializerFixture(t, content)

	attachment := &models.MessageAttachment{
		ID:                   "att_1",
		MessageID:            "msg_1",
		Filename:             "logo.png",
		ProviderAttachmentID: "prov-1",
	}
	repo.records[attachment.ID] = attachment
	message := &models.Message{ID: "msg_1", MessageID: "gm-1"}

	_, err := materializer.Bytes(context.Background(), testToken(), message, attachment)
	require.NoError(t, err)

	data, err := materializer.Bytes(context.Background(), testToken(), message, attachment)
	require.NoError(t, err)

	assert.Equal(t, content, data)
	assert.Equal(t, 1, provider.fetchCount, "second read must not hit the provider")
}

func TestMaterializer_ConcurrentOverwriteIsIdempotent(t *testing.T) {
	content := []byte("same bytes")
	materializer, _, repo, _ := newMaterializerFixture(t, content)

	attachment := &models.MessageAttachment{
		ID:                   "att_1",
		MessageID:            "msg_1",
		Filename:             "same.bin",
		ProviderAttachmentID: "prov-1",
	}
	repo.records[attachment.ID] = attachment

	// Two racing first reads both fetch and write the same key.
	_, err := materializer.Materialize(context.Background(), attachment, "gm-1", content)
	require.NoError(t, err)
	_, err = materializer.Materialize(context.Background(), attachment, "gm-1", content)
	require.NoError(t, err)

	assert.Equal(t, "gm-1/same.bin", attachment.StorageKey)
}

func TestMaterializer_FilenameSanitizedInKey(t *testing.T) {
	content := []byte("x")
	materializer, _, repo, dir := newMaterializerFixture(t, content)

	attachment := &models.MessageAttachment{
		ID:                   "att_1",
		MessageID:            "msg_1",
		Filename:             "../../etc/passwd",
		ProviderAttachmentID: "prov-1",
	}
	repo.records[attachment.ID] = attachment
	message := &models.Message{ID: "msg_1", MessageID: "gm-1"}

	_, err := materializer.Bytes(context.Background(), testToken(), message, attachment)
	require.NoError(t, err)

	assert.NotContains(t, attachment.StorageKey, "..")
	entries, err := os.ReadDir(filepath.Join(dir, "gm-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMaterializer_UnreadableStoredCopyRefetched(t *testing.T) {
	content := []byte("recoverable")
	materializer, provider, repo, _ := newMaterializerFixture(t, content)

	attachment := &models.MessageAttachment{
		ID:                   "att_1",
		MessageID:            "msg_1",
		Filename:             "gone.bin",
		ProviderAttachmentID: "prov-1",
		StorageKey:           "gm-1/gone.bin", // recorded but never written
	}
	repo.records[attachment.ID] = attachment
	message := &models.Message{ID: "msg_1", MessageID: "gm-1"}

	data, err := materializer.Bytes(context.Background(), testToken(), message, attachment)

	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, 1, provider.fetchCount)
}

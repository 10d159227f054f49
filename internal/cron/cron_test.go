package cron

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/fpylas/mailsync/config"
	"github.com/fpylas/mailsync/interfaces"
	cron_config "github.com/fpylas/mailsync/internal/cron/config"
	"github.com/fpylas/mailsync/internal/logger"
	"github.com/fpylas/mailsync/internal/models"
)

type fakeWatchProvider struct {
	watched    []string
	expiration time.Time
}

func (p *fakeWatchProvider) AuthCodeURL(state string) string { return "" }

func (p *fakeWatchProvider) ExchangeAuthCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeWatchProvider) Profile(ctx context.Context, token *oauth2.Token) (string, error) {
	return "", errors.New("not implemented")
}

func (p *fakeWatchProvider) Watch(ctx context.Context, token *oauth2.Token, labels []string) (*interfaces.WatchResult, error) {
	p.watched = append(p.watched, token.AccessToken)
	return &interfaces.WatchResult{HistoryID: "999", Expiration: p.expiration}, nil
}

func (p *fakeWatchProvider) HistoryDelta(ctx context.Context, token *oauth2.Token, startHistoryID string) ([]*gmail.History, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeWatchProvider) FullMessage(ctx context.Context, token *oauth2.Token, messageID string) (*gmail.Message, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeWatchProvider) AttachmentData(ctx context.Context, token *oauth2.Token, messageID, attachmentID string) (string, error) {
	return "", errors.New("not implemented")
}

type fakeCredentialStore struct {
	credentials map[string]*models.MailboxCredential
}

func (r *fakeCredentialStore) GetByMailbox(ctx context.Context, mailbox string) (*models.MailboxCredential, error) {
	return r.credentials[mailbox], nil
}

func (r *fakeCredentialStore) Save(ctx context.Context, credential *models.MailboxCredential) error {
	r.credentials[credential.Mailbox] = credential
	return nil
}

func (r *fakeCredentialStore) AdvanceWatermark(ctx context.Context, mailbox, historyID string) error {
	r.credentials[mailbox].HistoryID = historyID
	return nil
}

func (r *fakeCredentialStore) UpdateWatchExpiration(ctx context.Context, mailbox string, expiration time.Time) error {
	r.credentials[mailbox].WatchExpiration = &expiration
	return nil
}

func (r *fakeCredentialStore) ListAll(ctx context.Context) ([]*models.MailboxCredential, error) {
	var out []*models.MailboxCredential
	for _, credential := range r.credentials {
		out = append(out, credential)
	}
	return out, nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		Logger: &logger.Config{
			LogLevel: "info",
		},
	}
	log := getLogger()

	// Act
	cm := NewCronManager(cfg, log, nil, nil)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_StartCron(t *testing.T) {
	// Set environment variable for testing
	os.Setenv("CRON_SCHEDULE_WATCH_RENEWAL", "0 0 */6 * * *")
	defer os.Unsetenv("CRON_SCHEDULE_WATCH_RENEWAL")

	// Arrange
	cfg := &config.Config{
		Logger: &logger.Config{
			LogLevel: "info",
		},
	}
	log := getLogger()
	cm := NewCronManager(cfg, log, nil, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New(cronv3.WithSeconds())

	// Register jobs directly
	var cronConfig cron_config.Config
	cronConfig.CronScheduleHeartbeat = "0 * * * * *"
	cronConfig.CronScheduleWatchRenewal = "0 0 */6 * * *"

	// Act - register jobs manually
	id, err := mockCron.AddFunc(cronConfig.CronScheduleHeartbeat, func() {})
	assert.NoError(t, err)
	cm.jobIDs["heartbeat"] = id

	renewalId, err := mockCron.AddFunc(cronConfig.CronScheduleWatchRenewal, func() {})
	assert.NoError(t, err)
	cm.jobIDs["watch_renewal"] = renewalId

	cm.cron = mockCron

	// Assert
	assert.NotNil(t, cm.cron)
	assert.Equal(t, 2, len(cm.jobIDs))
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		Logger: &logger.Config{
			LogLevel: "info",
		},
	}
	log := getLogger()
	cm := NewCronManager(cfg, log, nil, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}

func TestCronManager_RenewExpiringWatches(t *testing.T) {
	// Arrange
	soon := time.Now().UTC().Add(2 * time.Hour)
	far := time.Now().UTC().Add(6 * 24 * time.Hour)
	renewedUntil := time.Now().UTC().Add(7 * 24 * time.Hour)

	store := &fakeCredentialStore{credentials: map[string]*models.MailboxCredential{
		"expiring@example.com": {
			Mailbox:         "expiring@example.com",
			AccessToken:     "tok-expiring",
			HistoryID:       "100",
			WatchExpiration: &soon,
		},
		"missing@example.com": {
			Mailbox:     "missing@example.com",
			AccessToken: "tok-missing",
			HistoryID:   "200",
		},
		"fresh@example.com": {
			Mailbox:         "fresh@example.com",
			AccessToken:     "tok-fresh",
			HistoryID:       "300",
			WatchExpiration: &far,
		},
	}}
	provider := &fakeWatchProvider{expiration: renewedUntil}
	cfg := &config.Config{
		Logger: &logger.Config{
			LogLevel: "info",
		},
	}
	cm := NewCronManager(cfg, getLogger(), provider, store)

	// Act
	cm.renewExpiringWatches()

	// Assert
	assert.ElementsMatch(t, []string{"tok-expiring", "tok-missing"}, provider.watched)
	assert.Equal(t, renewedUntil, *store.credentials["expiring@example.com"].WatchExpiration)
	assert.Equal(t, renewedUntil, *store.credentials["missing@example.com"].WatchExpiration)
	assert.Equal(t, far, *store.credentials["fresh@example.com"].WatchExpiration)
	// renewal never touches the sync watermark
	assert.Equal(t, "100", store.credentials["expiring@example.com"].HistoryID)
	assert.Equal(t, "200", store.credentials["missing@example.com"].HistoryID)
	assert.Equal(t, "300", store.credentials["fresh@example.com"].HistoryID)
}

package cron

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/fpylas/mailsync/config"
	"github.com/fpylas/mailsync/interfaces"
	cron_config "github.com/fpylas/mailsync/internal/cron/config"
	"github.com/fpylas/mailsync/internal/logger"
	"github.com/fpylas/mailsync/internal/tracing"
	"github.com/fpylas/mailsync/internal/utils"
	"github.com/fpylas/mailsync/services/google"
)

const (
	// GroupWatch is the group for push subscription maintenance jobs
	GroupWatch = "watch"

	// RenewalWindow is how close to expiry a subscription gets renewed.
	// Gmail watches lapse after seven days; renewing a day early keeps
	// deliveries flowing across missed cron runs.
	RenewalWindow = 24 * time.Hour
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupWatch: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg         *config.Config
	log         logger.Logger
	cron        *cronv3.Cron
	stopCh      chan struct{}
	jobIDs      map[string]cronv3.EntryID
	provider    interfaces.GmailProvider
	credentials interfaces.CredentialRepository
}

func NewCronManager(cfg *config.Config, log logger.Logger, provider interfaces.GmailProvider, credentials interfaces.CredentialRepository) *CronManager {
	return &CronManager{
		cfg:         cfg,
		log:         log,
		stopCh:      make(chan struct{}),
		jobIDs:      make(map[string]cronv3.EntryID),
		provider:    provider,
		credentials: credentials,
	}
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	// Load cron config from environment variables
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	// Register heartbeat job
	if cronConfig.CronScheduleHeartbeat != "" {
		hostname, _ := os.Hostname()
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from host: %s", hostname)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	// Register push subscription renewal job
	if cronConfig.CronScheduleWatchRenewal != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleWatchRenewal, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupWatch].Lock()
			defer jobLocks.locks[GroupWatch].Unlock()
			cm.renewExpiringWatches()
		})
		if err != nil {
			cm.log.Fatalf("Could not add watch renewal cron job: %v", err)
		}
		cm.jobIDs["watch_renewal"] = id
		cm.log.Infof("Registered watch renewal job with schedule: %s", cronConfig.CronScheduleWatchRenewal)
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger), // Skip if still running
			cronv3.Recover(cronv3.DefaultLogger),            // Default recovery as backup
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// renewExpiringWatches re-registers the push subscription for every
// mailbox whose watch is missing or lapses within the renewal window.
// Renewal never touches the sync watermark; the history id a renewed
// watch reports belongs to the push pipeline, not to this job.
func (cm *CronManager) renewExpiringWatches() {
	cm.log.Info("Running push subscription renewal")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.renewExpiringWatches")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	credentials, err := cm.credentials.ListAll(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to list mailbox credentials: %v", err)
		return
	}

	deadline := time.Now().UTC().Add(RenewalWindow)
	renewed := 0
	for _, credential := range credentials {
		// A credential without a recorded expiration is renewed too.
		if utils.GetOrDefault(credential.WatchExpiration, time.Time{}).After(deadline) {
			continue
		}

		result, err := cm.provider.Watch(ctx, credential.OAuthToken(), google.WatchLabels)
		if err != nil {
			tracing.TraceErr(span, err)
			cm.log.Errorf("Failed to renew watch for %s: %v", credential.Mailbox, err)
			continue
		}

		if err := cm.credentials.UpdateWatchExpiration(ctx, credential.Mailbox, result.Expiration); err != nil {
			tracing.TraceErr(span, err)
			cm.log.Errorf("Failed to record watch expiration for %s: %v", credential.Mailbox, err)
			continue
		}

		renewed++
		cm.log.Infof("Renewed watch for %s until %s", credential.Mailbox, result.Expiration)
	}

	cm.log.Infof("Push subscription renewal complete: %d renewed", renewed)
}

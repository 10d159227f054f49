package services

import (
	"log"

	"github.com/fpylas/mailsync/config"
	"github.com/fpylas/mailsync/interfaces"
	"github.com/fpylas/mailsync/internal/logger"
	"github.com/fpylas/mailsync/internal/repository"
	"github.com/fpylas/mailsync/services/attachments"
	"github.com/fpylas/mailsync/services/google"
	"github.com/fpylas/mailsync/services/storage"
	"github.com/fpylas/mailsync/services/sync"
)

type Services struct {
	GmailProvider  interfaces.GmailProvider
	SyncService    interfaces.SyncService
	StorageService interfaces.StorageService
	Materializer   *attachments.Materializer
}

func InitServices(cfg *config.Config, repositories *repository.Repositories, log logger.Logger) *Services {
	provider := google.NewGmailService(cfg.GoogleOAuth)
	storageService := initStorage(cfg.Storage)
	materializer := attachments.NewMaterializer(provider, storageService, repositories.AttachmentRepository, log)

	return &Services{
		GmailProvider:  provider,
		SyncService:    sync.NewSyncService(provider, repositories, log),
		StorageService: storageService,
		Materializer:   materializer,
	}
}

func initStorage(cfg *config.StorageConfig) interfaces.StorageService {
	switch cfg.Backend {
	case "s3":
		return storage.NewS3StorageService(cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSAccessKeySecret, cfg.AttachmentBucket, false)
	case "r2":
		return storage.NewR2StorageService(cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.AttachmentBucket, false)
	case "local", "":
		return storage.NewLocalStorageService(cfg.LocalPath)
	default:
		log.Fatalf("Unknown storage backend: %s", cfg.Backend)
		return nil
	}
}

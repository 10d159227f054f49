package repository

import (
	"gorm.io/gorm"

	"github.com/fpylas/mailsync/interfaces"
	"github.com/fpylas/mailsync/internal/models"
)

type Repositories struct {
	CredentialRepository interfaces.CredentialRepository
	MessageRepository    interfaces.MessageRepository
	AttachmentRepository interfaces.AttachmentRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		CredentialRepository: NewCredentialRepository(db),
		MessageRepository:    NewMessageRepository(db),
		AttachmentRepository: NewAttachmentRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.MailboxCredential{},
		&models.Message{},
		&models.MessageAttachment{},
	)
}

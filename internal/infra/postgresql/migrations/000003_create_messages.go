package migrations

import (
	"github.com/Gattoajatooo/back-sparta-sub007/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createMessagesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_messages",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.MessageModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_messages_campaign_status ON messages (campaign_id, status)`,
				`CREATE INDEX IF NOT EXISTS idx_messages_batch_id ON messages (batch_id)`,
				`CREATE INDEX IF NOT EXISTS idx_messages_scheduler_job_id ON messages (scheduler_job_id) WHERE scheduler_job_id IS NOT NULL`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.MessageModel{})
		},
	}
}

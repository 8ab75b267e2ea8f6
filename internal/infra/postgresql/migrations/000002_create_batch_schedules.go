package migrations

import (
	"github.com/Gattoajatooo/back-sparta-sub007/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createBatchSchedulesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_batch_schedules",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BatchScheduleModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_batch_schedules_campaign_pending ON batch_schedules (campaign_id, run_at) WHERE status = 'pending'`,
				`ALTER TABLE batch_schedules DROP CONSTRAINT IF EXISTS chk_batch_schedules_status`,
				`ALTER TABLE batch_schedules ADD CONSTRAINT chk_batch_schedules_status CHECK (status IN ('pending', 'approved', 'expired', 'cancelled'))`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BatchScheduleModel{})
		},
	}
}

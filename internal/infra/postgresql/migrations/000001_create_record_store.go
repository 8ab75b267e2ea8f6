package migrations

import (
	"github.com/Gattoajatooo/back-sparta-sub007/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func recordStoreModels() []any {
	return []any{
		&repository.CompanyModel{},
		&repository.UserModel{},
		&repository.ContactModel{},
		&repository.ContactAddressModel{},
		&repository.TagModel{},
		&repository.SystemTagModel{},
		&repository.CampaignModel{},
		&repository.MessageTemplateModel{},
	}
}

func createRecordStoreTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_record_store",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(recordStoreModels()...); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_contacts_company_active ON contacts (company_id) WHERE deleted = false`,
				`CREATE INDEX IF NOT EXISTS idx_contacts_system_tags ON contacts USING GIN (system_tags)`,
				`CREATE INDEX IF NOT EXISTS idx_system_tags_flag ON system_tags (company_id, flag) WHERE flag IS NOT NULL`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			models := recordStoreModels()
			for i := len(models) - 1; i >= 0; i-- {
				if err := tx.Migrator().DropTable(models[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/crm-mailer/internal/repository"
	"gorm.io/gorm"
)

func createEmailJobsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_email_jobs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.EmailJobModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_email_jobs_status_created ON email_jobs (status, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_email_jobs_created_at ON email_jobs (created_at)`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.EmailJobModel{})
		},
	}
}

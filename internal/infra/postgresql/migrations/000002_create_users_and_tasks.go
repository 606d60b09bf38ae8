package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/crm-mailer/internal/repository"
	"gorm.io/gorm"
)

func createUsersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_users",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.UserModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.UserModel{})
		},
	}
}

func createTasksTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_tasks",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.TaskModel{}); err != nil {
				return err
			}
			// Open tasks with a due date are the only rows the reminder scan reads.
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_tasks_open_due ON tasks (due_date) WHERE due_date IS NOT NULL AND status NOT IN ('completed', 'cancelled')`,
				`CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks (assigned_to)`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.TaskModel{})
		},
	}
}

package migrations

import (
	"sql-helper/internal/models"

	"gorm.io/gorm"
)

type Migration struct {
	Name string
	Run  func(*gorm.DB) error
}

// GetMigrations lists schema steps in apply order. Names are recorded once
// applied, so existing entries must never be renamed.
func GetMigrations() []Migration {
	return []Migration{
		{
			Name: "CreateUsersTable",
			Run: func(db *gorm.DB) error {
				return db.AutoMigrate(&models.User{})
			},
		},
		{
			Name: "CreateTokenUsagesTable",
			Run: func(db *gorm.DB) error {
				return db.AutoMigrate(&models.TokenUsage{})
			},
		},
		{
			Name: "AddTokenUsageNonNegativeChecks",
			Run: func(db *gorm.DB) error {
				return db.Exec(`ALTER TABLE token_usages
					ADD CONSTRAINT chk_token_usages_non_negative
					CHECK (request_tokens >= 0 AND response_tokens >= 0)`).Error
			},
		},
		{
			Name: "CreateRequestLogsTable",
			Run: func(db *gorm.DB) error {
				return db.AutoMigrate(&models.RequestLog{})
			},
		},
		{
			Name: "AddIndexToRequestLogsUserTimestamp",
			Run: func(db *gorm.DB) error {
				return db.Exec("CREATE INDEX IF NOT EXISTS idx_request_logs_user_ts ON request_logs(user_id, timestamp DESC)").Error
			},
		},
	}
}

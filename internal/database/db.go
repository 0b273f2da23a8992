package database

import (
	"fmt"
	"log"
	"time"

	"sql-helper/internal/config"
	"sql-helper/internal/db/migrations"
	applog "sql-helper/internal/logger"
	"sql-helper/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// Route GORM through the application logger
	gormLogger := logger.New(
		log.New(applog.Logger.WriterLevel(logrus.InfoLevel), "", 0),
		logger.Config{
			SlowThreshold:             cfg.SlowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	return db, nil
}

// Migrate applies every migration not yet recorded in migration_records.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return runMigrations(db, migrations.GetMigrations())
}

func runMigrations(db *gorm.DB, migrationsList []migrations.Migration) error {
	for _, migration := range migrationsList {
		var record models.MigrationRecord
		result := db.Where("name = ?", migration.Name).First(&record)

		if result.Error == gorm.ErrRecordNotFound {
			applog.LogEvent(logrus.InfoLevel, "migration.running", logrus.Fields{"name": migration.Name})

			err := db.Transaction(func(tx *gorm.DB) error {
				if err := migration.Run(tx); err != nil {
					return err
				}

				return tx.Create(&models.MigrationRecord{Name: migration.Name, AppliedAt: time.Now()}).Error
			})

			if err != nil {
				return fmt.Errorf("migration '%s' failed: %w", migration.Name, err)
			}
		} else if result.Error != nil {
			return fmt.Errorf("failed to check migration status: %w", result.Error)
		}
	}

	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package models

import "time"

// MigrationRecord marks a named schema step as applied.
type MigrationRecord struct {
	ID        uint   `gorm:"primarykey"`
	Name      string `gorm:"uniqueIndex;not null"`
	AppliedAt time.Time
}

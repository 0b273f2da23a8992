package models

import (
	"time"
)

type RequestStatus string

const (
	StatusSuccess RequestStatus = "SUCCESS"
	StatusError   RequestStatus = "ERROR"
)

type RequestLog struct {
	ID         uint   `gorm:"primarykey"`
	UserID     string `gorm:"index"`
	Endpoint   string `gorm:"index"`
	Method     string
	Status     RequestStatus
	StatusCode int
	Summary    string
	// Metadata holds model and token figures for assistant calls.
	Metadata  JSON      `gorm:"type:jsonb"`
	Timestamp time.Time `gorm:"index"`
	CreatedAt time.Time
}

package repository

import (
	"context"
	"time"

	"sql-helper/internal/models"
	"sql-helper/internal/pkg/errors"

	"gorm.io/gorm"
)

type RequestLogRepository interface {
	Create(ctx context.Context, log *models.RequestLog) error
	GetUserLogs(ctx context.Context, userID string, from, to time.Time, limit int) ([]models.RequestLog, error)
}

type requestLogRepository struct {
	db *gorm.DB
}

func NewRequestLogRepository(db *gorm.DB) RequestLogRepository {
	return &requestLogRepository{db: db}
}

func (r *requestLogRepository) Create(ctx context.Context, log *models.RequestLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return errors.Wrap(err, "failed to create request log")
	}
	return nil
}

func (r *requestLogRepository) GetUserLogs(ctx context.Context, userID string, from, to time.Time, limit int) ([]models.RequestLog, error) {
	var logs []models.RequestLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp BETWEEN ? AND ?", userID, from, to).
		Order("timestamp desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user logs")
	}
	return logs, nil
}

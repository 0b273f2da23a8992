package services

import (
	"context"
	"time"

	"sql-helper/internal/models"
	"sql-helper/internal/repository"
)

const defaultLogPageSize = 100

type RequestLogService interface {
	LogRequest(ctx context.Context, userID, endpoint, method string, statusCode int, summary string, metadata models.JSON) error
	GetUserLogs(ctx context.Context, userID string, from, to time.Time) ([]models.RequestLog, error)
}

type requestLogService struct {
	repo repository.RequestLogRepository
}

func NewRequestLogService(repo repository.RequestLogRepository) RequestLogService {
	return &requestLogService{repo: repo}
}

func (s *requestLogService) LogRequest(ctx context.Context, userID, endpoint, method string, statusCode int, summary string, metadata models.JSON) error {
	status := models.StatusSuccess
	if statusCode >= 400 {
		status = models.StatusError
	}
	log := &models.RequestLog{
		UserID:     userID,
		Endpoint:   endpoint,
		Method:     method,
		Status:     status,
		StatusCode: statusCode,
		Summary:    summary,
		Metadata:   metadata,
		Timestamp:  time.Now(),
	}
	return s.repo.Create(ctx, log)
}

func (s *requestLogService) GetUserLogs(ctx context.Context, userID string, from, to time.Time) ([]models.RequestLog, error) {
	return s.repo.GetUserLogs(ctx, userID, from, to, defaultLogPageSize)
}

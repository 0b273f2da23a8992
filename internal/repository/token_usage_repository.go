package repository

import (
	"context"
	"time"

	"sql-helper/internal/models"
	"sql-helper/internal/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenUsageRepository interface {
	Get(ctx context.Context, userID, usageDate string) (models.TokenUsage, error)
	Increment(ctx context.Context, userID, usageDate string, requestTokens, responseTokens int64) error
	ListRange(ctx context.Context, userID, fromDate, toDate string) ([]models.TokenUsage, error)
}

type tokenUsageRepository struct {
	db *gorm.DB
}

func NewTokenUsageRepository(db *gorm.DB) TokenUsageRepository {
	return &tokenUsageRepository{db: db}
}

// Get returns a zero record when the bucket has no row yet.
func (r *tokenUsageRepository) Get(ctx context.Context, userID, usageDate string) (models.TokenUsage, error) {
	var usage models.TokenUsage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND usage_date = ?", userID, usageDate).
		Take(&usage).Error
	if err == gorm.ErrRecordNotFound {
		return models.TokenUsage{UserID: userID, UsageDate: usageDate}, nil
	}
	if err != nil {
		return models.TokenUsage{}, errors.Unavailable(err, "failed to read token usage")
	}
	return usage, nil
}

// Increment adds the deltas in one INSERT ... ON CONFLICT statement so
// concurrent completions for the same bucket sum instead of overwriting.
func (r *tokenUsageRepository) Increment(ctx context.Context, userID, usageDate string, requestTokens, responseTokens int64) error {
	now := time.Now()
	usage := models.TokenUsage{
		UserID:         userID,
		UsageDate:      usageDate,
		RequestTokens:  requestTokens,
		ResponseTokens: responseTokens,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "usage_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_tokens":  gorm.Expr("token_usages.request_tokens + EXCLUDED.request_tokens"),
			"response_tokens": gorm.Expr("token_usages.response_tokens + EXCLUDED.response_tokens"),
			"updated_at":      gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&usage).Error
	if err != nil {
		return errors.Unavailable(err, "failed to increment token usage")
	}
	return nil
}

// ListRange returns buckets in [fromDate, toDate], newest first. Bucket
// strings are YYYYMMDD so lexical order is date order.
func (r *tokenUsageRepository) ListRange(ctx context.Context, userID, fromDate, toDate string) ([]models.TokenUsage, error) {
	var usages []models.TokenUsage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND usage_date BETWEEN ? AND ?", userID, fromDate, toDate).
		Order("usage_date desc").
		Find(&usages).Error
	if err != nil {
		return nil, errors.Unavailable(err, "failed to list token usage")
	}
	return usages, nil
}

package repository

import (
	"context"

	"sql-helper/internal/models"
	"sql-helper/internal/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetDailyTokenLimit(ctx context.Context, email string) (*int64, error)
	SetDailyTokenLimit(ctx context.Context, email string, limit *int64) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return errors.ErrAlreadyExists
		}
		return errors.Wrap(result.Error, "failed to create user")
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, "id = ?", id)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get user by ID")
	}

	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, "email = ?", email)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get user by email")
	}

	return &user, nil
}

// GetDailyTokenLimit returns the override column only. A nil limit with a nil
// error means the user exists without an override.
func (r *userRepository) GetDailyTokenLimit(ctx context.Context, email string) (*int64, error) {
	var user models.User
	result := r.db.WithContext(ctx).
		Select("daily_token_limit").
		Where("email = ?", email).
		Take(&user)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Unavailable(result.Error, "failed to read daily token limit")
	}

	return user.DailyTokenLimit, nil
}

func (r *userRepository) SetDailyTokenLimit(ctx context.Context, email string, limit *int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("daily_token_limit", limit)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update daily token limit")
	}

	if result.RowsAffected == 0 {
		return errors.ErrNotFound
	}

	return nil
}

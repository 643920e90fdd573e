package repository

import (
	"context"
	"errors"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"gorm.io/gorm"
)

type Repository interface {
	// GetActiveByPhone returns the active user with the given phone number, company preloaded.
	GetActiveByPhone(ctx context.Context, phone string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Count(ctx context.Context) (int64, error)
}

type repo struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

func (r *repo) GetActiveByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Preload("Company").
		Where("phone_number = ? AND is_active = ?", phone, true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error
	return n, err
}

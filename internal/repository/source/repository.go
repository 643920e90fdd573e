package repository

import (
	"context"
	"errors"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"gorm.io/gorm"
)

type Repository interface {
	GetActiveByName(ctx context.Context, name domain.Platform) (*domain.Source, error)
	GetActiveByAPIKey(ctx context.Context, apiKey string) (*domain.Source, error)
	GetActiveByID(ctx context.Context, id uint) (*domain.Source, error)
	ListActive(ctx context.Context) ([]domain.Source, error)
	Create(ctx context.Context, src *domain.Source) error
	Count(ctx context.Context) (int64, error)
}

type repo struct {
	db *gorm.DB
}

func NewSourceRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

func (r *repo) GetActiveByName(ctx context.Context, name domain.Platform) (*domain.Source, error) {
	return r.first(ctx, "name = ? AND is_active = ?", name, true)
}

func (r *repo) GetActiveByAPIKey(ctx context.Context, apiKey string) (*domain.Source, error) {
	return r.first(ctx, "api_key = ? AND is_active = ?", apiKey, true)
}

func (r *repo) GetActiveByID(ctx context.Context, id uint) (*domain.Source, error) {
	return r.first(ctx, "id = ? AND is_active = ?", id, true)
}

func (r *repo) ListActive(ctx context.Context) ([]domain.Source, error) {
	var sources []domain.Source
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&sources).Error
	return sources, err
}

func (r *repo) Create(ctx context.Context, src *domain.Source) error {
	return r.db.WithContext(ctx).Create(src).Error
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Source{}).Count(&n).Error
	return n, err
}

func (r *repo) first(ctx context.Context, query string, args ...any) (*domain.Source, error) {
	var src domain.Source
	if err := r.db.WithContext(ctx).Where(query, args...).First(&src).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &src, nil
}

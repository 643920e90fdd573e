package repository

import (
	"context"
	"errors"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	GetActiveByPhone(ctx context.Context, phone string) (*domain.Company, error)
	GetActiveByName(ctx context.Context, name string) (*domain.Company, error)
	FirstActive(ctx context.Context) (*domain.Company, error)
	// CreateIfAbsent inserts company unless a company with the same name exists.
	// In both cases the stored row is returned.
	CreateIfAbsent(ctx context.Context, company *domain.Company) (*domain.Company, error)
	Create(ctx context.Context, company *domain.Company) error
	Count(ctx context.Context) (int64, error)
}

type repo struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

func (r *repo) GetActiveByPhone(ctx context.Context, phone string) (*domain.Company, error) {
	return r.first(r.db.WithContext(ctx).Where("phone_number = ? AND is_active = ?", phone, true))
}

func (r *repo) GetActiveByName(ctx context.Context, name string) (*domain.Company, error) {
	return r.first(r.db.WithContext(ctx).Where("name = ? AND is_active = ?", name, true))
}

// FirstActive returns the oldest active company
func (r *repo) FirstActive(ctx context.Context) (*domain.Company, error) {
	return r.first(r.db.WithContext(ctx).Where("is_active = ?", true).Order("id"))
}

func (r *repo) CreateIfAbsent(ctx context.Context, company *domain.Company) (*domain.Company, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(company).Error
	if err != nil {
		return nil, err
	}

	// the insert is a no-op when another writer got there first, read back the winner
	return r.first(r.db.WithContext(ctx).Where("name = ?", company.Name))
}

func (r *repo) Create(ctx context.Context, company *domain.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Company{}).Count(&n).Error
	return n, err
}

func (r *repo) first(q *gorm.DB) (*domain.Company, error) {
	var company domain.Company
	if err := q.First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

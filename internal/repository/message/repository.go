package repository

import (
	"context"
	"errors"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"gorm.io/gorm"
)

const defaultListLimit = 100

type Repository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uint) (*domain.Message, error)
	GetByPlatformID(ctx context.Context, platformMsgID string, sourceID uint) (*domain.Message, error)
	List(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error)
	Summary(ctx context.Context, filter domain.MessageFilter) (*domain.MessageSummary, error)
}

type repo struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

// Create inserts a new message row. Messages are never updated afterwards.
func (r *repo) Create(ctx context.Context, msg *domain.Message) error {
	return r.db.WithContext(ctx).Omit("Source", "User", "Company").Create(msg).Error
}

func (r *repo) GetByID(ctx context.Context, id uint) (*domain.Message, error) {
	var msg domain.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

// GetByPlatformID looks a message up by the id the platform assigned to it
func (r *repo) GetByPlatformID(ctx context.Context, platformMsgID string, sourceID uint) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.WithContext(ctx).
		Where("platform_message_id = ? AND source_id = ?", platformMsgID, sourceID).
		First(&msg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

// List returns messages matching the filter, newest first
func (r *repo) List(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var messages []domain.Message
	err := applyFilter(r.db.WithContext(ctx).Model(&domain.Message{}), filter).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// Summary counts messages and files for the filter, grouping files by type and by sender
func (r *repo) Summary(ctx context.Context, filter domain.MessageFilter) (*domain.MessageSummary, error) {
	summary := &domain.MessageSummary{
		FilesByType:   map[string]int64{},
		FilesBySender: map[string]int64{},
	}

	base := func() *gorm.DB {
		return applyFilter(r.db.WithContext(ctx).Model(&domain.Message{}), filter)
	}

	if err := base().Count(&summary.TotalMessages).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		BucketKey string
		Total     int64
	}

	var byType []bucket
	if err := base().Where("file_type <> ''").
		Select("file_type AS bucket_key, COUNT(*) AS total").
		Group("file_type").
		Scan(&byType).Error; err != nil {
		return nil, err
	}
	for _, b := range byType {
		summary.FilesByType[b.BucketKey] = b.Total
		summary.TotalFiles += b.Total
	}

	var bySender []bucket
	if err := base().Where("file_type <> ''").
		Select("sender_number AS bucket_key, COUNT(*) AS total").
		Group("sender_number").
		Scan(&bySender).Error; err != nil {
		return nil, err
	}
	for _, b := range bySender {
		summary.FilesBySender[b.BucketKey] = b.Total
	}

	return summary, nil
}

func applyFilter(q *gorm.DB, filter domain.MessageFilter) *gorm.DB {
	if filter.SenderNumber != "" {
		q = q.Where("sender_number = ?", filter.SenderNumber)
	}
	if filter.CompanyID != 0 {
		q = q.Where("company_id = ?", filter.CompanyID)
	}
	if filter.SourceID != 0 {
		q = q.Where("source_id = ?", filter.SourceID)
	}
	if filter.FileType != "" {
		q = q.Where("file_type = ?", filter.FileType)
	}
	if filter.WithFiles {
		q = q.Where("filename <> ''")
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}
	return q
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(domain.Models()...))
	return db
}

func phone(s string) *string { return &s }

func TestGetActiveByPhone(t *testing.T) {
	ctx := context.Background()
	repo := NewCompanyRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, &domain.Company{Name: "Acme", PhoneNumber: phone("+1111"), IsActive: true}))
	require.NoError(t, repo.Create(ctx, &domain.Company{Name: "Closed", PhoneNumber: phone("+2222"), IsActive: false}))

	company, err := repo.GetActiveByPhone(ctx, "+1111")
	require.NoError(t, err)
	assert.Equal(t, "Acme", company.Name)

	_, err = repo.GetActiveByPhone(ctx, "+2222")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetActiveByPhone(ctx, "+3333")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFirstActive(t *testing.T) {
	ctx := context.Background()
	repo := NewCompanyRepository(newTestDB(t))

	_, err := repo.FirstActive(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Create(ctx, &domain.Company{Name: "Dormant", IsActive: false}))
	require.NoError(t, repo.Create(ctx, &domain.Company{Name: "First", IsActive: true}))
	require.NoError(t, repo.Create(ctx, &domain.Company{Name: "Second", IsActive: true}))

	company, err := repo.FirstActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "First", company.Name)
}

func TestCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewCompanyRepository(newTestDB(t))

	var wg sync.WaitGroup
	ids := make([]uint, 4)
	for i := range ids {
		wg.Go(func() {
			company, err := repo.CreateIfAbsent(ctx, &domain.Company{Name: "Default Company", IsActive: true})
			assert.NoError(t, err)
			if company != nil {
				ids[i] = company.ID
			}
		})
	}
	wg.Wait()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

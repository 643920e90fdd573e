package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/aniladanir/file-relay-service/internal/domain"
	companyRepo "github.com/aniladanir/file-relay-service/internal/repository/company"
	userRepo "github.com/aniladanir/file-relay-service/internal/repository/user"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

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

func strPtr(s string) *string { return &s }

// tenants is a small directory fixture: Acme owns +1000 and has user +2000,
// Beta owns +3000 and keeps its own drive folder.
type tenants struct {
	db        *gorm.DB
	directory Directory
	acme      *domain.Company
	beta      *domain.Company
	user      *domain.User
}

func newTenants(t *testing.T) *tenants {
	t.Helper()
	db := newTestDB(t)

	acme := &domain.Company{Name: "Acme", PhoneNumber: strPtr("+1000"), IsActive: true}
	beta := &domain.Company{Name: "Beta", PhoneNumber: strPtr("+3000"), DriveFolderID: "beta-root", IsActive: true}
	require.NoError(t, db.Create(acme).Error)
	require.NoError(t, db.Create(beta).Error)

	user := &domain.User{PhoneNumber: "+2000", CompanyID: &acme.ID, IsActive: true}
	require.NoError(t, db.Create(user).Error)

	return &tenants{
		db:        db,
		directory: NewDirectory(userRepo.NewUserRepository(db), companyRepo.NewCompanyRepository(db), "Default Company", testLogger()),
		acme:      acme,
		beta:      beta,
		user:      user,
	}
}

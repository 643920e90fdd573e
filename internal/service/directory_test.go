package service

import (
	"context"
	"testing"

	"github.com/aniladanir/file-relay-service/internal/domain"
	companyRepo "github.com/aniladanir/file-relay-service/internal/repository/company"
	userRepo "github.com/aniladanir/file-relay-service/internal/repository/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_CompanyPhoneWins(t *testing.T) {
	tn := newTenants(t)

	user, company, err := tn.directory.Resolve(context.Background(), "+2000", "+3000")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, tn.user.ID, user.ID)
	assert.Equal(t, "Beta", company.Name)
}

func TestResolve_UserCompany(t *testing.T) {
	tn := newTenants(t)

	user, company, err := tn.directory.Resolve(context.Background(), "+2000", "+9999")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Acme", company.Name)
}

func TestResolve_FallsBackToFirstActiveCompany(t *testing.T) {
	tn := newTenants(t)

	user, company, err := tn.directory.Resolve(context.Background(), "+5555", "+5555")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, "Acme", company.Name)
}

func TestResolveOrCreateDefaultCompany(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	companies := companyRepo.NewCompanyRepository(db)
	directory := NewDirectory(userRepo.NewUserRepository(db), companies, "Sin Asignar", testLogger())

	first, err := directory.ResolveOrCreateDefaultCompany(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sin Asignar", first.Name)
	assert.True(t, first.IsActive)

	second, err := directory.ResolveOrCreateDefaultCompany(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	n, err := companies.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, company, err := directory.Resolve(ctx, "+1", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, company.ID)
}

func TestResolve_InactiveDefaultCompanyName(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Create(&domain.Company{Name: "Default Company", IsActive: false}).Error)
	directory := NewDirectory(userRepo.NewUserRepository(db), companyRepo.NewCompanyRepository(db), "Default Company", testLogger())

	// the name is taken by an inactive row; it is returned as is rather than duplicated
	_, company, err := directory.Resolve(ctx, "+1", "")
	require.NoError(t, err)
	assert.Equal(t, "Default Company", company.Name)
	assert.False(t, company.IsActive)
}

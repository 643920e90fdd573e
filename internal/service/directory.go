package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aniladanir/file-relay-service/internal/domain"
	companyRepo "github.com/aniladanir/file-relay-service/internal/repository/company"
	userRepo "github.com/aniladanir/file-relay-service/internal/repository/user"
)

// Directory maps senders to the company whose storage they write into
type Directory interface {
	// Resolve returns the (user, company) pair for a sender. user may be nil.
	Resolve(ctx context.Context, senderNumber, companyPhone string) (*domain.User, *domain.Company, error)
	// ResolveOrCreateDefaultCompany returns the first active company, creating the configured
	// default company when there is none. Repeated and concurrent calls yield the same company.
	ResolveOrCreateDefaultCompany(ctx context.Context) (*domain.Company, error)
}

type directory struct {
	users              userRepo.Repository
	companies          companyRepo.Repository
	defaultCompanyName string
	logger             *slog.Logger
}

func NewDirectory(users userRepo.Repository, companies companyRepo.Repository, defaultCompanyName string, logger *slog.Logger) Directory {
	return &directory{
		users:              users,
		companies:          companies,
		defaultCompanyName: defaultCompanyName,
		logger:             logger,
	}
}

func (d *directory) Resolve(ctx context.Context, senderNumber, companyPhone string) (*domain.User, *domain.Company, error) {
	user, err := d.users.GetActiveByPhone(ctx, senderNumber)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	if companyPhone != "" {
		company, err := d.companies.GetActiveByPhone(ctx, companyPhone)
		if err == nil {
			return user, company, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, err
		}
	}

	if user != nil && user.Company != nil {
		return user, user.Company, nil
	}

	company, err := d.ResolveOrCreateDefaultCompany(ctx)
	if err != nil {
		return nil, nil, &domain.ResolutionError{SenderNumber: senderNumber, Err: err}
	}
	d.logger.Warn("no company for sender, using default company", "sender", senderNumber, "company", company.Name)

	return nil, company, nil
}

func (d *directory) ResolveOrCreateDefaultCompany(ctx context.Context) (*domain.Company, error) {
	company, err := d.companies.FirstActive(ctx)
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	company, err = d.companies.CreateIfAbsent(ctx, &domain.Company{
		Name:     d.defaultCompanyName,
		IsActive: true,
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info("default company ready", "company", company.Name, "companyId", company.ID)

	return company, nil
}

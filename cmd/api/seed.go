package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aniladanir/file-relay-service/internal/domain"
	companyRepo "github.com/aniladanir/file-relay-service/internal/repository/company"
	sourceRepo "github.com/aniladanir/file-relay-service/internal/repository/source"
	userRepo "github.com/aniladanir/file-relay-service/internal/repository/user"
	"github.com/google/uuid"
)

type seedRepos struct {
	sources   sourceRepo.Repository
	companies companyRepo.Repository
	users     userRepo.Repository
}

// seedDatabase loads the configured sources, companies and users into tables that are still empty
func seedDatabase(ctx context.Context, repos seedRepos, seed SeedConfig, logger *slog.Logger) error {
	srcCount, err := repos.sources.Count(ctx)
	if err != nil {
		return err
	}
	if srcCount == 0 {
		for _, s := range seed.Sources {
			src := &domain.Source{
				Name:        domain.Platform(s.Name),
				IsActive:    s.Active == nil || *s.Active,
				APIKey:      s.APIKey,
				WebhookURL:  s.WebhookURL,
				Additional1: s.Additional1,
				Additional2: s.Additional2,
				Additional3: s.Additional3,
				Additional4: s.Additional4,
				Additional5: s.Additional5,
			}
			if src.APIKey == "" {
				src.APIKey = uuid.NewString()
				logger.Info("generated api key for seeded source", "source", s.Name, "apiKey", src.APIKey)
			}
			if err := repos.sources.Create(ctx, src); err != nil {
				return fmt.Errorf("failed to seed source %s: %w", s.Name, err)
			}
		}
	}

	companyCount, err := repos.companies.Count(ctx)
	if err != nil {
		return err
	}
	if companyCount == 0 {
		for _, c := range seed.Companies {
			company := &domain.Company{
				Name:          c.Name,
				DriveFolderID: c.DriveFolderID,
				IsActive:      true,
			}
			if c.PhoneNumber != "" {
				company.PhoneNumber = &c.PhoneNumber
			}
			if err := repos.companies.Create(ctx, company); err != nil {
				return fmt.Errorf("failed to seed company %s: %w", c.Name, err)
			}
		}
	}

	userCount, err := repos.users.Count(ctx)
	if err != nil {
		return err
	}
	if userCount == 0 {
		for _, u := range seed.Users {
			user := &domain.User{PhoneNumber: u.PhoneNumber, IsActive: true}
			if u.Company != "" {
				company, err := repos.companies.GetActiveByName(ctx, u.Company)
				if err != nil {
					return fmt.Errorf("failed to seed user %s: company %q: %w", u.PhoneNumber, u.Company, err)
				}
				user.CompanyID = &company.ID
			}
			if err := repos.users.Create(ctx, user); err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.PhoneNumber, err)
			}
		}
	}

	logger.Info("database seeded",
		"sources", len(seed.Sources),
		"companies", len(seed.Companies),
		"users", len(seed.Users))

	return nil
}

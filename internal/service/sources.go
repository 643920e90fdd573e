package service

import (
	"context"

	"github.com/aniladanir/file-relay-service/internal/domain"
	sourceRepo "github.com/aniladanir/file-relay-service/internal/repository/source"
)

// SourceRegistry resolves platform integrations and checks their configuration
type SourceRegistry interface {
	FindByAPIKey(ctx context.Context, apiKey string) (*domain.Source, error)
	FindByPlatformName(ctx context.Context, name string) (*domain.Source, error)
	Validate(src *domain.Source) bool
}

type sourceRegistry struct {
	repo sourceRepo.Repository
}

func NewSourceRegistry(repo sourceRepo.Repository) SourceRegistry {
	return &sourceRegistry{repo: repo}
}

// FindByAPIKey returns the active source owning apiKey. An empty key never matches.
func (s *sourceRegistry) FindByAPIKey(ctx context.Context, apiKey string) (*domain.Source, error) {
	if apiKey == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetActiveByAPIKey(ctx, apiKey)
}

// FindByPlatformName returns the active source for a platform
func (s *sourceRegistry) FindByPlatformName(ctx context.Context, name string) (*domain.Source, error) {
	if name == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetActiveByName(ctx, domain.Platform(name))
}

func (s *sourceRegistry) Validate(src *domain.Source) bool {
	if src == nil || !src.IsActive {
		return false
	}

	creds := src.Credentials()
	switch src.Name {
	case domain.PlatformWhatsApp:
		return creds[domain.CredAccountSID] != "" && creds[domain.CredAuthToken] != ""
	case domain.PlatformTelegram:
		return creds[domain.CredBotToken] != ""
	}

	return true
}

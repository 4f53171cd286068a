// Package service implements client registration and profile lookup.
package service

import (
	"context"
	"errors"
	"strings"

	"propsales_backend/internal/clients/repository"
	"propsales_backend/platform/apperr"
	"propsales_backend/platform/logger"

	"github.com/google/uuid"
)

type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

type RegisterParams struct {
	FullName string
	Email    string
	Phone    string
}

// Register creates a client record. Emails are unique case-insensitively;
// a duplicate registration returns a conflict rather than a second row.
func (s *Service) Register(ctx context.Context, params RegisterParams) (repository.Client, error) {
	params.FullName = strings.TrimSpace(params.FullName)
	params.Email = strings.TrimSpace(params.Email)

	client, err := s.repo.Create(ctx, repository.CreateClientParams{
		FullName: params.FullName,
		Email:    params.Email,
		Phone:    params.Phone,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return repository.Client{}, apperr.Conflict("a client with this email already exists")
		}
		return repository.Client{}, apperr.Wrap(apperr.KindInternal, "failed to register client", err)
	}

	s.log.Info("client registered", "clientId", client.ID, "email", client.Email)
	return client, nil
}

// GetProfile returns the client record for the resolved identity.
func (s *Service) GetProfile(ctx context.Context, clientID uuid.UUID) (repository.Client, error) {
	client, err := s.repo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Client{}, apperr.NotFound("client not found")
		}
		return repository.Client{}, err
	}
	return client, nil
}

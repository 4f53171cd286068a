// Package service implements the acquisition workflows: the interest state
// machine, the property lock manager, and the handover transition
// orchestrator. The store offers no cross-table transactions, so every
// multi-row sequence here is a saga: forward steps in a fixed order with
// explicit compensation on failure.
package service

import (
	"context"

	"propsales_backend/internal/acquisition/repository"
	clientrepo "propsales_backend/internal/clients/repository"
	"propsales_backend/internal/events"
	"propsales_backend/internal/payments"
	"propsales_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ClientReader resolves canonical client identities. The acquisition context
// never deals in auth identities; the boundary resolves those to a client
// row before calling in.
type ClientReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (clientrepo.Client, error)
}

type Service struct {
	store   repository.Store
	clients ClientReader
	gateway payments.Gateway
	bus     events.Bus
	log     *logger.Logger
}

func New(store repository.Store, clients ClientReader, gateway payments.Gateway, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		clients: clients,
		gateway: gateway,
		bus:     bus,
		log:     log,
	}
}

// PropertyOverview aggregates everything the portal shows for one property.
type PropertyOverview struct {
	Property     repository.Property
	Interests    []repository.Interest
	Pipeline     *repository.HandoverPipeline
	Installments []repository.PaymentInstallment
}

// GetPropertyOverview reads the property with its interests, pipeline and
// payment ledger. Reads are not transactional; the caller gets a consistent
// enough snapshot for display.
func (s *Service) GetPropertyOverview(ctx context.Context, propertyID uuid.UUID) (PropertyOverview, error) {
	property, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return PropertyOverview{}, mapStoreErr(err, "property not found")
	}

	overview := PropertyOverview{Property: property}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overview.Interests, err = s.store.ListInterestsForProperty(gctx, propertyID)
		return err
	})
	g.Go(func() error {
		pipeline, err := s.store.GetPipelineByProperty(gctx, propertyID)
		switch err {
		case nil:
			overview.Pipeline = &pipeline
			return nil
		case repository.ErrPipelineNotFound:
			// no handover yet
			return nil
		default:
			return err
		}
	})
	g.Go(func() error {
		var err error
		overview.Installments, err = s.store.ListInstallments(gctx, propertyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return PropertyOverview{}, err
	}

	return overview, nil
}

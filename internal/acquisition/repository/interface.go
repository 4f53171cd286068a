package repository

import (
	"context"
	"time"

	"propsales_backend/internal/acquisition/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// PropertyReader provides read access to property rows.
type PropertyReader interface {
	GetProperty(ctx context.Context, id uuid.UUID) (Property, error)
}

// PropertyLocker owns every conditional write on the contended property
// fields. Implementations must guarantee that each method is a single
// atomic compare-and-swap statement.
type PropertyLocker interface {
	ClaimCommitment(ctx context.Context, propertyID, clientID uuid.UUID, expectedCommitted *uuid.UUID, now time.Time) error
	ReleaseCommitment(ctx context.Context, propertyID, clientID uuid.UUID) error
	ReserveProperty(ctx context.Context, propertyID, clientID uuid.UUID) error
	ClearReservation(ctx context.Context, propertyID, clientID uuid.UUID) error
	SetHandoverStatusIf(ctx context.Context, propertyID uuid.UUID, from []domain.HandoverStatus, to domain.HandoverStatus) error
	RevertHandoverStatus(ctx context.Context, propertyID uuid.UUID, current, prior domain.HandoverStatus) error
	SetSubdivisionStatusIf(ctx context.Context, propertyID uuid.UUID, expected, target domain.SubdivisionStatus, allowedHandover []domain.HandoverStatus) error
}

// InterestStore provides access to client property interests.
type InterestStore interface {
	GetInterest(ctx context.Context, clientID, propertyID uuid.UUID) (Interest, error)
	ListInterestsForProperty(ctx context.Context, propertyID uuid.UUID) ([]Interest, error)
	UpsertActiveInterest(ctx context.Context, clientID, propertyID uuid.UUID) (Interest, error)
	UpdateInterestStatusIf(ctx context.Context, id uuid.UUID, from []domain.InterestStatus, to domain.InterestStatus, note *string) error
	MarkCommitted(ctx context.Context, id uuid.UUID, agreedPriceCents int64) (Interest, error)
	SetAgreementSigned(ctx context.Context, id uuid.UUID, signedAt time.Time) (Interest, error)
	MarkConverted(ctx context.Context, id uuid.UUID, depositCents int64, reference string, paidAt, verifiedAt time.Time) (Interest, error)
	DeactivateCompetingInterests(ctx context.Context, propertyID, winnerClientID uuid.UUID, note string) (int64, error)
	GetHandoverCandidate(ctx context.Context, propertyID, clientID uuid.UUID) (Interest, error)
}

// PipelineStore provides access to handover pipeline rows.
type PipelineStore interface {
	CreatePipeline(ctx context.Context, params CreatePipelineParams) (HandoverPipeline, error)
	GetPipelineByProperty(ctx context.Context, propertyID uuid.UUID) (HandoverPipeline, error)
	AdvancePipeline(ctx context.Context, id uuid.UUID, expectedStage, newStage, newProgress int, stages []domain.PipelineStage, status domain.HandoverStatus) (HandoverPipeline, error)
}

// InstallmentLedger provides append and verify operations on the payment
// installment ledger.
type InstallmentLedger interface {
	AppendInstallment(ctx context.Context, params AppendInstallmentParams) (PaymentInstallment, error)
	VerifyInstallment(ctx context.Context, id uuid.UUID, verifiedBy string, verifiedAt time.Time) (PaymentInstallment, error)
	ListInstallments(ctx context.Context, propertyID uuid.UUID) ([]PaymentInstallment, error)
}

// Store is the full ledger store surface the acquisition services depend on.
type Store interface {
	PropertyReader
	PropertyLocker
	InterestStore
	PipelineStore
	InstallmentLedger
}

var _ Store = (*Repository)(nil)

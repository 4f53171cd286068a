// Package transport defines the request and response shapes of the
// acquisition HTTP API.
package transport

import (
	"time"

	"propsales_backend/internal/acquisition/domain"
	"propsales_backend/internal/acquisition/repository"

	"github.com/google/uuid"
)

// =============================================================================
// Requests
// =============================================================================

type SignAgreementRequest struct {
	Signature string `json:"signature" validate:"required,min=2,max=200"`
}

type PayDepositRequest struct {
	AmountCents int64  `json:"amountCents" validate:"required,gt=0"`
	Method      string `json:"method" validate:"required,oneof=mpesa bank card"`
	Reference   string `json:"reference" validate:"required,min=4,max=64"`
}

type StartHandoverRequest struct {
	ClientID string `json:"clientId" validate:"required,uuid"`
}

type SetSubdivisionRequest struct {
	Status string `json:"status" validate:"required,oneof=NOT_STARTED SUB_DIVISION_STARTED SUBDIVIDED"`
}

// =============================================================================
// Responses
// =============================================================================

type InterestResponse struct {
	ID                uuid.UUID  `json:"id"`
	ClientID          uuid.UUID  `json:"clientId"`
	PropertyID        uuid.UUID  `json:"propertyId"`
	Status            string     `json:"status"`
	AgreedPriceCents  *int64     `json:"agreedPriceCents,omitempty"`
	DepositCents      *int64     `json:"depositCents,omitempty"`
	DepositPaidAt     *time.Time `json:"depositPaidAt,omitempty"`
	PaymentReference  *string    `json:"paymentReference,omitempty"`
	AgreementSignedAt *time.Time `json:"agreementSignedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func ToInterestResponse(i repository.Interest) InterestResponse {
	return InterestResponse{
		ID:                i.ID,
		ClientID:          i.ClientID,
		PropertyID:        i.PropertyID,
		Status:            string(i.Status),
		AgreedPriceCents:  i.AgreedPriceCents,
		DepositCents:      i.DepositAmountCents,
		DepositPaidAt:     i.DepositPaidAt,
		PaymentReference:  i.PaymentReference,
		AgreementSignedAt: i.AgreementSignedAt,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
}

type PropertyResponse struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	AskingPriceCents  int64      `json:"askingPriceCents"`
	HandoverStatus    string     `json:"handoverStatus"`
	SubdivisionStatus string     `json:"subdivisionStatus"`
	Reserved          bool       `json:"reserved"`
	CommittedClientID *uuid.UUID `json:"committedClientId,omitempty"`
	CommitmentDate    *time.Time `json:"commitmentDate,omitempty"`
}

func ToPropertyResponse(p repository.Property) PropertyResponse {
	return PropertyResponse{
		ID:                p.ID,
		Name:              p.Name,
		AskingPriceCents:  p.AskingPriceCents,
		HandoverStatus:    string(p.HandoverStatus),
		SubdivisionStatus: string(p.SubdivisionStatus),
		Reserved:          p.ReservationStatus != nil,
		CommittedClientID: p.CommittedClientID,
		CommitmentDate:    p.CommitmentDate,
	}
}

type PipelineResponse struct {
	ID              uuid.UUID              `json:"id"`
	PropertyID      uuid.UUID              `json:"propertyId"`
	ClientID        uuid.UUID              `json:"clientId"`
	CurrentStage    int                    `json:"currentStage"`
	OverallProgress int                    `json:"overallProgress"`
	HandoverStatus  string                 `json:"handoverStatus"`
	Stages          []domain.PipelineStage `json:"stages"`
}

func ToPipelineResponse(p repository.HandoverPipeline) PipelineResponse {
	return PipelineResponse{
		ID:              p.ID,
		PropertyID:      p.PropertyID,
		ClientID:        p.ClientID,
		CurrentStage:    p.CurrentStage,
		OverallProgress: p.OverallProgress,
		HandoverStatus:  string(p.HandoverStatus),
		Stages:          p.Stages,
	}
}

type StartHandoverResponse struct {
	Pipeline          PipelineResponse `json:"pipeline"`
	AlreadyInProgress bool             `json:"alreadyInProgress"`
}

type InstallmentResponse struct {
	ID                uuid.UUID  `json:"id"`
	InstallmentNumber int        `json:"installmentNumber"`
	AmountCents       int64      `json:"amountCents"`
	Method            string     `json:"method"`
	Reference         string     `json:"reference"`
	Status            string     `json:"status"`
	VerifiedAt        *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func ToInstallmentResponse(i repository.PaymentInstallment) InstallmentResponse {
	return InstallmentResponse{
		ID:                i.ID,
		InstallmentNumber: i.InstallmentNumber,
		AmountCents:       i.AmountCents,
		Method:            i.Method,
		Reference:         i.Reference,
		Status:            i.Status,
		VerifiedAt:        i.VerifiedAt,
		CreatedAt:         i.CreatedAt,
	}
}

type PayDepositResponse struct {
	Interest    InterestResponse    `json:"interest"`
	Installment InstallmentResponse `json:"installment"`
	Pending     bool                `json:"pending"`
}

type PropertyOverviewResponse struct {
	Property     PropertyResponse      `json:"property"`
	Interests    []InterestResponse    `json:"interests"`
	Pipeline     *PipelineResponse     `json:"pipeline,omitempty"`
	Installments []InstallmentResponse `json:"installments"`
}

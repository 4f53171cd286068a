// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"propsales_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Acquisition Domain Events
// =============================================================================

// InterestExpressed is published when a client expresses or reactivates
// interest in a property.
type InterestExpressed struct {
	BaseEvent
	InterestID  uuid.UUID `json:"interestId"`
	ClientID    uuid.UUID `json:"clientId"`
	PropertyID  uuid.UUID `json:"propertyId"`
	Reactivated bool      `json:"reactivated"`
}

func (e InterestExpressed) EventName() string { return "acquisition.interest.expressed" }

// InterestCancelled is published when a client withdraws an interest or
// reservation.
type InterestCancelled struct {
	BaseEvent
	InterestID uuid.UUID `json:"interestId"`
	ClientID   uuid.UUID `json:"clientId"`
	PropertyID uuid.UUID `json:"propertyId"`
}

func (e InterestCancelled) EventName() string { return "acquisition.interest.cancelled" }

// PropertyReserved is published when a client places the active reservation
// on a property.
type PropertyReserved struct {
	BaseEvent
	InterestID uuid.UUID `json:"interestId"`
	ClientID   uuid.UUID `json:"clientId"`
	PropertyID uuid.UUID `json:"propertyId"`
}

func (e PropertyReserved) EventName() string { return "acquisition.property.reserved" }

// PropertyCommitted is published when a client wins the commitment lock on a
// property.
type PropertyCommitted struct {
	BaseEvent
	InterestID       uuid.UUID `json:"interestId"`
	ClientID         uuid.UUID `json:"clientId"`
	PropertyID       uuid.UUID `json:"propertyId"`
	AgreedPriceCents int64     `json:"agreedPriceCents"`
}

func (e PropertyCommitted) EventName() string { return "acquisition.property.committed" }

// AgreementSigned is published when a committed client signs the purchase
// agreement.
type AgreementSigned struct {
	BaseEvent
	InterestID uuid.UUID `json:"interestId"`
	ClientID   uuid.UUID `json:"clientId"`
	PropertyID uuid.UUID `json:"propertyId"`
}

func (e AgreementSigned) EventName() string { return "acquisition.agreement.signed" }

// DepositVerified is published when a deposit payment verifies and the
// interest converts.
type DepositVerified struct {
	BaseEvent
	InterestID        uuid.UUID `json:"interestId"`
	ClientID          uuid.UUID `json:"clientId"`
	PropertyID        uuid.UUID `json:"propertyId"`
	AmountCents       int64     `json:"amountCents"`
	InstallmentNumber int       `json:"installmentNumber"`
	Reference         string    `json:"reference"`
}

func (e DepositVerified) EventName() string { return "acquisition.deposit.verified" }

// HandoverStarted is published when the handover pipeline is created for a
// property.
type HandoverStarted struct {
	BaseEvent
	PipelineID   uuid.UUID `json:"pipelineId"`
	ClientID     uuid.UUID `json:"clientId"`
	PropertyID   uuid.UUID `json:"propertyId"`
	CurrentStage int       `json:"currentStage"`
	TriggerEvent string    `json:"triggerEvent"`
}

func (e HandoverStarted) EventName() string { return "acquisition.handover.started" }

// HandoverStageAdvanced is published when a handover pipeline stage completes.
type HandoverStageAdvanced struct {
	BaseEvent
	PipelineID      uuid.UUID `json:"pipelineId"`
	ClientID        uuid.UUID `json:"clientId"`
	PropertyID      uuid.UUID `json:"propertyId"`
	CompletedStage  int       `json:"completedStage"`
	CurrentStage    int       `json:"currentStage"`
	OverallProgress int       `json:"overallProgress"`
	Completed       bool      `json:"completed"`
}

func (e HandoverStageAdvanced) EventName() string { return "acquisition.handover.stage_advanced" }

// SubdivisionStatusChanged is published when a property's subdivision status
// transitions through the mutual-exclusion gate.
type SubdivisionStatusChanged struct {
	BaseEvent
	PropertyID uuid.UUID `json:"propertyId"`
	From       string    `json:"from"`
	To         string    `json:"to"`
}

func (e SubdivisionStatusChanged) EventName() string { return "acquisition.subdivision.changed" }

// NotificationOutboxDue is published by the scheduler worker when an outbox
// record's run_at has passed and the record should be processed.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
	ClientID uuid.UUID `json:"clientId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }

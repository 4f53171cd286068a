package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propsales_backend/internal/acquisition/domain"
	"propsales_backend/internal/acquisition/repository"
	"propsales_backend/internal/events"
	"propsales_backend/internal/payments"
	"propsales_backend/platform/apperr"

	"github.com/google/uuid"
)

// ExpressInterest records a client's interest in a property, reactivating a
// previously cancelled interest when one exists. Idempotent per
// (client, property): re-expressing over a live interest is a conflict.
func (s *Service) ExpressInterest(ctx context.Context, clientID, propertyID uuid.UUID) (repository.Interest, error) {
	property, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return repository.Interest{}, mapStoreErr(err, msgPropertyNotFound)
	}

	if !domain.PropertyOpenForInterest(property.HandoverStatus, property.SubdivisionStatus) {
		return repository.Interest{}, apperr.Unavailable(msgPropertyUnavailable)
	}
	if property.CommittedClientID != nil && *property.CommittedClientID != clientID {
		return repository.Interest{}, apperr.Unavailable("this property is already committed to another client")
	}

	interest, err := s.store.UpsertActiveInterest(ctx, clientID, propertyID)
	if err != nil {
		if errors.Is(err, repository.ErrInterestNotDormant) {
			return repository.Interest{}, apperr.Conflict(msgAlreadyInterested)
		}
		return repository.Interest{}, mapStoreErr(err, msgPropertyNotFound)
	}

	reactivated := interest.UpdatedAt.After(interest.CreatedAt)
	s.log.StateTransition("interest", interest.ID.String(), string(domain.InterestInactive), string(domain.InterestActive))
	s.bus.Publish(ctx, events.InterestExpressed{
		BaseEvent:   events.NewBaseEvent(),
		InterestID:  interest.ID,
		ClientID:    clientID,
		PropertyID:  propertyID,
		Reactivated: reactivated,
	})
	return interest, nil
}

// ReserveProperty places the property's single active reservation for the
// client. The property-side conditional write is the lock; the interest flip
// is compensated if it cannot follow.
func (s *Service) ReserveProperty(ctx context.Context, clientID, propertyID uuid.UUID) (repository.Interest, error) {
	interest, err := s.store.GetInterest(ctx, clientID, propertyID)
	if err != nil {
		return repository.Interest{}, mapStoreErr(err, msgNoInterest)
	}
	if interest.Status != domain.InterestActive {
		return repository.Interest{}, apperr.Unavailable("only an active interest can be reserved")
	}

	if err := s.store.ReserveProperty(ctx, propertyID, clientID); err != nil {
		if errors.Is(err, repository.ErrStaleRead) {
			return repository.Interest{}, apperr.Conflict("this property was just reserved by another client")
		}
		return repository.Interest{}, mapStoreErr(err, msgPropertyNotFound)
	}

	sg := newSaga("reserve_property", s.log)
	sg.push("reserve_property", func(ctx context.Context) error {
		return s.store.ClearReservation(ctx, propertyID, clientID)
	})

	if err := s.store.UpdateInterestStatusIf(ctx, interest.ID, []domain.InterestStatus{domain.InterestActive}, domain.InterestReserved, nil); err != nil {
		sg.rollback(ctx)
		return repository.Interest{}, mapStoreErr(err, msgNoInterest)
	}

	interest.Status = domain.InterestReserved
	s.log.StateTransition("interest", interest.ID.String(), string(domain.InterestActive), string(domain.InterestReserved))
	s.bus.Publish(ctx, events.PropertyReserved{
		BaseEvent:  events.NewBaseEvent(),
		InterestID: interest.ID,
		ClientID:   clientID,
		PropertyID: propertyID,
	})
	return interest, nil
}

// CancelInterest deactivates a client's interest and releases any
// reservation they hold. Committed and later interests cannot be cancelled
// here; that is an administrative action.
func (s *Service) CancelInterest(ctx context.Context, clientID, propertyID uuid.UUID) error {
	property, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return mapStoreErr(err, msgPropertyNotFound)
	}
	if property.CommittedClientID != nil && *property.CommittedClientID == clientID {
		return apperr.Unavailable("a committed interest cannot be cancelled")
	}

	interest, err := s.store.GetInterest(ctx, clientID, propertyID)
	if err != nil {
		return mapStoreErr(err, msgNoInterest)
	}
	if !interest.Status.Cancellable() {
		return apperr.Unavailable(fmt.Sprintf("an interest in status %s cannot be cancelled", interest.Status))
	}

	note := "Cancelled by client"
	if err := s.store.UpdateInterestStatusIf(ctx, interest.ID,
		[]domain.InterestStatus{domain.InterestActive, domain.InterestReserved},
		domain.InterestInactive, &note); err != nil {
		return mapStoreErr(err, msgNoInterest)
	}

	// Reservation release is secondary bookkeeping: the interest is already
	// INACTIVE, so a lost race here only leaves a stale reservation marker.
	if property.ReservedBy != nil && *property.ReservedBy == clientID {
		if err := s.store.ClearReservation(ctx, propertyID, clientID); err != nil && !errors.Is(err, repository.ErrStaleRead) {
			s.log.Warn("failed to clear reservation after cancellation", "propertyId", propertyID, "error", err)
		}
	}

	s.log.StateTransition("interest", interest.ID.String(), string(interest.Status), string(domain.InterestInactive))
	s.bus.Publish(ctx, events.InterestCancelled{
		BaseEvent:  events.NewBaseEvent(),
		InterestID: interest.ID,
		ClientID:   clientID,
		PropertyID: propertyID,
	})
	return nil
}

// SignAgreement attaches the signature to a committed interest. The typed
// signature must match the client's registered full name, ignoring case.
func (s *Service) SignAgreement(ctx context.Context, clientID, propertyID uuid.UUID, signature string) (repository.Interest, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return repository.Interest{}, apperr.NotFound(msgClientNotFound)
	}

	interest, err := s.store.GetInterest(ctx, clientID, propertyID)
	if err != nil {
		return repository.Interest{}, mapStoreErr(err, msgNoInterest)
	}
	if interest.Status != domain.InterestCommitted {
		return repository.Interest{}, apperr.Unavailable("the agreement can only be signed after committing to the property")
	}

	if !domain.SignatureMatchesName(signature, client.FullName) {
		return repository.Interest{}, apperr.Validation("signature must match your registered full name").
			WithDetails(map[string]string{"field": "signature"})
	}

	signed, err := s.store.SetAgreementSigned(ctx, interest.ID, time.Now().UTC())
	if err != nil {
		return repository.Interest{}, mapStoreErr(err, msgNoInterest)
	}

	s.bus.Publish(ctx, events.AgreementSigned{
		BaseEvent:  events.NewBaseEvent(),
		InterestID: signed.ID,
		ClientID:   clientID,
		PropertyID: propertyID,
	})
	return signed, nil
}

// PayDepositResult reports what the deposit payment achieved. Pending means
// the gateway has not settled the reference yet: the installment is on the
// ledger but the interest has not converted.
type PayDepositResult struct {
	Interest    repository.Interest
	Installment repository.PaymentInstallment
	Pending     bool
}

// PayDeposit verifies a deposit payment against the gateway and, on
// settlement, converts the interest and starts the handover pipeline. The
// amount must be within rounding tolerance of 10% of the agreed price.
func (s *Service) PayDeposit(ctx context.Context, clientID, propertyID uuid.UUID, amountCents int64, method, reference string) (PayDepositResult, error) {
	interest, err := s.store.GetInterest(ctx, clientID, propertyID)
	if err != nil {
		return PayDepositResult{}, mapStoreErr(err, msgNoInterest)
	}

	switch {
	case interest.Status == domain.InterestConverted || interest.Status == domain.InterestInHandover:
		return PayDepositResult{}, apperr.Conflict("the deposit for this property has already been verified")
	case interest.Status != domain.InterestCommitted:
		return PayDepositResult{}, apperr.Unavailable("the deposit can only be paid after committing to the property")
	case interest.AgreementSignedAt == nil:
		return PayDepositResult{}, apperr.Unavailable("the purchase agreement must be signed before paying the deposit")
	case interest.AgreedPriceCents == nil:
		return PayDepositResult{}, apperr.Internal("committed interest has no agreed price")
	}

	if !domain.DepositWithinTolerance(amountCents, *interest.AgreedPriceCents) {
		return PayDepositResult{}, apperr.Validation("deposit amount must be 10% of the agreed price").
			WithDetails(map[string]int64{"requiredCents": domain.RequiredDepositCents(*interest.AgreedPriceCents)})
	}

	settlement, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return PayDepositResult{}, apperr.Wrap(apperr.KindInternal, "payment gateway verification failed", err)
	}

	now := time.Now().UTC()

	if settlement.Status == payments.SettlementPending {
		installment, err := s.store.AppendInstallment(ctx, repository.AppendInstallmentParams{
			PropertyID:  propertyID,
			ClientID:    clientID,
			AmountCents: amountCents,
			Method:      method,
			Reference:   reference,
			Status:      repository.InstallmentPending,
		})
		if err != nil {
			return PayDepositResult{}, mapStoreErr(err, msgNoInterest)
		}
		return PayDepositResult{Interest: interest, Installment: installment, Pending: true}, nil
	}

	converted, err := s.store.MarkConverted(ctx, interest.ID, amountCents, reference, now, now)
	if err != nil {
		return PayDepositResult{}, mapStoreErr(err, msgNoInterest)
	}

	verifiedBy := "payment-gateway"
	installment, err := s.store.AppendInstallment(ctx, repository.AppendInstallmentParams{
		PropertyID:  propertyID,
		ClientID:    clientID,
		AmountCents: amountCents,
		Method:      method,
		Reference:   reference,
		Status:      repository.InstallmentVerified,
		VerifiedBy:  &verifiedBy,
		VerifiedAt:  &now,
	})
	if err != nil {
		// The conversion is the primary transition and it is durable. A
		// missing ledger row is reconciled from the interest's payment
		// fields, so surface the failure without rolling the conversion back.
		return PayDepositResult{}, apperr.Wrap(apperr.KindInternal, "failed to append payment installment", err)
	}

	s.log.StateTransition("interest", converted.ID.String(), string(domain.InterestCommitted), string(domain.InterestConverted))
	s.bus.Publish(ctx, events.DepositVerified{
		BaseEvent:         events.NewBaseEvent(),
		InterestID:        converted.ID,
		ClientID:          clientID,
		PropertyID:        propertyID,
		AmountCents:       amountCents,
		InstallmentNumber: installment.InstallmentNumber,
		Reference:         reference,
	})

	// Conversion is the terminal precondition for handover: hand off to the
	// orchestrator. Its failure does not undo the conversion; a caller retry
	// of startHandover is idempotent.
	if _, err := s.StartHandover(ctx, propertyID, clientID, "deposit_paid"); err != nil {
		s.log.Warn("handover start after conversion failed", "propertyId", propertyID, "error", err)
	}

	return PayDepositResult{Interest: converted, Installment: installment}, nil
}

// ConfirmDeposit re-checks a deposit that the gateway previously reported as
// pending. When the settlement has since completed, the pending ledger row is
// verified in place and the interest converts; no second installment is
// appended. If the gateway still reports pending, the caller gets the same
// Pending result PayDeposit returned.
func (s *Service) ConfirmDeposit(ctx context.Context, clientID, propertyID uuid.UUID) (PayDepositResult, error) {
	interest, err := s.store.GetInterest(ctx, clientID, propertyID)
	if err != nil {
		return PayDepositResult{}, mapStoreErr(err, msgNoInterest)
	}

	switch {
	case interest.Status == domain.InterestConverted || interest.Status == domain.InterestInHandover:
		return PayDepositResult{}, apperr.Conflict("the deposit for this property has already been verified")
	case interest.Status != domain.InterestCommitted:
		return PayDepositResult{}, apperr.Unavailable("there is no deposit awaiting verification for this property")
	}

	installments, err := s.store.ListInstallments(ctx, propertyID)
	if err != nil {
		return PayDepositResult{}, apperr.Wrap(apperr.KindInternal, "failed to load payment installments", err)
	}

	var pending *repository.PaymentInstallment
	for i := range installments {
		if installments[i].ClientID == clientID && installments[i].Status == repository.InstallmentPending {
			pending = &installments[i]
		}
	}
	if pending == nil {
		return PayDepositResult{}, apperr.NotFound("no pending deposit payment to confirm")
	}

	settlement, err := s.gateway.Verify(ctx, pending.Reference)
	if err != nil {
		return PayDepositResult{}, apperr.Wrap(apperr.KindInternal, "payment gateway verification failed", err)
	}
	if settlement.Status == payments.SettlementPending {
		return PayDepositResult{Interest: interest, Installment: *pending, Pending: true}, nil
	}

	now := time.Now().UTC()

	verified, err := s.store.VerifyInstallment(ctx, pending.ID, "payment-gateway", now)
	if err != nil {
		return PayDepositResult{}, mapStoreErr(err, "the pending installment was already resolved")
	}

	converted, err := s.store.MarkConverted(ctx, interest.ID, verified.AmountCents, verified.Reference, now, now)
	if err != nil {
		return PayDepositResult{}, mapStoreErr(err, msgNoInterest)
	}

	s.log.StateTransition("interest", converted.ID.String(), string(domain.InterestCommitted), string(domain.InterestConverted))
	s.bus.Publish(ctx, events.DepositVerified{
		BaseEvent:         events.NewBaseEvent(),
		InterestID:        converted.ID,
		ClientID:          clientID,
		PropertyID:        propertyID,
		AmountCents:       verified.AmountCents,
		InstallmentNumber: verified.InstallmentNumber,
		Reference:         verified.Reference,
	})

	if _, err := s.StartHandover(ctx, propertyID, clientID, "deposit_paid"); err != nil {
		s.log.Warn("handover start after conversion failed", "propertyId", propertyID, "error", err)
	}

	return PayDepositResult{Interest: converted, Installment: verified}, nil
}

package service

import (
	"context"
	"errors"
	"time"

	"propsales_backend/internal/acquisition/domain"
	"propsales_backend/internal/acquisition/repository"
	"propsales_backend/internal/events"
	"propsales_backend/platform/apperr"

	"github.com/google/uuid"
)

// CommitProperty claims the exclusive commitment lock on a property for the
// client. The claim is a conditional write restating the committed_client_id
// observed here, so concurrent committers resolve to exactly one winner;
// losers get a conflict and must re-read. Re-committing an already won
// property is a no-op.
func (s *Service) CommitProperty(ctx context.Context, clientID, propertyID uuid.UUID) (repository.Interest, error) {
	property, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return repository.Interest{}, mapStoreErr(err, msgPropertyNotFound)
	}

	if property.CommittedClientID != nil && *property.CommittedClientID == clientID {
		interest, err := s.store.GetInterest(ctx, clientID, propertyID)
		if err != nil {
			return repository.Interest{}, mapStoreErr(err, msgNoInterest)
		}
		if interest.Status == domain.InterestCommitted || interest.Status == domain.InterestConverted || interest.Status == domain.InterestInHandover {
			return interest, nil
		}
		// Lock held but the interest never flipped: a previous commit saga
		// died between its two writes. Fall through and finish the flip.
	} else if property.CommittedClientID != nil {
		return repository.Interest{}, apperr.Conflict(msgPropertyTaken)
	}

	if !domain.CommitEligible(property.HandoverStatus) || property.SubdivisionStatus == domain.Subdivided {
		return repository.Interest{}, apperr.Unavailable(msgPropertyUnavailable)
	}
	if property.ReservedBy != nil && *property.ReservedBy != clientID {
		return repository.Interest{}, apperr.Unavailable("this property is reserved by another client")
	}

	interest, err := s.store.GetInterest(ctx, clientID, propertyID)
	if err != nil {
		return repository.Interest{}, mapStoreErr(err, msgNoInterest)
	}
	if interest.Status != domain.InterestActive && interest.Status != domain.InterestReserved {
		return repository.Interest{}, apperr.Unavailable("only an active or reserved interest can commit")
	}

	sg := newSaga("commit_property", s.log)

	if err := s.store.ClaimCommitment(ctx, propertyID, clientID, property.CommittedClientID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrStaleRead) {
			return repository.Interest{}, apperr.Conflict(msgPropertyTaken)
		}
		return repository.Interest{}, mapStoreErr(err, msgPropertyNotFound)
	}
	sg.push("claim_commitment", func(ctx context.Context) error {
		return s.store.ReleaseCommitment(ctx, propertyID, clientID)
	})

	committed, err := s.store.MarkCommitted(ctx, interest.ID, property.AskingPriceCents)
	if err != nil {
		sg.rollback(ctx)
		if errors.Is(err, repository.ErrStaleRead) {
			return repository.Interest{}, apperr.Conflict("your interest changed while committing, please retry")
		}
		return repository.Interest{}, mapStoreErr(err, msgNoInterest)
	}

	// Losing interests are swept best-effort; the lock itself already keeps
	// them from progressing, so a failure here only delays their notes.
	if n, err := s.store.DeactivateCompetingInterests(ctx, propertyID, clientID, "Property committed to another client"); err != nil {
		s.log.Warn("failed to deactivate competing interests", "propertyId", propertyID, "error", err)
	} else if n > 0 {
		s.log.Info("deactivated competing interests", "propertyId", propertyID, "count", n)
	}

	s.log.StateTransition("interest", committed.ID.String(), string(interest.Status), string(domain.InterestCommitted))
	s.bus.Publish(ctx, events.PropertyCommitted{
		BaseEvent:        events.NewBaseEvent(),
		InterestID:       committed.ID,
		ClientID:         clientID,
		PropertyID:       propertyID,
		AgreedPriceCents: property.AskingPriceCents,
	})
	return committed, nil
}

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

// StartHandoverResult reports the outcome of a handover start request.
// AlreadyInProgress means a pipeline existed before this call; that is a
// success for the caller, not an error, so retries stay safe.
type StartHandoverResult struct {
	Pipeline          repository.HandoverPipeline
	AlreadyInProgress bool
}

// StartHandover creates the handover pipeline for a property. The sequence
// is a saga: the property-level status flip commits first and is reverted if
// the pipeline insert cannot follow. The pipeline row's uniqueness on
// property_id makes the whole operation idempotent.
func (s *Service) StartHandover(ctx context.Context, propertyID, clientID uuid.UUID, trigger string) (StartHandoverResult, error) {
	property, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return StartHandoverResult{}, mapStoreErr(err, msgPropertyNotFound)
	}

	if existing, err := s.store.GetPipelineByProperty(ctx, propertyID); err == nil {
		return StartHandoverResult{Pipeline: existing, AlreadyInProgress: true}, nil
	} else if !errors.Is(err, repository.ErrPipelineNotFound) {
		return StartHandoverResult{}, mapStoreErr(err, msgPropertyNotFound)
	}

	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return StartHandoverResult{}, apperr.NotFound(msgClientNotFound)
	}

	interest, err := s.store.GetHandoverCandidate(ctx, propertyID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrInterestNotFound) {
			return StartHandoverResult{}, apperr.Unavailable("handover requires a committed or converted interest")
		}
		return StartHandoverResult{}, mapStoreErr(err, msgNoInterest)
	}

	if property.SubdivisionStatus == domain.SubdivisionStarted || property.SubdivisionStatus == domain.Subdivided {
		return StartHandoverResult{}, apperr.Unavailable("handover cannot start while the property is under subdivision")
	}

	sg := newSaga("start_handover", s.log)

	priorStatus := property.HandoverStatus
	if property.HandoverStatus != domain.HandoverInProgress {
		if !domain.CanStartHandover(property.HandoverStatus, property.SubdivisionStatus) {
			return StartHandoverResult{}, apperr.Unavailable(msgPropertyUnavailable)
		}
		err := s.store.SetHandoverStatusIf(ctx, propertyID,
			[]domain.HandoverStatus{domain.HandoverNotStarted, domain.HandoverAwaitingStart},
			domain.HandoverInProgress)
		if err != nil {
			if errors.Is(err, repository.ErrStaleRead) {
				return StartHandoverResult{}, apperr.Conflict("the property state changed while starting handover, please retry")
			}
			return StartHandoverResult{}, mapStoreErr(err, msgPropertyNotFound)
		}
		sg.push("set_handover_status", func(ctx context.Context) error {
			return s.store.RevertHandoverStatus(ctx, propertyID, domain.HandoverInProgress, priorStatus)
		})
	}

	seed := domain.SeedPipeline(
		interest.DepositPaidAt != nil || interest.Status == domain.InterestConverted,
		interest.AgreementSignedAt != nil,
		time.Now().UTC(),
	)

	pipeline, err := s.store.CreatePipeline(ctx, repository.CreatePipelineParams{
		PropertyID:      propertyID,
		ClientID:        clientID,
		CurrentStage:    seed.CurrentStage,
		OverallProgress: seed.OverallProgress,
		Stages:          seed.Stages,
	})
	if err != nil {
		if errors.Is(err, repository.ErrPipelineExists) {
			// Another starter won the insert race. Their pipeline stands, so
			// IN_PROGRESS is the correct property status no matter which call
			// wrote it; reverting here would strand a pipeline row on a
			// NOT_STARTED property.
			existing, getErr := s.store.GetPipelineByProperty(ctx, propertyID)
			if getErr != nil {
				return StartHandoverResult{}, mapStoreErr(getErr, msgPropertyNotFound)
			}
			return StartHandoverResult{Pipeline: existing, AlreadyInProgress: true}, nil
		}
		sg.rollback(ctx)
		return StartHandoverResult{}, apperr.Wrap(apperr.KindInternal, "failed to create handover pipeline", err)
	}

	// The interest flip is the last, least critical write. The pipeline is
	// already durable, so a failure here is logged and reconciled later.
	err = s.store.UpdateInterestStatusIf(ctx, interest.ID,
		[]domain.InterestStatus{domain.InterestCommitted, domain.InterestConverted},
		domain.InterestInHandover, nil)
	if err != nil {
		s.log.Warn("failed to move interest into handover", "interestId", interest.ID, "error", err)
	} else {
		s.log.StateTransition("interest", interest.ID.String(), string(interest.Status), string(domain.InterestInHandover))
	}

	s.log.StateTransition("property", propertyID.String(), string(priorStatus), string(domain.HandoverInProgress))
	s.bus.Publish(ctx, events.HandoverStarted{
		BaseEvent:    events.NewBaseEvent(),
		PipelineID:   pipeline.ID,
		ClientID:     clientID,
		PropertyID:   propertyID,
		CurrentStage: pipeline.CurrentStage,
		TriggerEvent: trigger,
	})
	return StartHandoverResult{Pipeline: pipeline}, nil
}

// AdvanceHandoverStage completes the pipeline's current stage and moves to
// the next one. Completing the final stage finishes the pipeline and flips
// the property to COMPLETED. The persist is conditional on the stage read
// here, so two concurrent advances apply exactly once.
func (s *Service) AdvanceHandoverStage(ctx context.Context, propertyID uuid.UUID) (repository.HandoverPipeline, error) {
	pipeline, err := s.store.GetPipelineByProperty(ctx, propertyID)
	if err != nil {
		return repository.HandoverPipeline{}, mapStoreErr(err, "no handover pipeline for this property")
	}
	if pipeline.HandoverStatus == domain.HandoverCompleted {
		return repository.HandoverPipeline{}, apperr.Unavailable("the handover pipeline is already complete")
	}

	now := time.Now().UTC()
	stages := make([]domain.PipelineStage, len(pipeline.Stages))
	copy(stages, pipeline.Stages)

	completedStages := 0
	for i := range stages {
		if stages[i].Number == pipeline.CurrentStage {
			stages[i].Completed = true
			if stages[i].StartedAt == nil {
				stages[i].StartedAt = &now
			}
			stages[i].CompletedAt = &now
		}
		if stages[i].Completed {
			completedStages++
		}
	}

	finished := pipeline.CurrentStage >= domain.StageCount
	newStage := pipeline.CurrentStage
	status := domain.HandoverInProgress
	if finished {
		status = domain.HandoverCompleted
	} else {
		newStage = pipeline.CurrentStage + 1
		for i := range stages {
			if stages[i].Number == newStage && stages[i].StartedAt == nil {
				stages[i].StartedAt = &now
			}
		}
	}

	updated, err := s.store.AdvancePipeline(ctx, pipeline.ID,
		pipeline.CurrentStage, newStage, domain.StageProgress(completedStages), stages, status)
	if err != nil {
		if errors.Is(err, repository.ErrStaleRead) {
			return repository.HandoverPipeline{}, apperr.Conflict("the pipeline advanced concurrently, please refresh")
		}
		return repository.HandoverPipeline{}, mapStoreErr(err, "no handover pipeline for this property")
	}

	if finished {
		err := s.store.SetHandoverStatusIf(ctx, propertyID,
			[]domain.HandoverStatus{domain.HandoverInProgress}, domain.HandoverCompleted)
		if err != nil && !errors.Is(err, repository.ErrStaleRead) {
			s.log.Warn("failed to mark property handover completed", "propertyId", propertyID, "error", err)
		}
		s.log.StateTransition("property", propertyID.String(), string(domain.HandoverInProgress), string(domain.HandoverCompleted))
	}

	s.bus.Publish(ctx, events.HandoverStageAdvanced{
		BaseEvent:       events.NewBaseEvent(),
		PipelineID:      updated.ID,
		ClientID:        updated.ClientID,
		PropertyID:      propertyID,
		CompletedStage:  pipeline.CurrentStage,
		CurrentStage:    updated.CurrentStage,
		OverallProgress: updated.OverallProgress,
		Completed:       finished,
	})
	return updated, nil
}

// SetSubdivisionStatus moves the property's subdivision state through the
// mutual-exclusion gate with handover. The store restates both the expected
// prior subdivision state and the allowed handover states in one statement.
func (s *Service) SetSubdivisionStatus(ctx context.Context, propertyID uuid.UUID, target domain.SubdivisionStatus) error {
	property, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return mapStoreErr(err, msgPropertyNotFound)
	}

	if !domain.CanTransitionSubdivision(property.SubdivisionStatus, target, property.HandoverStatus) {
		return apperr.Unavailable("subdivision cannot transition from " +
			string(property.SubdivisionStatus) + " to " + string(target) +
			" while handover is " + string(property.HandoverStatus))
	}

	allowedHandover := []domain.HandoverStatus{domain.HandoverNotStarted, domain.HandoverAwaitingStart}

	err = s.store.SetSubdivisionStatusIf(ctx, propertyID, property.SubdivisionStatus, target, allowedHandover)
	if err != nil {
		if errors.Is(err, repository.ErrStaleRead) {
			return apperr.Conflict("the property state changed concurrently, please retry")
		}
		return mapStoreErr(err, msgPropertyNotFound)
	}

	s.log.StateTransition("property", propertyID.String(), string(property.SubdivisionStatus), string(target))
	s.bus.Publish(ctx, events.SubdivisionStatusChanged{
		BaseEvent:  events.NewBaseEvent(),
		PropertyID: propertyID,
		From:       string(property.SubdivisionStatus),
		To:         string(target),
	})
	return nil
}

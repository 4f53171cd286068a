package service

import (
	"context"

	"propsales_backend/platform/logger"
)

// compensation is one undo action for a forward saga step that already
// committed.
type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// saga collects compensations as forward steps succeed and runs them in
// reverse when a later step fails. This replaces nested rollback handlers
// with a flat, auditable stack.
type saga struct {
	name          string
	log           *logger.Logger
	compensations []compensation
}

func newSaga(name string, log *logger.Logger) *saga {
	return &saga{name: name, log: log}
}

// push registers the undo for a forward step that just committed.
func (s *saga) push(step string, undo func(ctx context.Context) error) {
	s.compensations = append(s.compensations, compensation{step: step, undo: undo})
}

// rollback executes the recorded compensations in reverse order. Each
// compensation runs regardless of earlier compensation failures; a failed
// undo is logged and left for reconciliation rather than halting the rest.
func (s *saga) rollback(ctx context.Context) {
	for i := len(s.compensations) - 1; i >= 0; i-- {
		c := s.compensations[i]
		err := c.undo(context.WithoutCancel(ctx))
		s.log.Compensation(s.name, c.step, err)
	}
	s.compensations = nil
}

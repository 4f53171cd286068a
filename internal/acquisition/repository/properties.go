package repository

import (
	"context"
	"errors"
	"time"

	"propsales_backend/internal/acquisition/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Property struct {
	ID                uuid.UUID
	Name              string
	AskingPriceCents  int64
	HandoverStatus    domain.HandoverStatus
	SubdivisionStatus domain.SubdivisionStatus
	ReservationStatus *domain.ReservationStatus
	ReservedBy        *uuid.UUID
	CommittedClientID *uuid.UUID
	CommitmentDate    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const propertyColumns = `
	id, name, asking_price_cents, handover_status, subdivision_status,
	reservation_status, reserved_by, committed_client_id, commitment_date,
	created_at, updated_at`

func scanProperty(row pgx.Row) (Property, error) {
	var p Property
	err := row.Scan(
		&p.ID, &p.Name, &p.AskingPriceCents, &p.HandoverStatus, &p.SubdivisionStatus,
		&p.ReservationStatus, &p.ReservedBy, &p.CommittedClientID, &p.CommitmentDate,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, ErrPropertyNotFound
	}
	return p, err
}

func (r *Repository) GetProperty(ctx context.Context, id uuid.UUID) (Property, error) {
	return scanProperty(r.pool.QueryRow(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE id = $1
	`, id))
}

// ClaimCommitment writes the commitment lock with compare-and-swap semantics:
// the WHERE clause restates the committed_client_id observed by the caller's
// preceding read. A zero-row update means another writer claimed the property
// in between, and ErrStaleRead is returned.
func (r *Repository) ClaimCommitment(ctx context.Context, propertyID, clientID uuid.UUID, expectedCommitted *uuid.UUID, now time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties
		SET committed_client_id = $2,
			commitment_date = $3,
			reservation_status = NULL,
			reserved_by = NULL,
			updated_at = now()
		WHERE id = $1
			AND committed_client_id IS NOT DISTINCT FROM $4
			AND subdivision_status <> 'SUBDIVIDED'
	`, propertyID, clientID, now, expectedCommitted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRead
	}
	return nil
}

// ReleaseCommitment clears the commitment lock, conditional on the lock still
// being held by the given client. Used both for cancellation and for
// compensating a failed commit saga.
func (r *Repository) ReleaseCommitment(ctx context.Context, propertyID, clientID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties
		SET committed_client_id = NULL,
			commitment_date = NULL,
			updated_at = now()
		WHERE id = $1 AND committed_client_id = $2
	`, propertyID, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRead
	}
	return nil
}

// ReserveProperty places the single active reservation, conditional on no
// reservation and no commitment existing.
func (r *Repository) ReserveProperty(ctx context.Context, propertyID, clientID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties
		SET reservation_status = 'RESERVED',
			reserved_by = $2,
			updated_at = now()
		WHERE id = $1
			AND reservation_status IS NULL
			AND committed_client_id IS NULL
			AND handover_status IN ('NOT_STARTED', 'AWAITING_START')
			AND subdivision_status <> 'SUBDIVIDED'
	`, propertyID, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRead
	}
	return nil
}

// ClearReservation removes the reservation held by the given client.
func (r *Repository) ClearReservation(ctx context.Context, propertyID, clientID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties
		SET reservation_status = NULL,
			reserved_by = NULL,
			updated_at = now()
		WHERE id = $1 AND reserved_by = $2
	`, propertyID, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRead
	}
	return nil
}

// SetHandoverStatusIf moves handover_status from an expected prior value,
// re-checking the subdivision gate in the same statement.
func (r *Repository) SetHandoverStatusIf(ctx context.Context, propertyID uuid.UUID, from []domain.HandoverStatus, to domain.HandoverStatus) error {
	fromValues := make([]string, 0, len(from))
	for _, s := range from {
		fromValues = append(fromValues, string(s))
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties
		SET handover_status = $2, updated_at = now()
		WHERE id = $1
			AND handover_status = ANY($3)
			AND subdivision_status NOT IN ('SUB_DIVISION_STARTED', 'SUBDIVIDED')
	`, propertyID, string(to), fromValues)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRead
	}
	return nil
}

// RevertHandoverStatus restores a prior handover_status, conditional on the
// current value being the one the saga wrote. Compensation path only; the
// subdivision gate is deliberately not re-checked so a rollback always lands.
func (r *Repository) RevertHandoverStatus(ctx context.Context, propertyID uuid.UUID, current, prior domain.HandoverStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties
		SET handover_status = $3, updated_at = now()
		WHERE id = $1 AND handover_status = $2
	`, propertyID, string(current), string(prior))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRead
	}
	return nil
}

// SetSubdivisionStatusIf moves subdivision_status from an expected prior
// value, re-checking the handover gate in the same statement. The allowed
// handover states depend on the target and are passed in by the caller.
func (r *Repository) SetSubdivisionStatusIf(ctx context.Context, propertyID uuid.UUID, expected, target domain.SubdivisionStatus, allowedHandover []domain.HandoverStatus) error {
	handoverValues := make([]string, 0, len(allowedHandover))
	for _, s := range allowedHandover {
		handoverValues = append(handoverValues, string(s))
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties
		SET subdivision_status = $3, updated_at = now()
		WHERE id = $1
			AND subdivision_status = $2
			AND handover_status = ANY($4)
	`, propertyID, string(expected), string(target), handoverValues)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRead
	}
	return nil
}

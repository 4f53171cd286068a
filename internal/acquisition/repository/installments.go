package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PaymentInstallment struct {
	ID                uuid.UUID
	PropertyID        uuid.UUID
	ClientID          uuid.UUID
	InstallmentNumber int
	AmountCents       int64
	Method            string
	Reference         string
	Status            string
	VerifiedBy        *string
	VerifiedAt        *time.Time
	CreatedAt         time.Time
}

const (
	InstallmentPending  = "PENDING_VERIFICATION"
	InstallmentVerified = "VERIFIED"
)

type AppendInstallmentParams struct {
	PropertyID  uuid.UUID
	ClientID    uuid.UUID
	AmountCents int64
	Method      string
	Reference   string
	Status      string
	VerifiedBy  *string
	VerifiedAt  *time.Time
}

const installmentColumns = `
	id, property_id, client_id, installment_number, amount_cents,
	method, reference, status, verified_by, verified_at, created_at`

func scanInstallment(row pgx.Row) (PaymentInstallment, error) {
	var p PaymentInstallment
	err := row.Scan(
		&p.ID, &p.PropertyID, &p.ClientID, &p.InstallmentNumber, &p.AmountCents,
		&p.Method, &p.Reference, &p.Status, &p.VerifiedBy, &p.VerifiedAt, &p.CreatedAt,
	)
	return p, err
}

// AppendInstallment appends a ledger row with the next installment number
// for the property. The number is assigned inside the INSERT itself
// (max + 1 computed by the store, not the application), and the unique index
// on (property_id, installment_number) closes the remaining race: on a
// collision the statement is retried once with a fresh max.
func (r *Repository) AppendInstallment(ctx context.Context, params AppendInstallmentParams) (PaymentInstallment, error) {
	const insert = `
		INSERT INTO property_payment_installments
			(property_id, client_id, installment_number, amount_cents, method, reference, status, verified_by, verified_at)
		SELECT $1, $2, COALESCE(MAX(installment_number), 0) + 1, $3, $4, $5, $6, $7, $8
		FROM property_payment_installments
		WHERE property_id = $1
		RETURNING ` + installmentColumns

	row := r.pool.QueryRow(ctx, insert,
		params.PropertyID, params.ClientID, params.AmountCents,
		params.Method, params.Reference, params.Status, params.VerifiedBy, params.VerifiedAt,
	)
	installment, err := scanInstallment(row)
	if isUniqueViolation(err) {
		row = r.pool.QueryRow(ctx, insert,
			params.PropertyID, params.ClientID, params.AmountCents,
			params.Method, params.Reference, params.Status, params.VerifiedBy, params.VerifiedAt,
		)
		installment, err = scanInstallment(row)
	}
	return installment, err
}

// VerifyInstallment marks a pending installment verified. Verification is
// additive; a verified row is never mutated again.
func (r *Repository) VerifyInstallment(ctx context.Context, id uuid.UUID, verifiedBy string, verifiedAt time.Time) (PaymentInstallment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE property_payment_installments
		SET status = 'VERIFIED',
			verified_by = $2,
			verified_at = $3
		WHERE id = $1 AND status = 'PENDING_VERIFICATION'
		RETURNING `+installmentColumns+`
	`, id, verifiedBy, verifiedAt)

	installment, err := scanInstallment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return PaymentInstallment{}, ErrStaleRead
	}
	return installment, err
}

func (r *Repository) ListInstallments(ctx context.Context, propertyID uuid.UUID) ([]PaymentInstallment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+installmentColumns+`
		FROM property_payment_installments
		WHERE property_id = $1
		ORDER BY installment_number ASC
	`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	installments := make([]PaymentInstallment, 0)
	for rows.Next() {
		installment, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, installment)
	}
	return installments, rows.Err()
}

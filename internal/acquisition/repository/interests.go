package repository

import (
	"context"
	"errors"
	"time"

	"propsales_backend/internal/acquisition/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Interest struct {
	ID                   uuid.UUID
	ClientID             uuid.UUID
	PropertyID           uuid.UUID
	Status               domain.InterestStatus
	AgreedPriceCents     *int64
	DepositAmountCents   *int64
	DepositPaidAt        *time.Time
	PaymentReference     *string
	PaymentVerifiedAt    *time.Time
	AgreementGeneratedAt *time.Time
	AgreementSignedAt    *time.Time
	Notes                *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

const interestColumns = `
	id, client_id, property_id, status, agreed_price_cents,
	deposit_amount_cents, deposit_paid_at, payment_reference, payment_verified_at,
	agreement_generated_at, agreement_signed_at, notes, created_at, updated_at`

func scanInterest(row pgx.Row) (Interest, error) {
	var i Interest
	err := row.Scan(
		&i.ID, &i.ClientID, &i.PropertyID, &i.Status, &i.AgreedPriceCents,
		&i.DepositAmountCents, &i.DepositPaidAt, &i.PaymentReference, &i.PaymentVerifiedAt,
		&i.AgreementGeneratedAt, &i.AgreementSignedAt, &i.Notes, &i.CreatedAt, &i.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Interest{}, ErrInterestNotFound
	}
	return i, err
}

func (r *Repository) GetInterest(ctx context.Context, clientID, propertyID uuid.UUID) (Interest, error) {
	return scanInterest(r.pool.QueryRow(ctx, `
		SELECT `+interestColumns+`
		FROM client_property_interests
		WHERE client_id = $1 AND property_id = $2
	`, clientID, propertyID))
}

func (r *Repository) ListInterestsForProperty(ctx context.Context, propertyID uuid.UUID) ([]Interest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+interestColumns+`
		FROM client_property_interests
		WHERE property_id = $1
		ORDER BY created_at ASC
	`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	interests := make([]Interest, 0)
	for rows.Next() {
		i, err := scanInterest(rows)
		if err != nil {
			return nil, err
		}
		interests = append(interests, i)
	}
	return interests, rows.Err()
}

// UpsertActiveInterest creates the interest row for (client, property) or
// reactivates a dormant one. One row per pair ever exists; the conflict
// update only fires when the existing row is INACTIVE, so a live interest
// is never silently reset. No row back means the pair exists and is live.
func (r *Repository) UpsertActiveInterest(ctx context.Context, clientID, propertyID uuid.UUID) (Interest, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO client_property_interests (client_id, property_id, status)
		VALUES ($1, $2, 'ACTIVE')
		ON CONFLICT (client_id, property_id) DO UPDATE
		SET status = 'ACTIVE',
			agreed_price_cents = NULL,
			deposit_amount_cents = NULL,
			deposit_paid_at = NULL,
			payment_reference = NULL,
			payment_verified_at = NULL,
			agreement_generated_at = NULL,
			agreement_signed_at = NULL,
			notes = NULL,
			updated_at = now()
		WHERE client_property_interests.status = 'INACTIVE'
		RETURNING `+interestColumns+`
	`, clientID, propertyID)

	interest, err := scanInterest(row)
	if errors.Is(err, ErrInterestNotFound) {
		return Interest{}, ErrInterestNotDormant
	}
	return interest, err
}

// UpdateInterestStatusIf flips the interest status with compare-and-swap
// semantics on the expected prior status.
func (r *Repository) UpdateInterestStatusIf(ctx context.Context, id uuid.UUID, from []domain.InterestStatus, to domain.InterestStatus, note *string) error {
	fromValues := make([]string, 0, len(from))
	for _, s := range from {
		fromValues = append(fromValues, string(s))
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE client_property_interests
		SET status = $2,
			notes = COALESCE($3, notes),
			updated_at = now()
		WHERE id = $1 AND status = ANY($4)
	`, id, string(to), note, fromValues)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRead
	}
	return nil
}

// MarkCommitted flips an ACTIVE or RESERVED interest to COMMITTED and pins
// the agreed price, conditional on the prior status.
func (r *Repository) MarkCommitted(ctx context.Context, id uuid.UUID, agreedPriceCents int64) (Interest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE client_property_interests
		SET status = 'COMMITTED',
			agreed_price_cents = $2,
			updated_at = now()
		WHERE id = $1 AND status IN ('ACTIVE', 'RESERVED')
		RETURNING `+interestColumns+`
	`, id, agreedPriceCents)

	interest, err := scanInterest(row)
	if errors.Is(err, ErrInterestNotFound) {
		return Interest{}, ErrStaleRead
	}
	return interest, err
}

// SetAgreementSigned attaches signature metadata to a committed interest.
// The status does not change; signing gates the deposit step.
func (r *Repository) SetAgreementSigned(ctx context.Context, id uuid.UUID, signedAt time.Time) (Interest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE client_property_interests
		SET agreement_signed_at = $2,
			agreement_generated_at = COALESCE(agreement_generated_at, $2),
			updated_at = now()
		WHERE id = $1 AND status = 'COMMITTED'
		RETURNING `+interestColumns+`
	`, id, signedAt)

	interest, err := scanInterest(row)
	if errors.Is(err, ErrInterestNotFound) {
		return Interest{}, ErrStaleRead
	}
	return interest, err
}

// MarkConverted records the verified deposit and flips COMMITTED to
// CONVERTED in one conditional statement.
func (r *Repository) MarkConverted(ctx context.Context, id uuid.UUID, depositCents int64, reference string, paidAt, verifiedAt time.Time) (Interest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE client_property_interests
		SET status = 'CONVERTED',
			deposit_amount_cents = $2,
			payment_reference = $3,
			deposit_paid_at = $4,
			payment_verified_at = $5,
			updated_at = now()
		WHERE id = $1 AND status = 'COMMITTED'
		RETURNING `+interestColumns+`
	`, id, depositCents, reference, paidAt, verifiedAt)

	interest, err := scanInterest(row)
	if errors.Is(err, ErrInterestNotFound) {
		return Interest{}, ErrStaleRead
	}
	return interest, err
}

// DeactivateCompetingInterests forces every other live, pre-commitment
// interest on the property to INACTIVE with a system note. Returns how many
// rows were affected; the caller treats failure as non-fatal.
func (r *Repository) DeactivateCompetingInterests(ctx context.Context, propertyID, winnerClientID uuid.UUID, note string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE client_property_interests
		SET status = 'INACTIVE',
			notes = $3,
			updated_at = now()
		WHERE property_id = $1
			AND client_id <> $2
			AND status IN ('ACTIVE', 'RESERVED')
	`, propertyID, winnerClientID, note)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetHandoverCandidate returns the interest eligible to enter handover for
// the property and client, preferring CONVERTED over COMMITTED.
func (r *Repository) GetHandoverCandidate(ctx context.Context, propertyID, clientID uuid.UUID) (Interest, error) {
	return scanInterest(r.pool.QueryRow(ctx, `
		SELECT `+interestColumns+`
		FROM client_property_interests
		WHERE property_id = $1
			AND client_id = $2
			AND status IN ('COMMITTED', 'CONVERTED')
		ORDER BY CASE status WHEN 'CONVERTED' THEN 0 ELSE 1 END
		LIMIT 1
	`, propertyID, clientID))
}

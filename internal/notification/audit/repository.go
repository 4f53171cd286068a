// Package audit persists the property audit trail. Every lifecycle event is
// recorded best-effort; a failed audit write never fails the operation that
// produced it.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Entry struct {
	PropertyID uuid.UUID
	ClientID   *uuid.UUID
	EventType  string
	Details    map[string]any
}

type Row struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	ClientID   *uuid.UUID
	EventType  string
	Details    json.RawMessage
	CreatedAt  time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Record(ctx context.Context, entry Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO property_audit_log (property_id, client_id, event_type, details)
		 VALUES ($1, $2, $3, $4)`,
		entry.PropertyID, entry.ClientID, entry.EventType, details,
	)
	return err
}

func (r *Repository) ListForProperty(ctx context.Context, propertyID uuid.UUID, limit int) ([]Row, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, property_id, client_id, event_type, details, created_at
		 FROM property_audit_log
		 WHERE property_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		propertyID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Row, 0)
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.PropertyID, &row.ClientID, &row.EventType, &row.Details, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"propsales_backend/internal/acquisition/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type HandoverPipeline struct {
	ID              uuid.UUID
	PropertyID      uuid.UUID
	ClientID        uuid.UUID
	CurrentStage    int
	OverallProgress int
	Stages          []domain.PipelineStage
	HandoverStatus  domain.HandoverStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreatePipelineParams struct {
	PropertyID      uuid.UUID
	ClientID        uuid.UUID
	CurrentStage    int
	OverallProgress int
	Stages          []domain.PipelineStage
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanPipeline(row pgx.Row) (HandoverPipeline, error) {
	var p HandoverPipeline
	var stagesJSON []byte
	err := row.Scan(
		&p.ID, &p.PropertyID, &p.ClientID, &p.CurrentStage, &p.OverallProgress,
		&stagesJSON, &p.HandoverStatus, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return HandoverPipeline{}, ErrPipelineNotFound
	}
	if err != nil {
		return HandoverPipeline{}, err
	}
	if err := json.Unmarshal(stagesJSON, &p.Stages); err != nil {
		return HandoverPipeline{}, fmt.Errorf("decode pipeline stages: %w", err)
	}
	return p, nil
}

const pipelineColumns = `
	id, property_id, client_id, current_stage, overall_progress,
	pipeline_stages, handover_status, created_at, updated_at`

// CreatePipeline inserts the single pipeline row for a property. The unique
// index on property_id is the store-side idempotency guard: a second insert
// reports ErrPipelineExists instead of duplicating.
func (r *Repository) CreatePipeline(ctx context.Context, params CreatePipelineParams) (HandoverPipeline, error) {
	stagesJSON, err := json.Marshal(params.Stages)
	if err != nil {
		return HandoverPipeline{}, fmt.Errorf("encode pipeline stages: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO handover_pipeline
			(property_id, client_id, current_stage, overall_progress, pipeline_stages, handover_status)
		VALUES ($1, $2, $3, $4, $5, 'IN_PROGRESS')
		RETURNING `+pipelineColumns+`
	`, params.PropertyID, params.ClientID, params.CurrentStage, params.OverallProgress, stagesJSON)

	pipeline, err := scanPipeline(row)
	if isUniqueViolation(err) {
		return HandoverPipeline{}, ErrPipelineExists
	}
	return pipeline, err
}

func (r *Repository) GetPipelineByProperty(ctx context.Context, propertyID uuid.UUID) (HandoverPipeline, error) {
	return scanPipeline(r.pool.QueryRow(ctx, `
		SELECT `+pipelineColumns+`
		FROM handover_pipeline
		WHERE property_id = $1
	`, propertyID))
}

// AdvancePipeline persists a stage advance, conditional on the stage the
// caller read so concurrent advances cannot double-apply.
func (r *Repository) AdvancePipeline(ctx context.Context, id uuid.UUID, expectedStage, newStage, newProgress int, stages []domain.PipelineStage, status domain.HandoverStatus) (HandoverPipeline, error) {
	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return HandoverPipeline{}, fmt.Errorf("encode pipeline stages: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE handover_pipeline
		SET current_stage = $3,
			overall_progress = $4,
			pipeline_stages = $5,
			handover_status = $6,
			updated_at = now()
		WHERE id = $1 AND current_stage = $2
		RETURNING `+pipelineColumns+`
	`, id, expectedStage, newStage, newProgress, stagesJSON, string(status))

	pipeline, err := scanPipeline(row)
	if errors.Is(err, ErrPipelineNotFound) {
		return HandoverPipeline{}, ErrStaleRead
	}
	return pipeline, err
}

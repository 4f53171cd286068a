// Package repository is the persistence layer of the acquisition context.
// Every mutation of a contended property or interest field is a single
// conditional UPDATE whose WHERE clause restates the expected prior value,
// so concurrent writers are serialized by the store rather than by
// in-process locks. A zero-row update means the optimistic lock was lost.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPropertyNotFound   = errors.New("property not found")
	ErrInterestNotFound   = errors.New("interest not found")
	ErrPipelineNotFound   = errors.New("handover pipeline not found")
	ErrPipelineExists     = errors.New("handover pipeline already exists")
	ErrStaleRead          = errors.New("conditional update matched no rows")
	ErrInterestNotDormant = errors.New("interest is not inactive")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

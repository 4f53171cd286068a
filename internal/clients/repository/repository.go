// Package repository provides persistence for client records. The client row
// is the canonical identity used throughout the acquisition context: whatever
// auth identity sits in front of the API is resolved to a clients.id exactly
// once, at the HTTP boundary, and never inside the state machine.
package repository

import (
	"context"
	"errors"
	"time"

	"propsales_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("client not found")
	ErrEmailTaken = errors.New("client email already registered")
)

type Client struct {
	ID        uuid.UUID
	FullName  string
	Email     string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, full_name, email, phone, created_at, updated_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	return c, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = $1
	`, id))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE lower(email) = lower($1)
	`, email))
}

type CreateClientParams struct {
	FullName string
	Email    string
	Phone    string
}

func (r *Repository) Create(ctx context.Context, params CreateClientParams) (Client, error) {
	var phonePtr *string
	if normalized := phone.NormalizeE164(params.Phone); normalized != "" {
		phonePtr = &normalized
	}
	client, err := scanClient(r.pool.QueryRow(ctx, `
		INSERT INTO clients (full_name, email, phone)
		VALUES ($1, lower($2), $3)
		RETURNING `+clientColumns+`
	`, params.FullName, params.Email, phonePtr))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Client{}, ErrEmailTaken
		}
		return Client{}, err
	}
	return client, nil
}

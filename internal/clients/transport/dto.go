// Package transport defines the request and response shapes of the clients API.
package transport

import (
	"time"

	"propsales_backend/internal/clients/repository"

	"github.com/google/uuid"
)

type RegisterClientRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
}

type ClientResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func ToClientResponse(c repository.Client) ClientResponse {
	return ClientResponse{
		ID:        c.ID,
		FullName:  c.FullName,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"propsales_backend/internal/clients/service"
	"propsales_backend/internal/clients/transport"
	"propsales_backend/internal/http/middleware"
	"propsales_backend/platform/httpkit"
	"propsales_backend/platform/validator"
)

// Handler handles HTTP requests for clients.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// New creates a new clients handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Register creates a client record.
// POST /api/v1/clients
func (h *Handler) Register(c *gin.Context) {
	var req transport.RegisterClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	client, err := h.svc.Register(c.Request.Context(), service.RegisterParams{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToClientResponse(client))
}

// GetProfile returns the resolved client's own record.
// GET /api/v1/clients/me
func (h *Handler) GetProfile(c *gin.Context) {
	clientID, ok := middleware.ClientID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "client identity missing", nil)
		return
	}

	client, err := h.svc.GetProfile(c.Request.Context(), clientID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToClientResponse(client))
}

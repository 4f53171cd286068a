package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"propsales_backend/internal/acquisition/domain"
	"propsales_backend/internal/acquisition/service"
	"propsales_backend/internal/acquisition/transport"
	"propsales_backend/internal/http/middleware"
	"propsales_backend/platform/httpkit"
	"propsales_backend/platform/validator"
)

// Handler handles HTTP requests for the acquisition flow.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid property id"
)

// New creates a new acquisition handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// clientIdentity reads the client id resolved by the ResolveClient
// middleware. A missing id means the route was mounted outside the
// client-scoped group.
func clientIdentity(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.ClientID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "client identity missing", nil)
	}
	return id, ok
}

func propertyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// GetProperty retrieves a property with its interests, pipeline and payments.
// GET /api/v1/properties/:id
func (h *Handler) GetProperty(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}

	overview, err := h.svc.GetPropertyOverview(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.PropertyOverviewResponse{
		Property:     transport.ToPropertyResponse(overview.Property),
		Interests:    make([]transport.InterestResponse, 0, len(overview.Interests)),
		Installments: make([]transport.InstallmentResponse, 0, len(overview.Installments)),
	}
	for _, i := range overview.Interests {
		resp.Interests = append(resp.Interests, transport.ToInterestResponse(i))
	}
	if overview.Pipeline != nil {
		p := transport.ToPipelineResponse(*overview.Pipeline)
		resp.Pipeline = &p
	}
	for _, inst := range overview.Installments {
		resp.Installments = append(resp.Installments, transport.ToInstallmentResponse(inst))
	}
	httpkit.OK(c, resp)
}

// ExpressInterest registers or reactivates the client's interest.
// POST /api/v1/properties/:id/interest
func (h *Handler) ExpressInterest(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	clientID, ok := clientIdentity(c)
	if !ok {
		return
	}

	interest, err := h.svc.ExpressInterest(c.Request.Context(), clientID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToInterestResponse(interest))
}

// CancelInterest withdraws the client's interest in a property.
// DELETE /api/v1/properties/:id/interest
func (h *Handler) CancelInterest(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	clientID, ok := clientIdentity(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.CancelInterest(c.Request.Context(), clientID, id)) {
		return
	}
	httpkit.OK(c, gin.H{"message": "interest cancelled"})
}

// ReserveProperty places a soft hold on the property for the client.
// POST /api/v1/properties/:id/reserve
func (h *Handler) ReserveProperty(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	clientID, ok := clientIdentity(c)
	if !ok {
		return
	}

	interest, err := h.svc.ReserveProperty(c.Request.Context(), clientID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToInterestResponse(interest))
}

// CommitProperty claims the exclusive commitment lock for the client.
// POST /api/v1/properties/:id/commit
func (h *Handler) CommitProperty(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	clientID, ok := clientIdentity(c)
	if !ok {
		return
	}

	interest, err := h.svc.CommitProperty(c.Request.Context(), clientID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToInterestResponse(interest))
}

// SignAgreement records the client's typed signature on the sale agreement.
// POST /api/v1/properties/:id/agreement
func (h *Handler) SignAgreement(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}

	var req transport.SignAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	clientID, ok := clientIdentity(c)
	if !ok {
		return
	}

	interest, err := h.svc.SignAgreement(c.Request.Context(), clientID, id, req.Signature)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToInterestResponse(interest))
}

// PayDeposit records and verifies a deposit payment against the agreed price.
// POST /api/v1/properties/:id/deposit
func (h *Handler) PayDeposit(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}

	var req transport.PayDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	clientID, ok := clientIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.PayDeposit(c.Request.Context(), clientID, id, req.AmountCents, req.Method, req.Reference)
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusOK
	if result.Pending {
		status = http.StatusAccepted
	}
	httpkit.JSON(c, status, transport.PayDepositResponse{
		Interest:    transport.ToInterestResponse(result.Interest),
		Installment: transport.ToInstallmentResponse(result.Installment),
		Pending:     result.Pending,
	})
}

// ConfirmDeposit re-checks a deposit the gateway previously left pending.
// POST /api/v1/properties/:id/deposit/confirm
func (h *Handler) ConfirmDeposit(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	clientID, ok := clientIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.ConfirmDeposit(c.Request.Context(), clientID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusOK
	if result.Pending {
		status = http.StatusAccepted
	}
	httpkit.JSON(c, status, transport.PayDepositResponse{
		Interest:    transport.ToInterestResponse(result.Interest),
		Installment: transport.ToInstallmentResponse(result.Installment),
		Pending:     result.Pending,
	})
}

// StartHandover kicks off the handover pipeline for a committed client.
// POST /api/v1/admin/properties/:id/handover
func (h *Handler) StartHandover(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}

	var req transport.StartHandoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, "clientId must be a uuid")
		return
	}

	result, err := h.svc.StartHandover(c.Request.Context(), id, clientID, "manual")
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusCreated
	if result.AlreadyInProgress {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, transport.StartHandoverResponse{
		Pipeline:          transport.ToPipelineResponse(result.Pipeline),
		AlreadyInProgress: result.AlreadyInProgress,
	})
}

// AdvanceHandoverStage completes the current pipeline stage.
// POST /api/v1/admin/properties/:id/handover/advance
func (h *Handler) AdvanceHandoverStage(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}

	pipeline, err := h.svc.AdvanceHandoverStage(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPipelineResponse(pipeline))
}

// SetSubdivisionStatus moves the property's subdivision workflow.
// PATCH /api/v1/admin/properties/:id/subdivision
func (h *Handler) SetSubdivisionStatus(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}

	var req transport.SetSubdivisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if httpkit.HandleError(c, h.svc.SetSubdivisionStatus(c.Request.Context(), id, domain.SubdivisionStatus(req.Status))) {
		return
	}
	httpkit.OK(c, gin.H{"propertyId": id, "subdivisionStatus": req.Status})
}

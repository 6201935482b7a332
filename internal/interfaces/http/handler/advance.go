package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	paymentapp "github.com/harvestpay/backend/internal/application/payment"
)

// AdvanceHandler handles standalone advance cheque API endpoints
type AdvanceHandler struct {
	BaseHandler
	advances *paymentapp.AdvanceService
}

// NewAdvanceHandler creates a new AdvanceHandler
func NewAdvanceHandler(advances *paymentapp.AdvanceService) *AdvanceHandler {
	return &AdvanceHandler{advances: advances}
}

// CancelAdvanceRequest represents a request to cancel an advance
type CancelAdvanceRequest struct {
	Reason            string `json:"reason" binding:"required,min=1,max=500"`
	ReverseAccounting bool   `json:"reverse_accounting"`
}

// Issue issues a standalone advance to a grower
func (h *AdvanceHandler) Issue(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	var req paymentapp.IssueAdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Actor = actor

	result, err := h.advances.IssueAdvance(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// Cancel voids an advance that has no active deductions against it
func (h *AdvanceHandler) Cancel(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid advance ID")
		return
	}

	var req CancelAdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.advances.CancelAdvance(c.Request.Context(), id, actor, req.Reason, req.ReverseAccounting)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, outcome)
}

// Deduct applies an operator-directed drawdown of an advance against a
// posted batch
func (h *AdvanceHandler) Deduct(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid advance ID")
		return
	}

	var req paymentapp.ApplyManualDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.AdvanceID = id
	req.Actor = actor

	record, err := h.advances.ApplyManualDeduction(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, record)
}

// GetByID retrieves an advance with its deduction history
func (h *AdvanceHandler) GetByID(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid advance ID")
		return
	}

	advance, deductions, err := h.advances.GetAdvance(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{
		"advance":    advance,
		"deductions": deductions,
	})
}

// ListByGrower retrieves a grower's advances with their balances
func (h *AdvanceHandler) ListByGrower(c *gin.Context) {
	growerID, err := uuid.Parse(c.Query("grower_id"))
	if err != nil {
		h.BadRequest(c, "Invalid or missing grower_id")
		return
	}

	summaries, err := h.advances.ListGrowerAdvances(c.Request.Context(), growerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summaries)
}

// RegisterRoutes registers advance routes
func (h *AdvanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	advances := rg.Group("/advances")
	{
		advances.POST("", h.Issue)
		advances.GET("", h.ListByGrower)
		advances.GET("/:id", h.GetByID)
		advances.POST("/:id/cancel", h.Cancel)
		advances.POST("/:id/deductions", h.Deduct)
	}
}

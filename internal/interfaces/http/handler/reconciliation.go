package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	paymentapp "github.com/harvestpay/backend/internal/application/payment"
	"github.com/harvestpay/backend/internal/domain/payment"
)

// ReconciliationHandler handles reconciliation and exception API endpoints
type ReconciliationHandler struct {
	BaseHandler
	reconciliation *paymentapp.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(reconciliation *paymentapp.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliation: reconciliation}
}

// ListExceptionsRequest represents exception list query parameters
type ListExceptionsRequest struct {
	Severity *string    `form:"severity" binding:"omitempty,oneof=WARNING ERROR CRITICAL"`
	Status   *string    `form:"status" binding:"omitempty,oneof=OPEN RESOLVED IGNORED"`
	BatchID  *uuid.UUID `form:"batch_id"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ValidateAdvances audits every active advance's outstanding balance
// against its deduction rows
func (h *ReconciliationHandler) ValidateAdvances(c *gin.Context) {
	report, err := h.reconciliation.ValidateAdvanceBalances(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// OrphanedDeductions finds active deductions whose advance or batch has
// been voided
func (h *ReconciliationHandler) OrphanedDeductions(c *gin.Context) {
	report, err := h.reconciliation.FindOrphanedDeductions(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// CorrectGrowerAdvances recomputes and overwrites a grower's outstanding
// advance balances from the active deduction rows
func (h *ReconciliationHandler) CorrectGrowerAdvances(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	growerID, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid grower ID")
		return
	}

	corrected, err := h.reconciliation.ReconcileAdvanceAmounts(c.Request.Context(), growerID, actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{
		"corrected": corrected,
	})
}

// ListExceptions retrieves recorded reconciliation exceptions
func (h *ReconciliationHandler) ListExceptions(c *gin.Context) {
	var req ListExceptionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, pageSize := req.Page, req.PageSize
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 20
	}

	filter := payment.ExceptionFilter{
		BatchID: req.BatchID,
		Offset:  (page - 1) * pageSize,
		Limit:   pageSize,
	}
	if req.Severity != nil {
		s := payment.ExceptionSeverity(*req.Severity)
		filter.Severity = &s
	}
	if req.Status != nil {
		s := payment.ExceptionStatus(*req.Status)
		filter.Status = &s
	}

	result, err := h.reconciliation.ListExceptions(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// AuditTrail retrieves the audit rows recorded against one entity
func (h *ReconciliationHandler) AuditTrail(c *gin.Context) {
	entityType := c.Param("entity_type")
	entityID, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid entity ID")
		return
	}

	logs, err := h.reconciliation.AuditTrail(c.Request.Context(), entityType, entityID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, logs)
}

// ResolveExceptionRequest represents a request to close an exception
type ResolveExceptionRequest struct {
	Note string `json:"note" binding:"required,min=1,max=500"`
}

// ResolveException closes an open exception with a resolution note
func (h *ReconciliationHandler) ResolveException(c *gin.Context) {
	h.closeException(c, h.reconciliation.ResolveException)
}

// IgnoreException closes an open exception without corrective action
func (h *ReconciliationHandler) IgnoreException(c *gin.Context) {
	h.closeException(c, h.reconciliation.IgnoreException)
}

func (h *ReconciliationHandler) closeException(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, actor, note string) (*payment.PaymentException, error)) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid exception ID")
		return
	}

	var req ResolveExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	exception, err := fn(c.Request.Context(), id, actor, req.Note)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, exception)
}

// RegisterRoutes registers reconciliation routes
func (h *ReconciliationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	recon := rg.Group("/reconciliation")
	{
		recon.GET("/advances", h.ValidateAdvances)
		recon.GET("/orphaned-deductions", h.OrphanedDeductions)
		recon.POST("/growers/:id/advances", h.CorrectGrowerAdvances)
		recon.GET("/exceptions", h.ListExceptions)
		recon.POST("/exceptions/:id/resolve", h.ResolveException)
		recon.POST("/exceptions/:id/ignore", h.IgnoreException)
	}
	rg.GET("/audit/:entity_type/:id", h.AuditTrail)
}

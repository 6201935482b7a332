package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	paymentapp "github.com/harvestpay/backend/internal/application/payment"
	"github.com/harvestpay/backend/internal/domain/payment"
)

// PaymentBatchHandler handles batch lifecycle API endpoints
type PaymentBatchHandler struct {
	BaseHandler
	batches        *paymentapp.BatchManager
	reconciliation *paymentapp.ReconciliationService
}

// NewPaymentBatchHandler creates a new PaymentBatchHandler
func NewPaymentBatchHandler(batches *paymentapp.BatchManager, reconciliation *paymentapp.ReconciliationService) *PaymentBatchHandler {
	return &PaymentBatchHandler{
		batches:        batches,
		reconciliation: reconciliation,
	}
}

// CreateBatchRequest represents a request to create a draft payment batch
type CreateBatchRequest struct {
	PaymentType   string      `json:"payment_type" binding:"required,oneof=ADVANCE FINAL"`
	AdvanceNumber int         `json:"advance_number" binding:"min=0,max=9"`
	CropYear      int         `json:"crop_year" binding:"required"`
	BatchDate     string      `json:"batch_date" binding:"required"`
	CutoffDate    string      `json:"cutoff_date" binding:"required"`
	PayGroup      *string     `json:"pay_group" binding:"omitempty,max=20"`
	ProductIDs    []uuid.UUID `json:"product_ids"`
	DepotIDs      []uuid.UUID `json:"depot_ids"`
	AllOrNothing  bool        `json:"all_or_nothing"`
}

// VoidBatchRequest represents a request to void a posted batch
type VoidBatchRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ListBatchesRequest represents batch list query parameters
type ListBatchesRequest struct {
	CropYear      *int    `form:"crop_year"`
	PaymentType   *string `form:"payment_type" binding:"omitempty,oneof=ADVANCE FINAL"`
	AdvanceNumber *int    `form:"advance_number"`
	Status        *string `form:"status" binding:"omitempty,oneof=DRAFT POSTED FINALIZED VOIDED"`
	PayGroup      *string `form:"pay_group"`
	FromDate      string  `form:"from_date"`
	ToDate        string  `form:"to_date"`
	SortBy        string  `form:"sort_by"`
	SortDir       string  `form:"sort_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
	Page          int     `form:"page" binding:"omitempty,min=1"`
	PageSize      int     `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Create creates a draft batch and returns the calculation preview
func (h *PaymentBatchHandler) Create(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	batchDate, err := time.Parse("2006-01-02", req.BatchDate)
	if err != nil {
		h.BadRequest(c, "Invalid batch_date, expected YYYY-MM-DD")
		return
	}
	cutoffDate, err := time.Parse("2006-01-02", req.CutoffDate)
	if err != nil {
		h.BadRequest(c, "Invalid cutoff_date, expected YYYY-MM-DD")
		return
	}

	preview, err := h.batches.CreateDraft(c.Request.Context(), paymentapp.CreateBatchRequest{
		PaymentType:   payment.PaymentType(req.PaymentType),
		AdvanceNumber: req.AdvanceNumber,
		CropYear:      req.CropYear,
		BatchDate:     batchDate,
		CutoffDate:    cutoffDate,
		PayGroup:      req.PayGroup,
		ProductIDs:    req.ProductIDs,
		DepotIDs:      req.DepotIDs,
		AllOrNothing:  req.AllOrNothing,
		Actor:         actor,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, preview)
}

// Approve posts a draft batch
func (h *PaymentBatchHandler) Approve(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid batch ID")
		return
	}

	result, err := h.batches.ApproveBatch(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Finalize marks a posted batch's payments as processed
func (h *PaymentBatchHandler) Finalize(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid batch ID")
		return
	}

	if err := h.batches.ProcessPayments(c.Request.Context(), id, actor); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Void rolls back a posted batch, voiding its cheques, allocations,
// deductions and ledger entries
func (h *PaymentBatchHandler) Void(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid batch ID")
		return
	}

	var req VoidBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.batches.RollbackBatch(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, outcome)
}

// GetByID retrieves a batch by its ID
func (h *PaymentBatchHandler) GetByID(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid batch ID")
		return
	}

	batch, err := h.batches.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batch)
}

// List retrieves batches with filtering and pagination
func (h *PaymentBatchHandler) List(c *gin.Context) {
	var req ListBatchesRequest
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

	filter := payment.BatchFilter{
		CropYear:      req.CropYear,
		AdvanceNumber: req.AdvanceNumber,
		PayGroup:      req.PayGroup,
		SortBy:        req.SortBy,
		SortDir:       req.SortDir,
		Offset:        (page - 1) * pageSize,
		Limit:         pageSize,
	}
	if req.PaymentType != nil {
		t := payment.PaymentType(*req.PaymentType)
		filter.PaymentType = &t
	}
	if req.Status != nil {
		s := payment.BatchStatus(*req.Status)
		filter.Status = &s
	}
	if req.FromDate != "" {
		t, err := time.Parse("2006-01-02", req.FromDate)
		if err != nil {
			h.BadRequest(c, "Invalid from_date, expected YYYY-MM-DD")
			return
		}
		filter.FromDate = &t
	}
	if req.ToDate != "" {
		t, err := time.Parse("2006-01-02", req.ToDate)
		if err != nil {
			h.BadRequest(c, "Invalid to_date, expected YYYY-MM-DD")
			return
		}
		filter.ToDate = &t
	}

	result, err := h.batches.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Reconcile cross-checks a posted batch against its cheques, ledger
// entries and allocations
func (h *PaymentBatchHandler) Reconcile(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid batch ID")
		return
	}

	report, err := h.reconciliation.ReconcileBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// ReconcileDistribution cross-checks a consolidated distribution payment
// against the source batches it absorbed
func (h *PaymentBatchHandler) ReconcileDistribution(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid batch ID")
		return
	}

	report, err := h.reconciliation.ReconcileDistribution(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// RegisterRoutes registers batch routes
func (h *PaymentBatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	batches := rg.Group("/payment-batches")
	{
		batches.POST("", h.Create)
		batches.GET("", h.List)
		batches.GET("/:id", h.GetByID)
		batches.POST("/:id/approve", h.Approve)
		batches.POST("/:id/finalize", h.Finalize)
		batches.POST("/:id/void", h.Void)
		batches.GET("/:id/reconciliation", h.Reconcile)
		batches.GET("/:id/distribution-reconciliation", h.ReconcileDistribution)
	}
}

package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	paymentapp "github.com/harvestpay/backend/internal/application/payment"
	"github.com/harvestpay/backend/internal/domain/payment"
)

// ChequeHandler handles cheque API endpoints
type ChequeHandler struct {
	BaseHandler
	cheques *paymentapp.ChequeService
}

// NewChequeHandler creates a new ChequeHandler
func NewChequeHandler(cheques *paymentapp.ChequeService) *ChequeHandler {
	return &ChequeHandler{cheques: cheques}
}

// VoidChequeRequest represents a request to void a cheque
type VoidChequeRequest struct {
	Reason            string `json:"reason" binding:"required,min=1,max=500"`
	ReverseAccounting bool   `json:"reverse_accounting"`
}

// ListChequesRequest represents cheque list query parameters
type ListChequesRequest struct {
	GrowerID *uuid.UUID `form:"grower_id"`
	BatchID  *uuid.UUID `form:"batch_id"`
	Status   *string    `form:"status" binding:"omitempty,oneof=GENERATED PRINTED DELIVERED VOIDED"`
	Series   *string    `form:"series" binding:"omitempty,len=2"`
	FromDate string     `form:"from_date"`
	ToDate   string     `form:"to_date"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetByID retrieves a cheque by its ID
func (h *ChequeHandler) GetByID(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid cheque ID")
		return
	}

	cheque, err := h.cheques.GetCheque(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, cheque)
}

// List retrieves cheques with filtering and pagination
func (h *ChequeHandler) List(c *gin.Context) {
	var req ListChequesRequest
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

	filter := payment.ChequeFilter{
		GrowerID: req.GrowerID,
		BatchID:  req.BatchID,
		Series:   req.Series,
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	}
	if req.Status != nil {
		s := payment.ChequeStatus(*req.Status)
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

	result, err := h.cheques.ListCheques(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Print marks a cheque as physically printed
func (h *ChequeHandler) Print(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid cheque ID")
		return
	}

	cheque, err := h.cheques.MarkPrinted(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, cheque)
}

// Deliver marks a cheque as handed to the grower
func (h *ChequeHandler) Deliver(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid cheque ID")
		return
	}

	cheque, err := h.cheques.MarkDelivered(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, cheque)
}

// Void voids a single cheque and releases its allocations and deductions
func (h *ChequeHandler) Void(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Actor identity is required")
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid cheque ID")
		return
	}

	var req VoidChequeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.cheques.VoidCheque(c.Request.Context(), id, actor, req.Reason, req.ReverseAccounting)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, outcome)
}

// RegisterRoutes registers cheque routes
func (h *ChequeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cheques := rg.Group("/cheques")
	{
		cheques.GET("", h.List)
		cheques.GET("/:id", h.GetByID)
		cheques.POST("/:id/print", h.Print)
		cheques.POST("/:id/deliver", h.Deliver)
		cheques.POST("/:id/void", h.Void)
	}
}

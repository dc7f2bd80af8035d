package handler

import (
	"escrow-settlement-engine/internal/adapter/http/dto"
	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/pkg/apperror"
	"escrow-settlement-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HoldHandler handles escrow hold endpoints.
type HoldHandler struct {
	escrowSvc ports.EscrowService
}

// NewHoldHandler creates a new HoldHandler.
func NewHoldHandler(escrowSvc ports.EscrowService) *HoldHandler {
	return &HoldHandler{escrowSvc: escrowSvc}
}

// CreateHold handles POST /api/v1/holds.
func (h *HoldHandler) CreateHold(c *gin.Context) {
	var req dto.CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	hold, err := h.escrowSvc.CreateHold(c.Request.Context(), ports.CreateHoldRequest{
		ContractRef:    req.ContractRef,
		PayerOwnerRef:  req.PayerOwnerRef,
		PayerOwnerKind: domain.OwnerKind(req.PayerOwnerKind),
		PayeeOwnerRef:  req.PayeeOwnerRef,
		PayeeOwnerKind: domain.OwnerKind(req.PayeeOwnerKind),
		Amount:         req.Amount,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toHoldResponse(hold))
}

// DisputeHold handles POST /api/v1/holds/:id/dispute.
func (h *HoldHandler) DisputeHold(c *gin.Context) {
	holdID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid hold ID"))
		return
	}

	var req dto.DisputeHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	hold, err := h.escrowSvc.DisputeHold(c.Request.Context(), ports.DisputeHoldRequest{
		HoldID:         holdID,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toHoldResponse(hold))
}

// GetHold handles GET /api/v1/holds/:id.
func (h *HoldHandler) GetHold(c *gin.Context) {
	holdID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid hold ID"))
		return
	}

	hold, err := h.escrowSvc.GetHoldByID(c.Request.Context(), holdID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toHoldResponse(hold))
}

// GetHoldByContract handles GET /api/v1/holds/contract/:ref.
func (h *HoldHandler) GetHoldByContract(c *gin.Context) {
	hold, err := h.escrowSvc.GetHoldByContract(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if hold == nil {
		response.Error(c, apperror.ErrNotFound("hold"))
		return
	}

	response.OK(c, toHoldResponse(hold))
}

package handler

import (
	"strconv"

	"escrow-settlement-engine/internal/adapter/http/dto"
	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/pkg/apperror"
	"escrow-settlement-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet and ledger endpoints.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
	escrowSvc ports.EscrowService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService, escrowSvc ports.EscrowService) *WalletHandler {
	return &WalletHandler{
		ledgerSvc: ledgerSvc,
		escrowSvc: escrowSvc,
	}
}

// TopUp handles POST /api/v1/topups.
func (h *WalletHandler) TopUp(c *gin.Context) {
	var req dto.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entry, err := h.ledgerSvc.ApplyTopUp(c.Request.Context(), ports.TopUpRequest{
		OwnerRef:     req.OwnerRef,
		OwnerKind:    domain.OwnerKind(req.OwnerKind),
		Currency:     req.Currency,
		Amount:       req.Amount,
		ProviderTxID: req.ProviderTxID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(entry))
}

// Adjust handles POST /api/v1/adjustments.
func (h *WalletHandler) Adjust(c *gin.Context) {
	var req dto.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entry, err := h.ledgerSvc.ApplyAdjustment(c.Request.Context(), ports.AdjustmentRequest{
		OwnerRef:       req.OwnerRef,
		Amount:         req.Amount,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(entry))
}

// GetWallet handles GET /api/v1/wallets/:owner_ref.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	wallet, err := h.ledgerSvc.GetWalletByOwner(c.Request.Context(), c.Param("owner_ref"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(wallet))
}

// ListTransactions handles GET /api/v1/wallets/:owner_ref/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	wallet, err := h.ledgerSvc.GetWalletByOwner(c.Request.Context(), c.Param("owner_ref"))
	if err != nil {
		response.Error(c, err)
		return
	}

	params := ports.TransactionListParams{
		WalletID: wallet.ID,
		Page:     atoiDefault(c.Query("page"), 1),
		PageSize: atoiDefault(c.Query("page_size"), 20),
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	if kind := c.Query("kind"); kind != "" {
		k := domain.TransactionKind(kind)
		params.Kind = &k
	}
	if from := c.Query("from"); from != "" {
		if v, err := strconv.ParseInt(from, 10, 64); err == nil {
			params.From = &v
		}
	}
	if to := c.Query("to"); to != "" {
		if v, err := strconv.ParseInt(to, 10, 64); err == nil {
			params.To = &v
		}
	}

	entries, total, err := h.ledgerSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toTransactionResponse(&entries[i]))
	}

	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	})
}

// ListHolds handles GET /api/v1/wallets/:owner_ref/holds.
func (h *WalletHandler) ListHolds(c *gin.Context) {
	wallet, err := h.ledgerSvc.GetWalletByOwner(c.Request.Context(), c.Param("owner_ref"))
	if err != nil {
		response.Error(c, err)
		return
	}

	holds, err := h.escrowSvc.GetHoldsForWallet(c.Request.Context(), wallet.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.HoldResponse, 0, len(holds))
	for i := range holds {
		items = append(items, toHoldResponse(&holds[i]))
	}
	response.OK(c, items)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

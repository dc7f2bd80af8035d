package handler

import (
	"time"

	"escrow-settlement-engine/internal/adapter/http/dto"
	"escrow-settlement-engine/internal/core/domain"
)

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	resp := dto.WalletResponse{
		ID:        w.ID.String(),
		OwnerRef:  w.OwnerRef,
		OwnerKind: string(w.OwnerKind),
		Currency:  w.Currency,
		Balance:   w.Balance,
		Version:   w.Version,
		Active:    w.Active,
		CreatedAt: w.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: w.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if w.LastTransactionID != nil {
		s := w.LastTransactionID.String()
		resp.LastTransactionID = &s
	}
	return resp
}

func toTransactionResponse(t *domain.WalletTransaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:           t.ID.String(),
		WalletID:     t.WalletID.String(),
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Kind:         string(t.Kind),
		Reference:    t.Reference,
		CreatedAt:    t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toHoldResponse(h *domain.EscrowHold) dto.HoldResponse {
	resp := dto.HoldResponse{
		ID:               h.ID.String(),
		ContractRef:      h.ContractRef,
		PayerWalletID:    h.PayerWalletID.String(),
		PayeeWalletID:    h.PayeeWalletID.String(),
		Amount:           h.Amount,
		Currency:         h.Currency,
		Status:           string(h.Status),
		CreatedAt:        h.CreatedAt.UTC().Format(time.RFC3339),
		ResolutionReason: h.ResolutionReason,
	}
	if h.ResolvedAt != nil {
		s := h.ResolvedAt.UTC().Format(time.RFC3339)
		resp.ResolvedAt = &s
	}
	return resp
}

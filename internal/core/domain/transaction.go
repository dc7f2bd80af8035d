package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	TransactionKindTopUp         TransactionKind = "TOPUP"
	TransactionKindEscrowHold    TransactionKind = "ESCROW_HOLD"
	TransactionKindEscrowRelease TransactionKind = "ESCROW_RELEASE"
	TransactionKindEscrowRefund  TransactionKind = "ESCROW_REFUND"
	TransactionKindFee           TransactionKind = "FEE"
	TransactionKindAdjustment    TransactionKind = "ADJUSTMENT"
)

// WalletTransaction is an immutable, append-only ledger entry. Amount is
// signed: positive credits the wallet, negative debits it. BalanceAfter
// records the wallet balance resulting from this entry, so the ledger replays
// to the wallet's cached balance. Entries carry the idempotency key that
// produced them; a key is applied at most once per wallet.
type WalletTransaction struct {
	ID             uuid.UUID       `json:"id"`
	WalletID       uuid.UUID       `json:"wallet_id"`
	Amount         int64           `json:"amount"`
	BalanceAfter   int64           `json:"balance_after"`
	Kind           TransactionKind `json:"kind"`
	Reference      string          `json:"reference"` // Triggering contract/task/project
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsCredit reports whether the entry adds funds to the wallet.
func (t *WalletTransaction) IsCredit() bool {
	return t.Amount > 0
}

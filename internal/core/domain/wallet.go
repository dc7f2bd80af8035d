package domain

import (
	"time"

	"github.com/google/uuid"
)

// OwnerKind distinguishes individual users from agencies.
type OwnerKind string

const (
	OwnerKindUser   OwnerKind = "USER"
	OwnerKindAgency OwnerKind = "AGENCY"
)

// Wallet holds the cached balance projection for one owner. The ledger of
// WalletTransactions is the source of truth; Balance and Version are derived
// from it and updated in the same atomic unit as each appended entry.
// Wallets are created lazily on first financial interaction and never
// deleted, only deactivated.
type Wallet struct {
	ID                uuid.UUID  `json:"id"`
	OwnerRef          string     `json:"owner_ref"`
	OwnerKind         OwnerKind  `json:"owner_kind"`
	Currency          string     `json:"currency"`
	Balance           int64      `json:"balance"` // Minor currency units, never negative
	Version           int64      `json:"version"` // Increments on every mutation
	LastTransactionID *uuid.UUID `json:"last_transaction_id,omitempty"`
	Active            bool       `json:"active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewWallet creates an empty active wallet for an owner.
func NewWallet(ownerRef string, kind OwnerKind, currency string, now time.Time) *Wallet {
	return &Wallet{
		ID:        uuid.New(),
		OwnerRef:  ownerRef,
		OwnerKind: kind,
		Currency:  currency,
		Balance:   0,
		Version:   0,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanDebit reports whether the wallet can cover a debit of amount.
func (w *Wallet) CanDebit(amount int64) bool {
	return w.Active && amount > 0 && w.Balance >= amount
}

// BalanceEvent is the payload pushed on the balance projection feed after
// each committed ledger entry. Delivery is at-most-once and best-effort;
// consumers discard stale pushes by comparing Version and re-fetch
// authoritative state from the query API.
type BalanceEvent struct {
	WalletID          uuid.UUID `json:"wallet_id"`
	OwnerRef          string    `json:"owner_ref"`
	Balance           int64     `json:"balance"`
	Version           int64     `json:"version"`
	LastTransactionID uuid.UUID `json:"last_transaction_id"`
	At                time.Time `json:"at"`
}

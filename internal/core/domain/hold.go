package domain

import (
	"time"

	"github.com/google/uuid"
)

// HoldStatus is the lifecycle state of an escrow hold.
type HoldStatus string

const (
	HoldStatusHeld     HoldStatus = "HELD"
	HoldStatusReleased HoldStatus = "RELEASED"
	HoldStatusRefunded HoldStatus = "REFUNDED"
	HoldStatusDisputed HoldStatus = "DISPUTED"
)

// ResolveOutcome is the requested terminal state for a held escrow.
type ResolveOutcome string

const (
	OutcomeRelease ResolveOutcome = "RELEASE"
	OutcomeRefund  ResolveOutcome = "REFUND"
)

// EscrowHold earmarks funds for a specific piece of contracted work. The
// amount is fixed at creation; the status transitions exactly once from HELD
// to a terminal state. Held funds are debited from the payer's available
// balance the instant the hold is created. Holds are never deleted; resolved
// holds remain queryable for audit.
type EscrowHold struct {
	ID               uuid.UUID  `json:"id"`
	ContractRef      string     `json:"contract_ref"`
	PayerWalletID    uuid.UUID  `json:"payer_wallet_id"`
	PayeeWalletID    uuid.UUID  `json:"payee_wallet_id"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	Status           HoldStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	ResolutionReason string     `json:"resolution_reason,omitempty"`
}

// IsTerminal reports whether the hold has left the HELD state.
func (h *EscrowHold) IsTerminal() bool {
	return h.Status != HoldStatusHeld
}

// StatusFor maps a resolve outcome to the resulting hold status.
func StatusFor(outcome ResolveOutcome) HoldStatus {
	if outcome == OutcomeRefund {
		return HoldStatusRefunded
	}
	return HoldStatusReleased
}

// MatchesOutcome reports whether a terminal hold's status agrees with the
// requested outcome. Used to distinguish an idempotent replay from a
// conflicting resolution attempt.
func (h *EscrowHold) MatchesOutcome(outcome ResolveOutcome) bool {
	return h.Status == StatusFor(outcome)
}

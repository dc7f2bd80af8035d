package domain

import (
	"time"

	"github.com/google/uuid"
)

// RevocationStatus is the delivery state of an access-revocation intent.
type RevocationStatus string

const (
	RevocationStatusPending   RevocationStatus = "PENDING"
	RevocationStatusDelivered RevocationStatus = "DELIVERED"
	RevocationStatusFailed    RevocationStatus = "FAILED"
)

// AccessRevocation is an advisory side effect recorded after a hold is
// released: the payee's further access grant tied to the contract should be
// revoked by the external identity service. Delivery is best-effort and
// retried out-of-band; its failure never rolls back the financial release.
type AccessRevocation struct {
	ID          uuid.UUID        `json:"id"`
	HoldID      uuid.UUID        `json:"hold_id"`
	ContractRef string           `json:"contract_ref"`
	GranteeRef  string           `json:"grantee_ref"` // Payee owner whose access is revoked
	Status      RevocationStatus `json:"status"`
	Attempt     int              `json:"attempt"`
	LastError   *string          `json:"last_error,omitempty"`
	NextRetryAt *time.Time       `json:"next_retry_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

package ports

import (
	"context"
	"time"

	"escrow-settlement-engine/internal/core/domain"

	"github.com/google/uuid"
)

// --- Command/query service ports (business logic) ---

// LedgerService owns wallet balances and the transaction ledger.
type LedgerService interface {
	// ApplyTopUp records an already-verified payment-gateway top-up. The
	// wallet is created lazily on the owner's first top-up. The gateway's
	// provider transaction ID is the idempotency key.
	ApplyTopUp(ctx context.Context, req TopUpRequest) (*domain.WalletTransaction, error)
	// ApplyAdjustment records a signed manual correction against an
	// existing wallet (the explicit reversing-transaction path for
	// post-settlement disputes).
	ApplyAdjustment(ctx context.Context, req AdjustmentRequest) (*domain.WalletTransaction, error)
	GetWalletByOwner(ctx context.Context, ownerRef string) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.WalletTransaction, int64, error)
}

// TopUpRequest holds a verified top-up event from the gateway adapter.
type TopUpRequest struct {
	OwnerRef     string
	OwnerKind    domain.OwnerKind
	Currency     string
	Amount       int64
	ProviderTxID string // Gateway-provided idempotency key
}

// AdjustmentRequest holds a manual ledger correction. Amount is signed.
type AdjustmentRequest struct {
	OwnerRef       string
	Amount         int64
	Reason         string
	IdempotencyKey string
}

// EscrowService creates and queries holds. Wallets and holds are mutated
// only through the ledger/settlement path; every other component submits
// intents and observes outcomes.
type EscrowService interface {
	CreateHold(ctx context.Context, req CreateHoldRequest) (*domain.EscrowHold, error)
	DisputeHold(ctx context.Context, req DisputeHoldRequest) (*domain.EscrowHold, error)
	GetHoldByID(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error)
	// GetHoldByContract returns nil, nil when the contract has no hold.
	GetHoldByContract(ctx context.Context, contractRef string) (*domain.EscrowHold, error)
	GetHoldsForWallet(ctx context.Context, walletID uuid.UUID) ([]domain.EscrowHold, error)
}

// CreateHoldRequest holds validated input for hold creation. Wallets are
// resolved (and the payee's lazily created) from the owner references.
type CreateHoldRequest struct {
	ContractRef    string
	PayerOwnerRef  string
	PayerOwnerKind domain.OwnerKind
	PayeeOwnerRef  string
	PayeeOwnerKind domain.OwnerKind
	Amount         int64
	Currency       string
	IdempotencyKey string
}

// DisputeHoldRequest flags a held hold as disputed; no money moves.
type DisputeHoldRequest struct {
	HoldID         uuid.UUID
	Reason         string
	IdempotencyKey string
}

// SettlementService is the transactional heart: it moves escrowed funds to
// their final wallet and closes the hold atomically, exactly once.
type SettlementService interface {
	ResolveHold(ctx context.Context, holdID uuid.UUID, outcome domain.ResolveOutcome, idempotencyKey string) (*domain.EscrowHold, error)
}

// ReviewService bridges external POT/POP review decisions to settlement.
type ReviewService interface {
	ApplyReviewDecision(ctx context.Context, req ReviewRequest) (*ReviewResult, error)
}

// ReviewRequest carries a reviewer's decision for a task or project.
type ReviewRequest struct {
	TargetRef   string // Contract/task/project reference
	DecisionID  string
	Decision    domain.ReviewDecision
	ReviewerRef string
	Notes       string
}

// ReviewResult reports what the coordinator did with the decision.
type ReviewResult struct {
	Outcome domain.ResolutionOutcome `json:"outcome"`
	Hold    *domain.EscrowHold       `json:"hold,omitempty"`
}

// RevocationService queues and dispatches advisory access revocations.
type RevocationService interface {
	// EnqueueForHold records a revocation intent and dispatches it
	// asynchronously. Never returns the delivery error; delivery failures
	// are logged and retried out-of-band.
	EnqueueForHold(ctx context.Context, hold *domain.EscrowHold, granteeRef string) error
	// DispatchPending re-dispatches due outbox rows once.
	DispatchPending(ctx context.Context) error
}

// AccessRevoker is the client port to the external identity/access service.
type AccessRevoker interface {
	Revoke(ctx context.Context, contractRef, granteeRef string) error
}

// --- Feed ports ---

// BalancePublisher pushes balance events after committed transactions.
// Delivery is at-most-once and best-effort; a missed push is recoverable by
// polling the wallet query API.
type BalancePublisher interface {
	Publish(ctx context.Context, event domain.BalanceEvent) error
}

// BalanceSubscriber delivers balance events for one wallet until the
// returned cancel func is called.
type BalanceSubscriber interface {
	Subscribe(ctx context.Context, walletID uuid.UUID) (<-chan domain.BalanceEvent, func(), error)
}

// --- Infrastructure ports ---

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TokenService validates HS256 service tokens issued by the identity
// service; Generate exists for tooling and tests.
type TokenService interface {
	Generate(service string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed service token claims.
type TokenClaims struct {
	Service string
}

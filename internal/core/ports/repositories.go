package ports

import (
	"context"
	"time"

	"escrow-settlement-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside transaction blocks; reads inside a
// transaction take row locks so per-wallet mutations serialize.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwnerRef(ctx context.Context, ownerRef string) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	GetByOwnerRefForUpdate(ctx context.Context, tx pgx.Tx, ownerRef string) (*domain.Wallet, error)
	// UpdateBalance writes the new balance projection conditioned on
	// expectedVersion; it returns domain.ErrVersionConflict when the wallet
	// version moved underneath the caller.
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance, newVersion int64, lastTxID uuid.UUID, expectedVersion int64) error
	Deactivate(ctx context.Context, walletID uuid.UUID) error
}

// TransactionRepository defines persistence for the append-only ledger.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WalletTransaction, error)
	// GetByWalletAndKey looks up a prior entry for the same wallet and
	// idempotency key inside the current transaction. Returns nil, nil when
	// the key has never been applied.
	GetByWalletAndKey(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, idempotencyKey string) (*domain.WalletTransaction, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.WalletTransaction, int64, error)
}

// TransactionListParams holds filter + pagination for ledger history queries.
type TransactionListParams struct {
	WalletID uuid.UUID
	Kind     *domain.TransactionKind
	From     *int64 // Unix timestamp
	To       *int64 // Unix timestamp
	Page     int
	PageSize int
}

// HoldRepository defines persistence for escrow holds. Holds are never
// deleted; terminal holds stay queryable for audit.
type HoldRepository interface {
	Create(ctx context.Context, tx pgx.Tx, hold *domain.EscrowHold) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.EscrowHold, error)
	GetByContractRef(ctx context.Context, contractRef string) (*domain.EscrowHold, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.EscrowHold, error)
	// UpdateStatus flips a hold out of HELD exactly once; it returns
	// domain.ErrNotHeld when the hold already reached a terminal state.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.HoldStatus, resolvedAt time.Time, reason string) error
}

// IdempotencyRepository defines persistence for idempotency logs (DB layer).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// RevocationRepository persists the access-revocation outbox. Rows are
// written outside the financial transaction; a background loop re-dispatches
// pending rows.
type RevocationRepository interface {
	Create(ctx context.Context, rev *domain.AccessRevocation) error
	Update(ctx context.Context, rev *domain.AccessRevocation) error
	ListPending(ctx context.Context, dueBefore time.Time, limit int) ([]domain.AccessRevocation, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"escrow-settlement-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, owner_ref, owner_kind, currency, balance, version, last_transaction_id, active, created_at, updated_at`

// Create inserts a new wallet within a database transaction, so lazy wallet
// creation commits atomically with the first ledger entry.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, owner_ref, owner_kind, currency, balance, version, last_transaction_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.OwnerRef, w.OwnerKind, w.Currency,
		w.Balance, w.Version, w.LastTransactionID, w.Active,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, id), "get wallet by id")
}

// GetByOwnerRef fetches a wallet by owner reference (non-locking read).
func (r *WalletRepo) GetByOwnerRef(ctx context.Context, ownerRef string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_ref = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, ownerRef), "get wallet by owner")
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, id), "get wallet for update by id")
}

// GetByOwnerRefForUpdate fetches a wallet by owner reference with pessimistic
// locking. This MUST be called within a transaction.
func (r *WalletRepo) GetByOwnerRefForUpdate(ctx context.Context, tx pgx.Tx, ownerRef string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_ref = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, ownerRef), "get wallet for update by owner")
}

// UpdateBalance writes the cached balance projection conditioned on the
// expected version. The version check backs up the row lock: a lost race
// returns domain.ErrVersionConflict and the caller retries the whole
// operation.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance, newVersion int64, lastTxID uuid.UUID, expectedVersion int64) error {
	query := `UPDATE wallets SET balance = $1, version = $2, last_transaction_id = $3, updated_at = NOW()
		WHERE id = $4 AND version = $5`

	tag, err := tx.Exec(ctx, query, balance, newVersion, lastTxID, walletID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

// Deactivate marks a wallet inactive. Wallets are never deleted.
func (r *WalletRepo) Deactivate(ctx context.Context, walletID uuid.UUID) error {
	query := `UPDATE wallets SET active = FALSE, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, walletID)
	if err != nil {
		return fmt.Errorf("deactivate wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

func scanWallet(row pgx.Row, op string) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.OwnerRef, &w.OwnerKind, &w.Currency,
		&w.Balance, &w.Version, &w.LastTransactionID, &w.Active,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

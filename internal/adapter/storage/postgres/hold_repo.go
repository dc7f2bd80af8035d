package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"escrow-settlement-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HoldRepo implements ports.HoldRepository. A unique index on contract_ref
// guarantees at most one hold per contract.
type HoldRepo struct {
	pool Pool
}

// NewHoldRepo creates a new HoldRepo.
func NewHoldRepo(pool Pool) *HoldRepo {
	return &HoldRepo{pool: pool}
}

const holdColumns = `id, contract_ref, payer_wallet_id, payee_wallet_id, amount, currency, status, created_at, resolved_at, resolution_reason`

// Create inserts a hold within a database transaction, atomically with the
// escrow-hold debit on the payer wallet.
func (r *HoldRepo) Create(ctx context.Context, tx pgx.Tx, h *domain.EscrowHold) error {
	query := `INSERT INTO escrow_holds (id, contract_ref, payer_wallet_id, payee_wallet_id, amount, currency, status, created_at, resolved_at, resolution_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		h.ID, h.ContractRef, h.PayerWalletID, h.PayeeWalletID,
		h.Amount, h.Currency, h.Status, h.CreatedAt,
		h.ResolvedAt, h.ResolutionReason,
	)
	if err != nil {
		return fmt.Errorf("insert hold: %w", err)
	}
	return nil
}

// GetByID fetches a hold by UUID (without locking).
func (r *HoldRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) {
	query := `SELECT ` + holdColumns + ` FROM escrow_holds WHERE id = $1`
	return scanHold(r.pool.QueryRow(ctx, query, id), "get hold by id")
}

// GetByIDForUpdate fetches a hold by UUID with pessimistic locking.
// This MUST be called within a transaction.
func (r *HoldRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.EscrowHold, error) {
	query := `SELECT ` + holdColumns + ` FROM escrow_holds WHERE id = $1 FOR UPDATE`
	return scanHold(tx.QueryRow(ctx, query, id), "get hold for update")
}

// GetByContractRef fetches the hold for a contract. Returns nil, nil when
// the contract has no hold (not every task/project is escrow-backed).
func (r *HoldRepo) GetByContractRef(ctx context.Context, contractRef string) (*domain.EscrowHold, error) {
	query := `SELECT ` + holdColumns + ` FROM escrow_holds WHERE contract_ref = $1`
	return scanHold(r.pool.QueryRow(ctx, query, contractRef), "get hold by contract")
}

// ListByWallet fetches all holds where the wallet is payer or payee, newest
// first. Resolved holds are included for audit.
func (r *HoldRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.EscrowHold, error) {
	query := `SELECT ` + holdColumns + ` FROM escrow_holds
		WHERE payer_wallet_id = $1 OR payee_wallet_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list holds by wallet: %w", err)
	}
	defer rows.Close()

	var holds []domain.EscrowHold
	for rows.Next() {
		h := domain.EscrowHold{}
		err := rows.Scan(
			&h.ID, &h.ContractRef, &h.PayerWalletID, &h.PayeeWalletID,
			&h.Amount, &h.Currency, &h.Status, &h.CreatedAt,
			&h.ResolvedAt, &h.ResolutionReason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holds: %w", err)
	}

	return holds, nil
}

// UpdateStatus flips a hold out of HELD exactly once. The WHERE guard on the
// current status makes the transition a one-way door: a hold already in a
// terminal state returns domain.ErrNotHeld.
func (r *HoldRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.HoldStatus, resolvedAt time.Time, reason string) error {
	query := `UPDATE escrow_holds SET status = $1, resolved_at = $2, resolution_reason = $3
		WHERE id = $4 AND status = $5`

	tag, err := tx.Exec(ctx, query, status, resolvedAt, reason, id, domain.HoldStatusHeld)
	if err != nil {
		return fmt.Errorf("update hold status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotHeld
	}
	return nil
}

func scanHold(row pgx.Row, op string) (*domain.EscrowHold, error) {
	h := &domain.EscrowHold{}
	err := row.Scan(
		&h.ID, &h.ContractRef, &h.PayerWalletID, &h.PayeeWalletID,
		&h.Amount, &h.Currency, &h.Status, &h.CreatedAt,
		&h.ResolvedAt, &h.ResolutionReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return h, nil
}

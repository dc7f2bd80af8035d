package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository. Entries are
// append-only; there is no update or delete path. A unique index on
// (wallet_id, idempotency_key) enforces at-most-once application at the
// storage layer.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, wallet_id, amount, balance_after, kind, reference, idempotency_key, created_at`

// Create appends a ledger entry within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (id, wallet_id, amount, balance_after, kind, reference, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.Amount, t.BalanceAfter,
		t.Kind, t.Reference, t.IdempotencyKey, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a ledger entry by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WalletTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, id), "get transaction by id")
}

// GetByWalletAndKey looks up a prior entry for the wallet and idempotency
// key inside the current transaction. Returns nil, nil when the key has
// never been applied to this wallet.
func (r *TransactionRepo) GetByWalletAndKey(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, idempotencyKey string) (*domain.WalletTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE wallet_id = $1 AND idempotency_key = $2`
	return scanTransaction(tx.QueryRow(ctx, query, walletID, idempotencyKey), "get transaction by idempotency key")
}

// List fetches ledger history with filtering and pagination, newest first.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.WalletTransaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
	args = append(args, params.WalletID)
	argIdx++

	if params.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, *params.Kind)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM wallet_transactions %s", where)
	var total int64
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT `+transactionColumns+`
		FROM wallet_transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var entries []domain.WalletTransaction
	for rows.Next() {
		t := domain.WalletTransaction{}
		err := rows.Scan(
			&t.ID, &t.WalletID, &t.Amount, &t.BalanceAfter,
			&t.Kind, &t.Reference, &t.IdempotencyKey, &t.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transactions: %w", err)
	}

	return entries, total, nil
}

func scanTransaction(row pgx.Row, op string) (*domain.WalletTransaction, error) {
	t := &domain.WalletTransaction{}
	err := row.Scan(
		&t.ID, &t.WalletID, &t.Amount, &t.BalanceAfter,
		&t.Kind, &t.Reference, &t.IdempotencyKey, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

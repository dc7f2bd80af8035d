package postgres

import (
	"context"
	"fmt"
	"time"

	"escrow-settlement-engine/internal/core/domain"
)

// RevocationRepo implements ports.RevocationRepository. Rows are written
// outside the financial transaction; delivery state is advisory.
type RevocationRepo struct {
	pool Pool
}

// NewRevocationRepo creates a new RevocationRepo.
func NewRevocationRepo(pool Pool) *RevocationRepo {
	return &RevocationRepo{pool: pool}
}

// Create inserts a pending revocation intent.
func (r *RevocationRepo) Create(ctx context.Context, rev *domain.AccessRevocation) error {
	query := `INSERT INTO revocation_outbox (id, hold_id, contract_ref, grantee_ref, status, attempt, last_error, next_retry_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		rev.ID, rev.HoldID, rev.ContractRef, rev.GranteeRef,
		rev.Status, rev.Attempt, rev.LastError, rev.NextRetryAt,
		rev.CreatedAt, rev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert revocation: %w", err)
	}
	return nil
}

// Update writes delivery progress for a revocation intent.
func (r *RevocationRepo) Update(ctx context.Context, rev *domain.AccessRevocation) error {
	rev.UpdatedAt = time.Now().UTC()
	query := `UPDATE revocation_outbox SET status = $1, attempt = $2, last_error = $3, next_retry_at = $4, updated_at = $5
		WHERE id = $6`

	tag, err := r.pool.Exec(ctx, query,
		rev.Status, rev.Attempt, rev.LastError, rev.NextRetryAt, rev.UpdatedAt, rev.ID,
	)
	if err != nil {
		return fmt.Errorf("update revocation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("revocation not found: %s", rev.ID)
	}
	return nil
}

// ListPending fetches due pending revocations, oldest first.
func (r *RevocationRepo) ListPending(ctx context.Context, dueBefore time.Time, limit int) ([]domain.AccessRevocation, error) {
	query := `SELECT id, hold_id, contract_ref, grantee_ref, status, attempt, last_error, next_retry_at, created_at, updated_at
		FROM revocation_outbox
		WHERE status = $1 AND (next_retry_at IS NULL OR next_retry_at <= $2)
		ORDER BY created_at ASC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.RevocationStatusPending, dueBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending revocations: %w", err)
	}
	defer rows.Close()

	var revs []domain.AccessRevocation
	for rows.Next() {
		rev := domain.AccessRevocation{}
		err := rows.Scan(
			&rev.ID, &rev.HoldID, &rev.ContractRef, &rev.GranteeRef,
			&rev.Status, &rev.Attempt, &rev.LastError, &rev.NextRetryAt,
			&rev.CreatedAt, &rev.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan revocation: %w", err)
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revocations: %w", err)
	}

	return revs, nil
}

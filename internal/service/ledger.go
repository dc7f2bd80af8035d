package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Cached idempotency responses live in Redis this long; the DB log is the
// durable layer behind it.
const idempotencyTTL = 24 * time.Hour

// ledgerEntryInput describes one signed ledger mutation.
type ledgerEntryInput struct {
	walletID       uuid.UUID
	amount         int64 // Positive = credit, negative = debit
	kind           domain.TransactionKind
	reference      string
	idempotencyKey string
}

// applyEntry appends one ledger entry and updates the wallet's cached
// balance/version in the caller's transaction. The wallet row must already be
// locked (GetByIDForUpdate / GetByOwnerRefForUpdate) by the caller.
//
// Returns the entry, the wallet with the post-apply projection, and whether a
// new entry was actually applied: a previously recorded idempotency key
// returns the prior entry with applied=false and zero financial effect.
func applyEntry(
	ctx context.Context,
	tx pgx.Tx,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	wallet *domain.Wallet,
	in ledgerEntryInput,
	now time.Time,
) (*domain.WalletTransaction, bool, error) {
	if !wallet.Active {
		return nil, false, apperror.ErrWalletDeactivated()
	}

	existing, err := txRepo.GetByWalletAndKey(ctx, tx, wallet.ID, in.idempotencyKey)
	if err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("idempotency lookup: %w", err))
	}
	if existing != nil {
		return existing, false, nil
	}

	newBalance := wallet.Balance + in.amount
	if newBalance < 0 {
		return nil, false, apperror.ErrInsufficientFunds()
	}

	entry := &domain.WalletTransaction{
		ID:             uuid.New(),
		WalletID:       wallet.ID,
		Amount:         in.amount,
		BalanceAfter:   newBalance,
		Kind:           in.kind,
		Reference:      in.reference,
		IdempotencyKey: in.idempotencyKey,
		CreatedAt:      now,
	}

	if err := txRepo.Create(ctx, tx, entry); err != nil {
		return nil, false, apperror.ErrStorageUnavailable(fmt.Errorf("append entry: %w", err))
	}

	newVersion := wallet.Version + 1
	if err := walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance, newVersion, entry.ID, wallet.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, false, err
		}
		return nil, false, apperror.ErrStorageUnavailable(fmt.Errorf("update balance: %w", err))
	}

	// Keep the in-memory snapshot consistent with what was written.
	wallet.Balance = newBalance
	wallet.Version = newVersion
	wallet.LastTransactionID = &entry.ID
	wallet.UpdatedAt = now

	return entry, true, nil
}

// checkIdempotency consults the Redis fast path, then the durable DB log.
// Redis failures fall through to the DB; DB failures surface.
func checkIdempotency(ctx context.Context, cache ports.IdempotencyCache, repo ports.IdempotencyRepository, log zerolog.Logger, key string) ([]byte, error) {
	cached, err := cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return cached, nil
	}

	idempLog, err := repo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog != nil {
		return idempLog.ResponseJSON, nil
	}
	return nil, nil
}

// cacheResponse stores a committed response in the Redis fast path
// (best-effort).
func cacheResponse(ctx context.Context, cache ports.IdempotencyCache, log zerolog.Logger, key string, respJSON []byte) {
	if err := cache.Set(ctx, key, respJSON, idempotencyTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

// publishBalance pushes the post-commit projection onto the feed. The feed is
// best-effort: a failed push is logged at warn and never fails the caller.
func publishBalance(ctx context.Context, pub ports.BalancePublisher, log zerolog.Logger, w *domain.Wallet, txID uuid.UUID, now time.Time) {
	if pub == nil {
		return
	}
	evt := domain.BalanceEvent{
		WalletID:          w.ID,
		OwnerRef:          w.OwnerRef,
		Balance:           w.Balance,
		Version:           w.Version,
		LastTransactionID: txID,
		At:                now,
	}
	if err := pub.Publish(ctx, evt); err != nil {
		log.Warn().Err(err).Str("wallet_id", w.ID.String()).Int64("version", w.Version).Msg("balance feed publish failed")
	}
}

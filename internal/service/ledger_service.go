package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	publisher  ports.BalancePublisher
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	publisher ports.BalancePublisher,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		transactor: transactor,
		publisher:  publisher,
		log:        log,
	}
}

// ApplyTopUp records an already-verified gateway top-up. The wallet is
// created lazily on the owner's first top-up, in the same transaction as the
// first entry. The gateway's provider transaction ID makes retries and
// duplicate confirmations apply at most once.
func (s *LedgerServiceImpl) ApplyTopUp(ctx context.Context, req ports.TopUpRequest) (*domain.WalletTransaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.ProviderTxID == "" {
		return nil, apperror.ErrIdempotencyKeyRequired()
	}
	if req.OwnerKind != domain.OwnerKindUser && req.OwnerKind != domain.OwnerKindAgency {
		return nil, apperror.Validation("unknown owner kind")
	}

	opKey := domain.BuildOperationKey(domain.OpTopUp, req.ProviderTxID)

	if cached, err := checkIdempotency(ctx, s.idempCache, s.idempRepo, s.log, opKey); err != nil {
		return nil, err
	} else if cached != nil {
		entry, err := unmarshalTransaction(cached)
		if err != nil {
			return nil, err
		}
		if entry.Amount != req.Amount {
			// Same provider transaction ID, different amount: not a retry.
			return nil, apperror.ErrIdempotencyConflict()
		}
		return entry, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	wallet, err := s.walletRepo.GetByOwnerRefForUpdate(ctx, dbTx, req.OwnerRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		wallet = domain.NewWallet(req.OwnerRef, req.OwnerKind, req.Currency, now)
		if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
			return nil, apperror.ErrStorageUnavailable(fmt.Errorf("create wallet: %w", err))
		}
	}

	entry, applied, err := applyEntry(ctx, dbTx, s.walletRepo, s.txRepo, wallet, ledgerEntryInput{
		walletID:       wallet.ID,
		amount:         req.Amount,
		kind:           domain.TransactionKindTopUp,
		reference:      req.ProviderTxID,
		idempotencyKey: opKey,
	}, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The ledger already carries this provider transaction.
		if entry.Amount != req.Amount {
			return nil, apperror.ErrIdempotencyConflict()
		}
		return entry, nil
	}

	respJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
		Key:          opKey,
		Operation:    domain.OpTopUp,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("save idempotency log: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	cacheResponse(ctx, s.idempCache, s.log, opKey, respJSON)
	publishBalance(ctx, s.publisher, s.log, wallet, entry.ID, now)

	s.log.Info().
		Str("tx_id", entry.ID.String()).
		Str("owner_ref", req.OwnerRef).
		Int64("amount", req.Amount).
		Msg("top-up applied")

	return entry, nil
}

// ApplyAdjustment records a signed manual correction against an existing
// wallet. This is the explicit reversing-transaction path: settlement is
// final, and post-settlement disputes are compensated here rather than by
// cancelling a resolution.
func (s *LedgerServiceImpl) ApplyAdjustment(ctx context.Context, req ports.AdjustmentRequest) (*domain.WalletTransaction, error) {
	if req.Amount == 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.IdempotencyKey == "" {
		return nil, apperror.ErrIdempotencyKeyRequired()
	}
	if req.Reason == "" {
		return nil, apperror.Validation("adjustment reason is required")
	}

	opKey := domain.BuildOperationKey(domain.OpAdjustment, req.IdempotencyKey)

	if cached, err := checkIdempotency(ctx, s.idempCache, s.idempRepo, s.log, opKey); err != nil {
		return nil, err
	} else if cached != nil {
		entry, err := unmarshalTransaction(cached)
		if err != nil {
			return nil, err
		}
		if entry.Amount != req.Amount {
			return nil, apperror.ErrIdempotencyConflict()
		}
		return entry, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	wallet, err := s.walletRepo.GetByOwnerRefForUpdate(ctx, dbTx, req.OwnerRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	entry, applied, err := applyEntry(ctx, dbTx, s.walletRepo, s.txRepo, wallet, ledgerEntryInput{
		walletID:       wallet.ID,
		amount:         req.Amount,
		kind:           domain.TransactionKindAdjustment,
		reference:      req.Reason,
		idempotencyKey: opKey,
	}, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		if entry.Amount != req.Amount {
			return nil, apperror.ErrIdempotencyConflict()
		}
		return entry, nil
	}

	respJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
		Key:          opKey,
		Operation:    domain.OpAdjustment,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("save idempotency log: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	cacheResponse(ctx, s.idempCache, s.log, opKey, respJSON)
	publishBalance(ctx, s.publisher, s.log, wallet, entry.ID, now)

	s.log.Info().
		Str("tx_id", entry.ID.String()).
		Str("owner_ref", req.OwnerRef).
		Int64("amount", req.Amount).
		Str("reason", req.Reason).
		Msg("adjustment applied")

	return entry, nil
}

// GetWalletByOwner returns the current balance projection for an owner.
func (s *LedgerServiceImpl) GetWalletByOwner(ctx context.Context, ownerRef string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwnerRef(ctx, ownerRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// ListTransactions returns paginated ledger history for a wallet.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.WalletTransaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	entries, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return entries, total, nil
}

// unmarshalTransaction deserializes a cached ledger entry.
func unmarshalTransaction(data []byte) (*domain.WalletTransaction, error) {
	entry := &domain.WalletTransaction{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached entry: %w", err))
	}
	return entry, nil
}

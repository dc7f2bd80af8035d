package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EscrowServiceImpl implements ports.EscrowService. Hold creation debits the
// payer the instant the hold is placed: held funds are never part of the
// available balance.
type EscrowServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	holdRepo   ports.HoldRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	publisher  ports.BalancePublisher
	log        zerolog.Logger
}

// NewEscrowService creates a new EscrowServiceImpl.
func NewEscrowService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	holdRepo ports.HoldRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	publisher ports.BalancePublisher,
	log zerolog.Logger,
) *EscrowServiceImpl {
	return &EscrowServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		holdRepo:   holdRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		transactor: transactor,
		publisher:  publisher,
		log:        log,
	}
}

// CreateHold atomically debits the payer and creates a HELD hold. On
// insufficient funds nothing is created — no partial state. The payee wallet
// is created lazily so the later release has a credit target.
func (s *EscrowServiceImpl) CreateHold(ctx context.Context, req ports.CreateHoldRequest) (*domain.EscrowHold, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.IdempotencyKey == "" {
		return nil, apperror.ErrIdempotencyKeyRequired()
	}
	if req.ContractRef == "" {
		return nil, apperror.Validation("contract reference is required")
	}
	if req.PayerOwnerRef == req.PayeeOwnerRef {
		return nil, apperror.Validation("payer and payee must differ")
	}

	opKey := domain.BuildOperationKey(domain.OpCreateHold, req.IdempotencyKey)

	if cached, err := checkIdempotency(ctx, s.idempCache, s.idempRepo, s.log, opKey); err != nil {
		return nil, err
	} else if cached != nil {
		return unmarshalHold(cached)
	}

	// One hold per contract. A hold that exists without a matching
	// idempotency record was created by a different key.
	if existing, err := s.holdRepo.GetByContractRef(ctx, req.ContractRef); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check contract hold: %w", err))
	} else if existing != nil {
		return nil, apperror.ErrIdempotencyConflict()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	payer, err := s.walletRepo.GetByOwnerRefForUpdate(ctx, dbTx, req.PayerOwnerRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock payer wallet: %w", err))
	}
	if payer == nil {
		// No wallet means no funds to reserve.
		return nil, apperror.ErrInsufficientFunds()
	}

	payee, err := s.walletRepo.GetByOwnerRef(ctx, req.PayeeOwnerRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payee wallet: %w", err))
	}
	if payee == nil {
		payee = domain.NewWallet(req.PayeeOwnerRef, req.PayeeOwnerKind, req.Currency, now)
		if err := s.walletRepo.Create(ctx, dbTx, payee); err != nil {
			return nil, apperror.ErrStorageUnavailable(fmt.Errorf("create payee wallet: %w", err))
		}
	}

	entry, applied, err := applyEntry(ctx, dbTx, s.walletRepo, s.txRepo, payer, ledgerEntryInput{
		walletID:       payer.ID,
		amount:         -req.Amount,
		kind:           domain.TransactionKindEscrowHold,
		reference:      req.ContractRef,
		idempotencyKey: opKey,
	}, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The debit exists but the contract has no hold and no idempotency
		// log: the key was consumed by something else.
		return nil, apperror.ErrIdempotencyConflict()
	}

	hold := &domain.EscrowHold{
		ID:            uuid.New(),
		ContractRef:   req.ContractRef,
		PayerWalletID: payer.ID,
		PayeeWalletID: payee.ID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        domain.HoldStatusHeld,
		CreatedAt:     now,
	}
	if err := s.holdRepo.Create(ctx, dbTx, hold); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("create hold: %w", err))
	}

	respJSON, err := json.Marshal(hold)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
		Key:          opKey,
		Operation:    domain.OpCreateHold,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("save idempotency log: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	cacheResponse(ctx, s.idempCache, s.log, opKey, respJSON)
	publishBalance(ctx, s.publisher, s.log, payer, entry.ID, now)

	s.log.Info().
		Str("hold_id", hold.ID.String()).
		Str("contract_ref", req.ContractRef).
		Int64("amount", req.Amount).
		Str("payer", req.PayerOwnerRef).
		Str("payee", req.PayeeOwnerRef).
		Msg("escrow hold created")

	return hold, nil
}

// DisputeHold flags a HELD hold as DISPUTED. No money moves: the reserved
// funds stay out of both parties' available balances until an explicit
// adjustment compensates them.
func (s *EscrowServiceImpl) DisputeHold(ctx context.Context, req ports.DisputeHoldRequest) (*domain.EscrowHold, error) {
	if req.IdempotencyKey == "" {
		return nil, apperror.ErrIdempotencyKeyRequired()
	}

	opKey := domain.BuildOperationKey(domain.OpDisputeHold, req.IdempotencyKey)

	if cached, err := checkIdempotency(ctx, s.idempCache, s.idempRepo, s.log, opKey); err != nil {
		return nil, err
	} else if cached != nil {
		return unmarshalHold(cached)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	hold, err := s.holdRepo.GetByIDForUpdate(ctx, dbTx, req.HoldID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock hold: %w", err))
	}
	if hold == nil {
		return nil, apperror.ErrNotFound("hold")
	}
	if hold.IsTerminal() {
		if hold.Status == domain.HoldStatusDisputed {
			return hold, nil
		}
		return nil, apperror.ErrInvalidStateTransition(fmt.Sprintf("hold already %s", hold.Status))
	}

	if err := s.holdRepo.UpdateStatus(ctx, dbTx, hold.ID, domain.HoldStatusDisputed, now, req.Reason); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("flag disputed: %w", err))
	}
	hold.Status = domain.HoldStatusDisputed
	hold.ResolvedAt = &now
	hold.ResolutionReason = req.Reason

	respJSON, err := json.Marshal(hold)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
		Key:          opKey,
		Operation:    domain.OpDisputeHold,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("save idempotency log: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	cacheResponse(ctx, s.idempCache, s.log, opKey, respJSON)

	s.log.Info().
		Str("hold_id", hold.ID.String()).
		Str("contract_ref", hold.ContractRef).
		Str("reason", req.Reason).
		Msg("escrow hold disputed")

	return hold, nil
}

// GetHoldByID fetches one hold.
func (s *EscrowServiceImpl) GetHoldByID(ctx context.Context, id uuid.UUID) (*domain.EscrowHold, error) {
	hold, err := s.holdRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get hold: %w", err))
	}
	if hold == nil {
		return nil, apperror.ErrNotFound("hold")
	}
	return hold, nil
}

// GetHoldByContract fetches the hold for a contract. Returns nil, nil when
// the contract is not escrow-backed.
func (s *EscrowServiceImpl) GetHoldByContract(ctx context.Context, contractRef string) (*domain.EscrowHold, error) {
	hold, err := s.holdRepo.GetByContractRef(ctx, contractRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get hold by contract: %w", err))
	}
	return hold, nil
}

// GetHoldsForWallet lists holds where the wallet is payer or payee,
// including resolved holds for audit.
func (s *EscrowServiceImpl) GetHoldsForWallet(ctx context.Context, walletID uuid.UUID) ([]domain.EscrowHold, error) {
	holds, err := s.holdRepo.ListByWallet(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list holds: %w", err))
	}
	return holds, nil
}

// unmarshalHold deserializes a cached hold.
func unmarshalHold(data []byte) (*domain.EscrowHold, error) {
	hold := &domain.EscrowHold{}
	if err := json.Unmarshal(data, hold); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached hold: %w", err))
	}
	return hold, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"escrow-settlement-engine/config"
	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettlementServiceImpl implements ports.SettlementService. Settlement is the
// only path that moves escrowed funds to their final wallet: credit and status
// flip commit in one database transaction, and the HELD-conditioned status
// update guarantees a hold settles at most once even under racing resolvers.
type SettlementServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	holdRepo   ports.HoldRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	publisher  ports.BalancePublisher
	cfg        config.SettlementConfig
	log        zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	holdRepo ports.HoldRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	publisher ports.BalancePublisher,
	cfg config.SettlementConfig,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		holdRepo:   holdRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		transactor: transactor,
		publisher:  publisher,
		cfg:        cfg,
		log:        log,
	}
}

// ResolveHold settles a hold to RELEASED or REFUNDED. Replaying the same
// resolution returns the settled hold; requesting the opposite outcome on an
// already-settled hold is a state-transition conflict. Version conflicts are
// retried internally up to the configured bound before surfacing.
func (s *SettlementServiceImpl) ResolveHold(ctx context.Context, holdID uuid.UUID, outcome domain.ResolveOutcome, idempotencyKey string) (*domain.EscrowHold, error) {
	if idempotencyKey == "" {
		return nil, apperror.ErrIdempotencyKeyRequired()
	}
	if outcome != domain.OutcomeRelease && outcome != domain.OutcomeRefund {
		return nil, apperror.Validation("unknown resolve outcome")
	}

	opKey := domain.BuildOperationKey(domain.OpResolveHold, idempotencyKey)

	if cached, err := checkIdempotency(ctx, s.idempCache, s.idempRepo, s.log, opKey); err != nil {
		return nil, err
	} else if cached != nil {
		hold, err := unmarshalHold(cached)
		if err != nil {
			return nil, err
		}
		// A replay must ask for the outcome that already happened; the same
		// key with the opposite outcome is a conflicting request, not a
		// retry.
		if !hold.MatchesOutcome(outcome) {
			return nil, apperror.ErrInvalidStateTransition(
				fmt.Sprintf("hold is %s, cannot %s", hold.Status, outcome))
		}
		return hold, nil
	}

	retries := s.cfg.MaxResolveRetries
	if retries < 1 {
		retries = 1
	}

	for attempt := 1; attempt <= retries; attempt++ {
		hold, err := s.resolveOnce(ctx, holdID, outcome, opKey)
		if err == nil {
			return hold, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		s.log.Warn().
			Str("hold_id", holdID.String()).
			Int("attempt", attempt).
			Msg("version conflict during settlement, retrying")
	}

	return nil, apperror.ErrConcurrentModification()
}

// resolveOnce runs a single settlement attempt in one database transaction.
func (s *SettlementServiceImpl) resolveOnce(ctx context.Context, holdID uuid.UUID, outcome domain.ResolveOutcome, opKey string) (*domain.EscrowHold, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	// Lock order: hold first, then credit wallet, then fee wallet.
	hold, err := s.holdRepo.GetByIDForUpdate(ctx, dbTx, holdID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock hold: %w", err))
	}
	if hold == nil {
		return nil, apperror.ErrInvalidStateTransition("hold does not exist")
	}
	if hold.IsTerminal() {
		if hold.MatchesOutcome(outcome) {
			return hold, nil
		}
		return nil, apperror.ErrInvalidStateTransition(
			fmt.Sprintf("hold is %s, cannot %s", hold.Status, outcome))
	}

	creditWalletID := hold.PayeeWalletID
	if outcome == domain.OutcomeRefund {
		creditWalletID = hold.PayerWalletID
	}

	creditWallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, creditWalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock credit wallet: %w", err))
	}
	if creditWallet == nil {
		return nil, apperror.InternalError(fmt.Errorf("credit wallet %s missing for hold %s", creditWalletID, hold.ID))
	}

	// Platform fee applies only when funds move to the payee.
	fee := int64(0)
	if outcome == domain.OutcomeRelease && s.cfg.FeeBps > 0 {
		fee = hold.Amount * s.cfg.FeeBps / 10000
	}
	creditAmount := hold.Amount - fee

	kind := domain.TransactionKindEscrowRelease
	if outcome == domain.OutcomeRefund {
		kind = domain.TransactionKindEscrowRefund
	}

	creditEntry, _, err := applyEntry(ctx, dbTx, s.walletRepo, s.txRepo, creditWallet, ledgerEntryInput{
		walletID:       creditWallet.ID,
		amount:         creditAmount,
		kind:           kind,
		reference:      hold.ContractRef,
		idempotencyKey: opKey,
	}, now)
	if err != nil {
		return nil, err
	}

	var feeWallet *domain.Wallet
	var feeEntry *domain.WalletTransaction
	if fee > 0 {
		feeWallet, err = s.walletRepo.GetByOwnerRefForUpdate(ctx, dbTx, s.cfg.FeeWalletOwnerRef)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock fee wallet: %w", err))
		}
		if feeWallet == nil {
			feeWallet = domain.NewWallet(s.cfg.FeeWalletOwnerRef, domain.OwnerKindAgency, hold.Currency, now)
			if err := s.walletRepo.Create(ctx, dbTx, feeWallet); err != nil {
				return nil, apperror.ErrStorageUnavailable(fmt.Errorf("create fee wallet: %w", err))
			}
		}
		feeEntry, _, err = applyEntry(ctx, dbTx, s.walletRepo, s.txRepo, feeWallet, ledgerEntryInput{
			walletID:       feeWallet.ID,
			amount:         fee,
			kind:           domain.TransactionKindFee,
			reference:      hold.ContractRef,
			idempotencyKey: opKey,
		}, now)
		if err != nil {
			return nil, err
		}
	}

	reason := strings.ToLower(string(outcome))
	newStatus := domain.StatusFor(outcome)
	if err := s.holdRepo.UpdateStatus(ctx, dbTx, hold.ID, newStatus, now, reason); err != nil {
		if errors.Is(err, domain.ErrNotHeld) {
			// Settled between the read and the conditional update.
			return nil, apperror.ErrInvalidStateTransition("hold already settled")
		}
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("settle hold: %w", err))
	}
	hold.Status = newStatus
	hold.ResolvedAt = &now
	hold.ResolutionReason = reason

	respJSON, err := json.Marshal(hold)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
		Key:          opKey,
		Operation:    domain.OpResolveHold,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("save idempotency log: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	cacheResponse(ctx, s.idempCache, s.log, opKey, respJSON)
	publishBalance(ctx, s.publisher, s.log, creditWallet, creditEntry.ID, now)
	if feeWallet != nil && feeEntry != nil {
		publishBalance(ctx, s.publisher, s.log, feeWallet, feeEntry.ID, now)
	}

	s.log.Info().
		Str("hold_id", hold.ID.String()).
		Str("contract_ref", hold.ContractRef).
		Str("outcome", string(outcome)).
		Int64("amount", creditAmount).
		Int64("fee", fee).
		Msg("escrow hold settled")

	return hold, nil
}

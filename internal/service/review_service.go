package service

import (
	"context"
	"fmt"

	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

// ReviewServiceImpl implements ports.ReviewService. It is the coordinator
// between external Proof of Task / Proof of Project review decisions and the
// settlement engine: APPROVED releases the contract's hold to the payee,
// REJECTED refunds the payer, REVISION_REQUESTED moves nothing.
type ReviewServiceImpl struct {
	holdRepo   ports.HoldRepository
	walletRepo ports.WalletRepository
	settlement ports.SettlementService
	revocation ports.RevocationService
	log        zerolog.Logger
}

// NewReviewService creates a new ReviewServiceImpl.
func NewReviewService(
	holdRepo ports.HoldRepository,
	walletRepo ports.WalletRepository,
	settlement ports.SettlementService,
	revocation ports.RevocationService,
	log zerolog.Logger,
) *ReviewServiceImpl {
	return &ReviewServiceImpl{
		holdRepo:   holdRepo,
		walletRepo: walletRepo,
		settlement: settlement,
		revocation: revocation,
		log:        log,
	}
}

// ApplyReviewDecision translates one review decision into at most one
// settlement. The decision ID keys the settlement, so webhook retries and
// re-deliveries of the same decision collapse to a single financial effect.
// Contracts without a hold are not escrow-backed and the decision is a no-op.
func (s *ReviewServiceImpl) ApplyReviewDecision(ctx context.Context, req ports.ReviewRequest) (*ports.ReviewResult, error) {
	if req.TargetRef == "" {
		return nil, apperror.Validation("target reference is required")
	}
	if req.DecisionID == "" {
		return nil, apperror.Validation("decision ID is required")
	}
	if !req.Decision.Valid() {
		return nil, apperror.Validation("unknown review decision")
	}

	if req.Decision == domain.DecisionRevisionRequested {
		s.log.Info().
			Str("target_ref", req.TargetRef).
			Str("decision_id", req.DecisionID).
			Msg("revision requested, escrow untouched")
		return &ports.ReviewResult{Outcome: domain.ResolutionNoOp}, nil
	}

	hold, err := s.holdRepo.GetByContractRef(ctx, req.TargetRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get hold by contract: %w", err))
	}
	if hold == nil {
		s.log.Info().
			Str("target_ref", req.TargetRef).
			Str("decision_id", req.DecisionID).
			Msg("no hold for contract, decision is a no-op")
		return &ports.ReviewResult{Outcome: domain.ResolutionNoOp}, nil
	}

	// A hold that is already terminal means this decision is a re-delivery;
	// the settlement replay below is safe, but its side effects (the payee
	// access revocation) must not run twice.
	alreadySettled := hold.IsTerminal()

	outcome := domain.OutcomeRelease
	if req.Decision == domain.DecisionRejected {
		outcome = domain.OutcomeRefund
	}

	key := domain.BuildDecisionIdempotencyKey(req.TargetRef, req.DecisionID)
	settled, err := s.settlement.ResolveHold(ctx, hold.ID, outcome, key)
	if err != nil {
		return nil, err
	}

	result := &ports.ReviewResult{Hold: settled}
	switch settled.Status {
	case domain.HoldStatusReleased:
		result.Outcome = domain.ResolutionReleased
		if !alreadySettled {
			s.enqueueRevocation(ctx, settled)
		}
	case domain.HoldStatusRefunded:
		result.Outcome = domain.ResolutionRefunded
	default:
		result.Outcome = domain.ResolutionNoOp
	}

	s.log.Info().
		Str("target_ref", req.TargetRef).
		Str("decision_id", req.DecisionID).
		Str("decision", string(req.Decision)).
		Str("reviewer", req.ReviewerRef).
		Str("outcome", string(result.Outcome)).
		Msg("review decision applied")

	return result, nil
}

// enqueueRevocation records the advisory access revocation for a released
// hold. Failures are logged; they never fail the review.
func (s *ReviewServiceImpl) enqueueRevocation(ctx context.Context, hold *domain.EscrowHold) {
	if s.revocation == nil {
		return
	}
	payee, err := s.walletRepo.GetByID(ctx, hold.PayeeWalletID)
	if err != nil || payee == nil {
		s.log.Warn().Err(err).
			Str("hold_id", hold.ID.String()).
			Msg("could not resolve payee for access revocation")
		return
	}
	if err := s.revocation.EnqueueForHold(ctx, hold, payee.OwnerRef); err != nil {
		s.log.Warn().Err(err).
			Str("hold_id", hold.ID.String()).
			Str("grantee", payee.OwnerRef).
			Msg("failed to enqueue access revocation")
	}
}

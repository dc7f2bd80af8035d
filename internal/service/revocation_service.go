package service

import (
	"context"
	"fmt"
	"time"

	"escrow-settlement-engine/config"
	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Retry schedule for revocation delivery. After the last step the row is
// marked FAILED and left for manual inspection.
var revocationRetrySchedule = []time.Duration{
	15 * time.Second,
	1 * time.Minute,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

const revocationDeliveryTimeout = 10 * time.Second

// RevocationServiceImpl implements ports.RevocationService using an outbox:
// the intent is persisted first, delivery happens asynchronously, and a
// background loop re-dispatches rows whose retry time has come. A dead
// identity service therefore delays revocations without ever blocking or
// failing a settlement.
type RevocationServiceImpl struct {
	repo    ports.RevocationRepository
	revoker ports.AccessRevoker
	cfg     config.RevocationConfig
	log     zerolog.Logger
}

// NewRevocationService creates a new RevocationServiceImpl.
func NewRevocationService(
	repo ports.RevocationRepository,
	revoker ports.AccessRevoker,
	cfg config.RevocationConfig,
	log zerolog.Logger,
) *RevocationServiceImpl {
	return &RevocationServiceImpl{
		repo:    repo,
		revoker: revoker,
		cfg:     cfg,
		log:     log,
	}
}

// EnqueueForHold persists the revocation intent and kicks off the first
// delivery attempt in the background.
func (s *RevocationServiceImpl) EnqueueForHold(ctx context.Context, hold *domain.EscrowHold, granteeRef string) error {
	now := time.Now().UTC()
	rev := &domain.AccessRevocation{
		ID:          uuid.New(),
		HoldID:      hold.ID,
		ContractRef: hold.ContractRef,
		GranteeRef:  granteeRef,
		Status:      domain.RevocationStatusPending,
		Attempt:     0,
		NextRetryAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, rev); err != nil {
		return fmt.Errorf("enqueue revocation: %w", err)
	}

	go func() {
		dctx, cancel := context.WithTimeout(context.Background(), revocationDeliveryTimeout)
		defer cancel()
		s.deliver(dctx, rev)
	}()

	return nil
}

// DispatchPending delivers every outbox row whose retry time has passed.
func (s *RevocationServiceImpl) DispatchPending(ctx context.Context) error {
	batch := s.cfg.BatchSize
	if batch < 1 {
		batch = 50
	}
	pending, err := s.repo.ListPending(ctx, time.Now().UTC(), batch)
	if err != nil {
		return fmt.Errorf("list pending revocations: %w", err)
	}
	for i := range pending {
		s.deliver(ctx, &pending[i])
	}
	return nil
}

// RunRequeueLoop re-dispatches pending revocations on an interval until the
// context is cancelled. Intended to run as a background goroutine.
func (s *RevocationServiceImpl) RunRequeueLoop(ctx context.Context) {
	interval := s.cfg.RequeueInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Msg("revocation requeue loop started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("revocation requeue loop stopped")
			return
		case <-ticker.C:
			if err := s.DispatchPending(ctx); err != nil {
				s.log.Error().Err(err).Msg("revocation dispatch pass failed")
			}
		}
	}
}

// deliver makes one delivery attempt and records the result.
func (s *RevocationServiceImpl) deliver(ctx context.Context, rev *domain.AccessRevocation) {
	now := time.Now().UTC()
	rev.Attempt++
	rev.UpdatedAt = now

	err := s.revoker.Revoke(ctx, rev.ContractRef, rev.GranteeRef)
	if err == nil {
		rev.Status = domain.RevocationStatusDelivered
		rev.LastError = nil
		rev.NextRetryAt = nil
		if uerr := s.repo.Update(ctx, rev); uerr != nil {
			s.log.Error().Err(uerr).Str("revocation_id", rev.ID.String()).Msg("failed to record delivered revocation")
		}
		s.log.Info().
			Str("revocation_id", rev.ID.String()).
			Str("contract_ref", rev.ContractRef).
			Str("grantee", rev.GranteeRef).
			Int("attempt", rev.Attempt).
			Msg("access revocation delivered")
		return
	}

	msg := err.Error()
	rev.LastError = &msg
	if rev.Attempt > len(revocationRetrySchedule) {
		rev.Status = domain.RevocationStatusFailed
		rev.NextRetryAt = nil
		s.log.Error().Err(err).
			Str("revocation_id", rev.ID.String()).
			Str("contract_ref", rev.ContractRef).
			Int("attempt", rev.Attempt).
			Msg("access revocation exhausted retries")
	} else {
		next := now.Add(revocationRetrySchedule[rev.Attempt-1])
		rev.NextRetryAt = &next
		s.log.Warn().Err(err).
			Str("revocation_id", rev.ID.String()).
			Str("contract_ref", rev.ContractRef).
			Int("attempt", rev.Attempt).
			Time("next_retry_at", next).
			Msg("access revocation delivery failed, scheduled retry")
	}

	if uerr := s.repo.Update(ctx, rev); uerr != nil {
		s.log.Error().Err(uerr).Str("revocation_id", rev.ID.String()).Msg("failed to record revocation attempt")
	}
}

package app

import (
	"context"
	"errors"

	"github.com/casaverde/rewards-api/internal/clock"
	"github.com/casaverde/rewards-api/internal/domain"
	"github.com/casaverde/rewards-api/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReservationProtocol is the slice of ReservationService the
// orchestrator needs.
type ReservationProtocol interface {
	Verify(ctx context.Context, unitID, agentID string) (int, error)
	Release(ctx context.Context, unitID, agentID string)
	Finalize(ctx context.Context, unitID, agentID string, observedStock int)
}

// LedgerDispatcher records a redemption in the external system of
// record and returns its reference.
type LedgerDispatcher interface {
	Record(ctx context.Context, entry domain.LedgerEntry) (string, error)
}

// RedemptionRecorder persists the local receipt mirror.
type RedemptionRecorder interface {
	Create(ctx context.Context, red domain.Redemption) error
}

// RedemptionService sequences one redemption attempt:
// verify -> dispatch to ledger -> finalize. A verify failure aborts
// with no side effects; a dispatch failure is terminal for the attempt
// and releases the lease best-effort; finalize runs after the user has
// already been told the redemption succeeded, so its outcome never
// reaches the caller.
type RedemptionService struct {
	reservations ReservationProtocol
	ledger       LedgerDispatcher
	receipts     RedemptionRecorder
	clock        clock.Clock
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

func NewRedemptionService(reservations ReservationProtocol, ledger LedgerDispatcher, receipts RedemptionRecorder, clk clock.Clock, logger zerolog.Logger, m *metrics.Metrics) *RedemptionService {
	return &RedemptionService{
		reservations: reservations,
		ledger:       ledger,
		receipts:     receipts,
		clock:        clk,
		logger:       logger,
		metrics:      m,
	}
}

type RedeemInput struct {
	UnitID   string
	AgentID  string
	BuyerRef string
}

type RedeemResult struct {
	RedemptionID   string
	LedgerRef      string
	RemainingStock int
}

func (s *RedemptionService) Redeem(ctx context.Context, in RedeemInput) (RedeemResult, error) {
	stock, err := s.reservations.Verify(ctx, in.UnitID, in.AgentID)
	if err != nil {
		return RedeemResult{}, err
	}

	attemptID := uuid.NewString()
	entry := domain.LedgerEntry{
		AttemptID:     attemptID,
		UnitID:        in.UnitID,
		AgentID:       in.AgentID,
		BuyerRef:      in.BuyerRef,
		ObservedStock: stock,
	}

	ledgerRef, err := s.ledger.Record(ctx, entry)
	if err != nil {
		s.metrics.LedgerDispatchFailures.Inc()
		s.logger.Error().
			Err(err).
			Str("unit_id", in.UnitID).
			Str("agent_id", in.AgentID).
			Str("attempt_id", attemptID).
			Msg("ledger dispatch failed")
		s.reservations.Release(ctx, in.UnitID, in.AgentID)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return RedeemResult{}, err
		}
		return RedeemResult{}, domain.ErrLedgerDispatchFailed
	}

	// From here on the redemption has happened; nothing below may fail
	// the attempt.
	receipt := domain.Redemption{
		ID:        attemptID,
		UnitID:    in.UnitID,
		AgentID:   in.AgentID,
		BuyerRef:  in.BuyerRef,
		LedgerRef: ledgerRef,
		CreatedAt: s.clock.Now(),
	}
	if err := s.receipts.Create(ctx, receipt); err != nil {
		s.logger.Error().
			Err(err).
			Str("unit_id", in.UnitID).
			Str("ledger_ref", ledgerRef).
			Msg("local receipt write failed")
	}

	s.reservations.Finalize(ctx, in.UnitID, in.AgentID, stock)
	s.metrics.RedemptionsCompleted.Inc()

	return RedeemResult{
		RedemptionID:   attemptID,
		LedgerRef:      ledgerRef,
		RemainingStock: stock,
	}, nil
}

package app

import (
	"context"
	"errors"
	"time"

	"github.com/casaverde/rewards-api/internal/clock"
	"github.com/casaverde/rewards-api/internal/domain"
	"github.com/casaverde/rewards-api/internal/metrics"
	"github.com/rs/zerolog"
)

type AllocationRepository interface {
	Get(ctx context.Context, unitID string) (domain.UnitAllocation, error)
	Claim(ctx context.Context, unitID, agentID, buyerRef string, now, expiresAt time.Time) (claimed bool, heldBy string, err error)
	Release(ctx context.Context, unitID, agentID string, now time.Time) error
	Finalize(ctx context.Context, unitID, agentID string, now time.Time) (bool, error)
	ReleaseExpiredBefore(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// ReservationService implements the lease protocol over the allocation
// row: create, verify, release, finalize. Mutations go through the
// repository's conditional updates; this layer owns validation, lease
// classification on the read path, and the best-effort cleanup policy.
type ReservationService struct {
	repo       AllocationRepository
	clock      clock.Clock
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	defaultTTL time.Duration
}

const defaultReservationTTL = 15 * time.Minute

func NewReservationService(repo AllocationRepository, clk clock.Clock, logger zerolog.Logger, m *metrics.Metrics, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		repo:       repo,
		clock:      clk,
		logger:     logger,
		metrics:    m,
		defaultTTL: defaultReservationTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithReservationTTL overrides the default lease duration.
func WithReservationTTL(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.defaultTTL = d
		}
	}
}

// DefaultTTL reports the lease duration used when the caller does not
// ask for one.
func (s *ReservationService) DefaultTTL() time.Duration {
	return s.defaultTTL
}

type CreateReservationInput struct {
	UnitID   string
	AgentID  string
	BuyerRef string
	// Duration zero means the service default.
	Duration time.Duration
}

type CreateReservationResult struct {
	ExpiresAt time.Time
}

// Create claims the slot for the agent. It succeeds when the slot is
// free, its lease has expired, or the agent already holds it (a resume
// after the payment redirect extends the same lease). A losing call
// returns *domain.ConflictError carrying the current holder. Stock is
// never touched here.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (CreateReservationResult, error) {
	if in.UnitID == "" {
		return CreateReservationResult{}, domain.ErrUnitNotFound
	}
	if in.AgentID == "" {
		return CreateReservationResult{}, domain.ErrAgentRequired
	}
	if in.BuyerRef == "" {
		return CreateReservationResult{}, domain.ErrBuyerRefRequired
	}
	duration := in.Duration
	if duration == 0 {
		duration = s.defaultTTL
	}
	if duration < 0 {
		return CreateReservationResult{}, domain.ErrInvalidDuration
	}

	now := s.clock.Now()
	expiresAt := domain.LeaseExpiry(now, duration)

	claimed, heldBy, err := s.repo.Claim(ctx, in.UnitID, in.AgentID, in.BuyerRef, now, expiresAt)
	if err != nil {
		return CreateReservationResult{}, err
	}
	if !claimed {
		s.metrics.ClaimConflicts.Inc()
		return CreateReservationResult{}, &domain.ConflictError{HeldBy: heldBy}
	}

	s.metrics.ClaimsGranted.Inc()
	return CreateReservationResult{ExpiresAt: expiresAt}, nil
}

// Verify reports whether the agent may proceed to the ledger write. It
// fails closed: a missing row, an absent, foreign or expired lease, and
// exhausted stock are all domain.ErrNotRedeemable. No mutation.
func (s *ReservationService) Verify(ctx context.Context, unitID, agentID string) (int, error) {
	if unitID == "" || agentID == "" {
		s.metrics.VerifyRejections.Inc()
		return 0, domain.ErrNotRedeemable
	}

	alloc, err := s.repo.Get(ctx, unitID)
	if err != nil {
		if errors.Is(err, domain.ErrUnitNotFound) || errors.Is(err, domain.ErrInvalidID) {
			s.metrics.VerifyRejections.Inc()
			return 0, domain.ErrNotRedeemable
		}
		return 0, err
	}

	now := s.clock.Now()
	if alloc.LeaseState(agentID, now) != domain.LeaseMine || alloc.RemainingStock <= 0 {
		s.metrics.VerifyRejections.Inc()
		return 0, domain.ErrNotRedeemable
	}
	return alloc.RemainingStock, nil
}

// Release clears the agent's lease if still held; otherwise it is a
// silent no-op. Errors are logged and swallowed: courtesy cleanup must
// never fail the primary flow.
func (s *ReservationService) Release(ctx context.Context, unitID, agentID string) {
	if unitID == "" || agentID == "" {
		return
	}
	if err := s.repo.Release(ctx, unitID, agentID, s.clock.Now()); err != nil {
		s.metrics.ReleaseFailures.Inc()
		s.logger.Warn().
			Err(err).
			Str("unit_id", unitID).
			Str("agent_id", agentID).
			Msg("lease release failed")
	}
}

// Finalize decrements stock by one (floored at zero) and clears the
// lease, gated on the agent still holding it. It runs only after the
// ledger write has been accepted, so every failure mode is swallowed:
// the ledger record is the durable truth and the row is a best-effort
// availability signal. observedStock is the verify-time reading, kept
// for drift triage in the logs.
func (s *ReservationService) Finalize(ctx context.Context, unitID, agentID string, observedStock int) {
	applied, err := s.repo.Finalize(ctx, unitID, agentID, s.clock.Now())
	if err != nil {
		s.metrics.FinalizeFailures.Inc()
		s.logger.Error().
			Err(err).
			Str("unit_id", unitID).
			Str("agent_id", agentID).
			Int("observed_stock", observedStock).
			Msg("finalize failed; inventory may drift from ledger")
		return
	}
	if !applied {
		s.metrics.FinalizeFailures.Inc()
		s.logger.Warn().
			Str("unit_id", unitID).
			Str("agent_id", agentID).
			Int("observed_stock", observedStock).
			Msg("finalize matched no lease; decrement skipped")
	}
}

// SweepExpired clears leases whose expiry passed more than grace ago.
// Purely garbage collection; readers already ignore expired leases.
func (s *ReservationService) SweepExpired(ctx context.Context, grace time.Duration) (int64, error) {
	now := s.clock.Now()
	count, err := s.repo.ReleaseExpiredBefore(ctx, now.Add(-grace), now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.metrics.LeasesSwept.Add(float64(count))
		s.logger.Info().Int64("count", count).Msg("expired leases swept")
	}
	return count, nil
}

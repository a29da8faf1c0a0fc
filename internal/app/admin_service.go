package app

import (
	"context"

	"github.com/casaverde/rewards-api/internal/domain"
)

type AllocationLister interface {
	List(ctx context.Context) ([]domain.UnitAllocation, error)
}

type RedemptionHistory interface {
	ListByAgent(ctx context.Context, agentID string, limit int) ([]domain.Redemption, error)
}

// AdminService backs the dashboard's read-only availability and history
// views. Slot provisioning happens in catalogue tooling, not here.
type AdminService struct {
	allocations AllocationLister
	redemptions RedemptionHistory
}

func NewAdminService(allocations AllocationLister, redemptions RedemptionHistory) *AdminService {
	return &AdminService{
		allocations: allocations,
		redemptions: redemptions,
	}
}

func (s *AdminService) ListAllocations(ctx context.Context) ([]domain.UnitAllocation, error) {
	return s.allocations.List(ctx)
}

const defaultHistoryLimit = 50

func (s *AdminService) ListAgentRedemptions(ctx context.Context, agentID string, limit int) ([]domain.Redemption, error) {
	if agentID == "" {
		return nil, domain.ErrAgentRequired
	}
	if limit <= 0 || limit > 200 {
		limit = defaultHistoryLimit
	}
	return s.redemptions.ListByAgent(ctx, agentID, limit)
}

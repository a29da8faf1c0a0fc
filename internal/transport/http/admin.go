package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/casaverde/rewards-api/internal/domain"
)

// AdminAllocationService is the minimal interface for the availability view.
type AdminAllocationService interface {
	ListAllocations(ctx context.Context) ([]domain.UnitAllocation, error)
}

// AdminRedemptionService is the minimal interface for the history view.
type AdminRedemptionService interface {
	ListAgentRedemptions(ctx context.Context, agentID string, limit int) ([]domain.Redemption, error)
}

// HandleAdminAllocations lists every slot with its stock and lease
// state for the dashboard's admin view.
func HandleAdminAllocations(svc AdminAllocationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		allocations, err := svc.ListAllocations(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		resp := make([]allocationResponse, 0, len(allocations))
		for _, a := range allocations {
			resp = append(resp, allocationResponse{
				ID:                   a.ID,
				CatalogueID:          a.CatalogueID,
				UnitLabel:            a.UnitLabel,
				MaxStock:             a.MaxStock,
				RemainingStock:       a.RemainingStock,
				ReleasedStatus:       string(a.ReleasedStatus),
				ReservedBy:           a.ReservedBy,
				ReservedAt:           a.ReservedAt,
				ReservationExpiresAt: a.ReservationExpiresAt,
				SyncedAt:             a.SyncedAt,
				UpdatedAt:            a.UpdatedAt,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleAdminRedemptions lists an agent's recent redemption receipts.
func HandleAdminRedemptions(svc AdminRedemptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		q := r.URL.Query()
		agentID := q.Get("agent_id")
		limit := 0
		if raw := q.Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid limit")
				return
			}
			limit = parsed
		}

		redemptions, err := svc.ListAgentRedemptions(r.Context(), agentID, limit)
		if err != nil {
			if errors.Is(err, domain.ErrAgentRequired) {
				writeError(w, http.StatusBadRequest, codeAgentRequired, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		resp := make([]redemptionResponse, 0, len(redemptions))
		for _, red := range redemptions {
			resp = append(resp, redemptionResponse{
				ID:        red.ID,
				UnitID:    red.UnitID,
				AgentID:   red.AgentID,
				BuyerRef:  red.BuyerRef,
				LedgerRef: red.LedgerRef,
				CreatedAt: red.CreatedAt,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type allocationResponse struct {
	ID                   string     `json:"id"`
	CatalogueID          string     `json:"catalogue_id"`
	UnitLabel            string     `json:"unit_label"`
	MaxStock             int        `json:"max_stock"`
	RemainingStock       int        `json:"remaining_stock"`
	ReleasedStatus       string     `json:"released_status"`
	ReservedBy           *string    `json:"reserved_by,omitempty"`
	ReservedAt           *time.Time `json:"reserved_at,omitempty"`
	ReservationExpiresAt *time.Time `json:"reservation_expires_at,omitempty"`
	SyncedAt             time.Time  `json:"synced_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type redemptionResponse struct {
	ID        string    `json:"id"`
	UnitID    string    `json:"unit_id"`
	AgentID   string    `json:"agent_id"`
	BuyerRef  string    `json:"buyer_ref"`
	LedgerRef string    `json:"ledger_ref"`
	CreatedAt time.Time `json:"created_at"`
}

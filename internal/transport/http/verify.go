package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/casaverde/rewards-api/internal/domain"
)

// ReservationVerifier is the minimal interface for the pre-commit
// ownership check.
type ReservationVerifier interface {
	Verify(ctx context.Context, unitID, agentID string) (int, error)
}

// HandleVerifyReservation is the internal pre-commit check used by the
// redemption path. The answer is deliberately binary: every fail-closed
// case reads the same to the caller.
func HandleVerifyReservation(svc ReservationVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		q := r.URL.Query()
		unitID := q.Get("unit_id")
		agentID := q.Get("agent_id")

		stock, err := svc.Verify(r.Context(), unitID, agentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotRedeemable) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(verifyReservationResponse{OK: false})
				return
			}
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(verifyReservationResponse{OK: true, RemainingStock: stock})
	}
}

type verifyReservationResponse struct {
	OK             bool `json:"ok"`
	RemainingStock int  `json:"remaining_stock"`
}

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/casaverde/rewards-api/internal/app"
)

// HandleResumeReservation is the payment-provider return target. The
// redirect destroyed the client's in-memory state, so the unit and
// buyer reference come back as query parameters and the lease is
// re-claimed with the same agent identity. The protocol treats that as
// extending the agent's own lease, not a competing claim.
func HandleResumeReservation(svc ReservationCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		q := r.URL.Query()
		state, err := app.ParseResumeState(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
			return
		}
		agentID := q.Get("agent_id")
		if agentID == "" {
			writeError(w, http.StatusBadRequest, codeAgentRequired, "agent_id is required")
			return
		}

		res, err := svc.Create(r.Context(), app.CreateReservationInput{
			UnitID:   state.UnitID,
			AgentID:  agentID,
			BuyerRef: state.BuyerRef,
		})
		if err != nil {
			writeCreateError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resumeReservationResponse{
			UnitID:    state.UnitID,
			BuyerRef:  state.BuyerRef,
			ExpiresAt: res.ExpiresAt,
		})
	}
}

type resumeReservationResponse struct {
	UnitID    string    `json:"unit_id"`
	BuyerRef  string    `json:"buyer_ref"`
	ExpiresAt time.Time `json:"expires_at"`
}

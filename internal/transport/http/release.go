package http

import (
	"context"
	"encoding/json"
	"net/http"
)

// ReservationReleaser is the minimal interface for courtesy cleanup.
type ReservationReleaser interface {
	Release(ctx context.Context, unitID, agentID string)
}

// HandleReleaseReservation clears a lease best-effort. It always
// answers 200: the client may be unloading the page and a failed
// release only delays reclamation until the lease expires.
func HandleReleaseReservation(svc ReservationReleaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req releaseReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err == nil {
			svc.Release(r.Context(), req.UnitID, req.AgentID)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}
}

type releaseReservationRequest struct {
	UnitID  string `json:"unit_id"`
	AgentID string `json:"agent_id"`
}

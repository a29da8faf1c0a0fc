package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/casaverde/rewards-api/internal/app"
	"github.com/casaverde/rewards-api/internal/domain"
)

// ReservationCreator is the minimal interface needed to claim a slot.
type ReservationCreator interface {
	Create(ctx context.Context, in app.CreateReservationInput) (app.CreateReservationResult, error)
}

// HandleCreateReservation claims a unit-allocation lease. A losing
// claim answers 409 with the current holder so the client can
// distinguish a foreign lease from its own pre-redirect one.
func HandleCreateReservation(svc ReservationCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if code, msg := req.validate(); code != "" {
			writeError(w, http.StatusBadRequest, code, msg)
			return
		}

		res, err := svc.Create(r.Context(), app.CreateReservationInput{
			UnitID:   req.UnitID,
			AgentID:  req.AgentID,
			BuyerRef: req.BuyerRef,
			Duration: time.Duration(req.DurationMinutes) * time.Minute,
		})
		if err != nil {
			writeCreateError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createReservationResponse{ExpiresAt: res.ExpiresAt})
	}
}

func writeCreateError(w http.ResponseWriter, err error) {
	if conflict, ok := domain.AsConflict(err); ok {
		writeConflict(w, conflict.HeldBy)
		return
	}
	switch {
	case errors.Is(err, domain.ErrUnitNotFound):
		writeError(w, http.StatusNotFound, codeUnitNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrAgentRequired):
		writeError(w, http.StatusBadRequest, codeAgentRequired, err.Error())
	case errors.Is(err, domain.ErrBuyerRefRequired):
		writeError(w, http.StatusBadRequest, codeBuyerRefRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, codeInvalidDuration, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type createReservationRequest struct {
	UnitID          string `json:"unit_id"`
	AgentID         string `json:"agent_id"`
	BuyerRef        string `json:"buyer_ref"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (r createReservationRequest) validate() (code, msg string) {
	if r.UnitID == "" {
		return codeInvalidID, "unit_id is required"
	}
	if r.AgentID == "" {
		return codeAgentRequired, domain.ErrAgentRequired.Error()
	}
	if r.BuyerRef == "" {
		return codeBuyerRefRequired, domain.ErrBuyerRefRequired.Error()
	}
	if r.DurationMinutes < 0 {
		return codeInvalidDuration, domain.ErrInvalidDuration.Error()
	}
	return "", ""
}

type createReservationResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

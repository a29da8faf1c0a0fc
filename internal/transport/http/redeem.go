package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/casaverde/rewards-api/internal/app"
	"github.com/casaverde/rewards-api/internal/domain"
)

// Redeemer is the minimal interface needed to run a redemption attempt.
type Redeemer interface {
	Redeem(ctx context.Context, in app.RedeemInput) (app.RedeemResult, error)
}

// HandleRedeem runs verify -> ledger dispatch -> finalize for one
// attempt. A 201 means the ledger accepted the redemption; by then the
// stock decrement is no longer the caller's concern.
func HandleRedeem(svc Redeemer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req redeemRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.UnitID == "" || req.AgentID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "unit_id and agent_id are required")
			return
		}

		res, err := svc.Redeem(r.Context(), app.RedeemInput{
			UnitID:   req.UnitID,
			AgentID:  req.AgentID,
			BuyerRef: req.BuyerRef,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotRedeemable):
				writeError(w, http.StatusConflict, codeNotRedeemable, "reservation expired or unit unavailable, please reselect")
			case errors.Is(err, domain.ErrLedgerDispatchFailed):
				writeError(w, http.StatusBadGateway, codeLedgerDispatchError, "redemption failed, please try again")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(redeemResponse{
			RedemptionID:   res.RedemptionID,
			LedgerRef:      res.LedgerRef,
			RemainingStock: res.RemainingStock,
		})
	}
}

type redeemRequest struct {
	UnitID   string `json:"unit_id"`
	AgentID  string `json:"agent_id"`
	BuyerRef string `json:"buyer_ref"`
}

type redeemResponse struct {
	RedemptionID   string `json:"redemption_id"`
	LedgerRef      string `json:"ledger_ref"`
	RemainingStock int    `json:"remaining_stock"`
}

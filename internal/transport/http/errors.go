package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeInvalidDuration     = "invalid_duration"
	codeAgentRequired       = "agent_required"
	codeBuyerRefRequired    = "buyer_ref_required"
	codeUnitNotFound        = "unit_not_found"
	codeUnitHeld            = "unit_held"
	codeNotRedeemable       = "not_redeemable"
	codeLedgerDispatchError = "ledger_dispatch_failed"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// HeldBy is set only on reservation conflicts so a caller can tell
	// a foreign lease from its own pre-redirect lease.
	HeldBy string `json:"held_by,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeConflict(w http.ResponseWriter, heldBy string) {
	writeErrorResponse(w, http.StatusConflict, errorResponse{
		Error:  "unit allocation is held by another agent",
		Code:   codeUnitHeld,
		HeldBy: heldBy,
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

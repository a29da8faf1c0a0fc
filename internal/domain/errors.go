package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnitNotFound         = errors.New("unit allocation not found")
	ErrAgentRequired        = errors.New("agent identity required")
	ErrBuyerRefRequired     = errors.New("buyer reference required")
	ErrInvalidDuration      = errors.New("invalid reservation duration")
	ErrInvalidID            = errors.New("invalid id")
	ErrNotRedeemable        = errors.New("reservation not redeemable")
	ErrLedgerDispatchFailed = errors.New("ledger dispatch failed")
)

// ConflictError is returned when a create loses to a live lease held by
// another agent. It carries the current holder so the caller can tell
// "someone else has it" apart from "this is my own earlier lease" by
// comparing HeldBy against its own identity.
type ConflictError struct {
	HeldBy string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("unit allocation held by %q", e.HeldBy)
}

// AsConflict unwraps a ConflictError if err carries one.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

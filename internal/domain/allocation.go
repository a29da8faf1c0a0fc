package domain

import "time"

type ReleasedStatus string

const (
	StatusAvailable   ReleasedStatus = "Available"
	StatusNotReleased ReleasedStatus = "Not Released"
)

// StatusForStock derives the catalogue display flag from a stock count.
func StatusForStock(remaining int) ReleasedStatus {
	if remaining > 0 {
		return StatusAvailable
	}
	return StatusNotReleased
}

// UnitAllocation is one sellable slot of a limited-inventory reward.
// The lease fields are nullable together: a non-nil ReservedBy means
// some agent claimed the slot, and ReservationExpiresAt bounds how long
// that claim is honored.
type UnitAllocation struct {
	ID             string
	CatalogueID    string
	UnitLabel      string
	MaxStock       int
	RemainingStock int
	ReleasedStatus ReleasedStatus

	ReservedBy           *string
	ReservedAt           *time.Time
	ReservedLerCode      *string
	ReservationExpiresAt *time.Time

	SyncedAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LeaseState reports how this allocation's lease relates to agentID at
// the given instant.
func (a UnitAllocation) LeaseState(agentID string, now time.Time) LeaseState {
	return ClassifyLease(a.ReservedBy, a.ReservationExpiresAt, agentID, now)
}

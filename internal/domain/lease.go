package domain

import "time"

// LeaseState classifies a slot's lease relative to one agent identity.
type LeaseState int

const (
	// LeaseFree means no agent holds the slot.
	LeaseFree LeaseState = iota
	// LeaseMine means the live lease belongs to the asking agent.
	LeaseMine
	// LeaseForeign means another agent holds a live lease.
	LeaseForeign
	// LeaseExpired means a lease exists but its expiry has passed;
	// every consumer treats it as reclaimable.
	LeaseExpired
)

func (s LeaseState) String() string {
	switch s {
	case LeaseFree:
		return "free"
	case LeaseMine:
		return "mine"
	case LeaseForeign:
		return "foreign"
	case LeaseExpired:
		return "expired"
	}
	return "unknown"
}

// ClassifyLease is the single ownership/staleness decision used on the
// read path. A lease is live when reservedBy is set and expiresAt is
// either absent or still in the future; ownership is exact string
// equality on the agent identity.
func ClassifyLease(reservedBy *string, expiresAt *time.Time, agentID string, now time.Time) LeaseState {
	if reservedBy == nil || *reservedBy == "" {
		return LeaseFree
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return LeaseExpired
	}
	if *reservedBy == agentID {
		return LeaseMine
	}
	return LeaseForeign
}

// LeaseExpiry computes the expiry instant for a claim granted at now.
func LeaseExpiry(now time.Time, duration time.Duration) time.Time {
	return now.Add(duration).UTC()
}

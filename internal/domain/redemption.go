package domain

import "time"

// Redemption is the local receipt of a ledger-accepted redemption. The
// external ledger record is the durable source of truth; this row backs
// the dashboard's history view and reconciliation queries.
type Redemption struct {
	ID        string
	UnitID    string
	AgentID   string
	BuyerRef  string
	LedgerRef string
	CreatedAt time.Time
}

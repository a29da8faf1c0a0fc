package domain

// LedgerEntry is the payload dispatched to the external ledger/webhook
// system, which durably records that a redemption happened.
type LedgerEntry struct {
	AttemptID     string
	UnitID        string
	AgentID       string
	BuyerRef      string
	ObservedStock int
}

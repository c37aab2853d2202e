package domain

import "time"

// LedgerEntry is one immutable row in the stock-movement log. Entries are
// append-only: nothing in the system updates or deletes them.
type LedgerEntry struct {
	ID       string
	ItemID   string
	Action   ActionType
	Quantity float64 // positive magnitude; direction comes from Action

	// Batch linkage, present when the movement received or consumed a
	// tracked batch.
	BatchNumber string
	ExpiryDate  *time.Time

	// UnitCost snapshots the cost supplied with the movement, if any.
	UnitCost *float64

	Notes     string
	ActorID   string
	CreatedAt time.Time
}

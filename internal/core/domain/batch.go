package domain

import "time"

type BatchStatus string

const (
	BatchStatusActive     BatchStatus = "active"
	BatchStatusQuarantine BatchStatus = "quarantine"
	BatchStatusConsumed   BatchStatus = "consumed"
	BatchStatusExpired    BatchStatus = "expired"
	BatchStatusDiscarded  BatchStatus = "discarded"
)

func (s BatchStatus) Valid() bool {
	switch s {
	case BatchStatusActive, BatchStatusQuarantine, BatchStatusConsumed,
		BatchStatusExpired, BatchStatusDiscarded:
		return true
	}
	return false
}

// CanTransition reports whether a user-selected status change is allowed.
// Only active and quarantine have exits; consumed, expired and discarded
// are terminal.
func (s BatchStatus) CanTransition(next BatchStatus) bool {
	if s == next {
		return false
	}
	switch s {
	case BatchStatusActive:
		return next == BatchStatusQuarantine || next == BatchStatusConsumed ||
			next == BatchStatusExpired || next == BatchStatusDiscarded
	case BatchStatusQuarantine:
		return next == BatchStatusActive || next == BatchStatusConsumed ||
			next == BatchStatusExpired || next == BatchStatusDiscarded
	}
	return false
}

// Batch is one received lot of a batch-tracked item. The item reference is
// immutable after creation and batches are never deleted; their lifetime is
// expressed through Status.
type Batch struct {
	ID                string
	BatchNumber       string
	ItemID            string
	QuantityReceived  float64
	ManufacturingDate *time.Time
	ExpiryDate        *time.Time
	ReceivedDate      time.Time
	SupplierID        string
	PurchaseOrderRef  string
	CostPerUnit       float64
	Status            BatchStatus
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

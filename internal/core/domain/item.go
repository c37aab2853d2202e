package domain

import "time"

type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusInactive ItemStatus = "inactive"
	ItemStatusDamaged  ItemStatus = "damaged"
	ItemStatusExpired  ItemStatus = "expired"
)

// Item is the current-quantity snapshot for one inventory item. Items are
// never deleted; they are retired by a status change.
type Item struct {
	ID              string
	SKU             string
	Name            string
	CategoryID      string
	SupplierID      string
	CurrentQuantity float64
	ReorderLevel    float64
	MaximumLevel    float64
	UnitCost        float64
	UnitOfMeasure   string
	Status          ItemStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LowStock reports whether the item has fallen to or below its reorder level.
func (i Item) LowStock() bool {
	return i.CurrentQuantity <= i.ReorderLevel
}

package port

import "context"

type CacheRepository interface {
	// GetQuantity returns the cached current quantity, ok=false on a miss
	GetQuantity(ctx context.Context, itemID string) (quantity float64, ok bool, err error)

	// SetQuantity stores the current quantity for fast reads
	SetQuantity(ctx context.Context, itemID string, quantity float64) error

	// InvalidateQuantity drops the cached value after a committed movement
	InvalidateQuantity(ctx context.Context, itemID string) error
}

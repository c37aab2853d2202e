package port

import (
	"context"
	"errors"
	"time"

	"github.com/purefarm/stock-ledger/internal/core/domain"
)

var (
	// ErrItemNotFound is returned by write paths whose target item row does
	// not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrInsufficientStock is returned when a removal would take an item's
	// current quantity below zero. The guard lives in the database UPDATE,
	// so it holds under concurrent movements as well.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDuplicateBatch is returned when a batch number collides with an
	// existing batch. Detection is the unique constraint, not a lookup.
	ErrDuplicateBatch = errors.New("duplicate batch number")

	// ErrStaleBatch is returned when a status transition lost a race with a
	// concurrent transition on the same batch.
	ErrStaleBatch = errors.New("batch status changed concurrently")
)

// ItemUpdate carries the optional item fields a movement may overwrite
// alongside the quantity change.
type ItemUpdate struct {
	UnitCost   *float64
	SupplierID string
}

type DatabaseRepository interface {
	// GetItem retrieves an item by ID, nil when it does not exist
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)

	ListItems(ctx context.Context) ([]domain.Item, error)

	// ListLowStock returns active items at or below their reorder level
	ListLowStock(ctx context.Context) ([]domain.Item, error)

	// ApplyMovement updates the item's current quantity and appends the
	// ledger entry in a single transaction, folding any ItemUpdate fields
	// into the same UPDATE.
	ApplyMovement(ctx context.Context, entry domain.LedgerEntry, update ItemUpdate) error

	// CreateBatch inserts the batch, increments the item's current quantity
	// and appends the receipt ledger entry in a single transaction.
	CreateBatch(ctx context.Context, batch domain.Batch, entry domain.LedgerEntry) error

	// GetBatch retrieves a batch by ID, nil when it does not exist
	GetBatch(ctx context.Context, batchID string) (*domain.Batch, error)

	// UpdateBatchStatus transitions a batch guarded on its current status,
	// replacing the notes field with the caller-composed text.
	UpdateBatchStatus(ctx context.Context, batchID string, from, to domain.BatchStatus, notes string, at time.Time) error

	// ListMovements returns an item's ledger entries in chronological order
	ListMovements(ctx context.Context, itemID string) ([]domain.LedgerEntry, error)
}

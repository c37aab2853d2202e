package storage

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purefarm/stock-ledger/internal/core/domain"
	"github.com/purefarm/stock-ledger/internal/port"
)

func newTestDB(t *testing.T) (*sql.DB, *SQLAdapter) {
	t.Helper()
	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, NewSQLiteAdapter(db)
}

func seedItem(t *testing.T, db *sql.DB, id string, qty float64) {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO inventory_items (id, sku, name, current_quantity,
			reorder_level, unit_cost, unit_of_measure, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'active', ?, ?)`,
		id, "SKU-"+id, "Item "+id, qty, 5.0, 10.0, "kg", now, now)
	require.NoError(t, err)
}

func movement(itemID string, action domain.ActionType, qty float64) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		Action:    action,
		Quantity:  qty,
		ActorID:   "user-1",
		CreatedAt: time.Now().UTC(),
	}
}

func currentQuantity(t *testing.T, db *sql.DB, itemID string) float64 {
	t.Helper()
	var qty float64
	require.NoError(t, db.QueryRow(
		`SELECT current_quantity FROM inventory_items WHERE id = ?`, itemID).Scan(&qty))
	return qty
}

func ledgerCount(t *testing.T, db *sql.DB, itemID string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM stock_ledger WHERE item_id = ?`, itemID).Scan(&n))
	return n
}

func TestGetItem_Missing(t *testing.T) {
	_, adapter := newTestDB(t)
	item, err := adapter.GetItem(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestApplyMovement_AddUpdatesSnapshotAndLedger(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 10)

	err := adapter.ApplyMovement(context.Background(),
		movement("item-1", domain.ActionManualAdd, 5), port.ItemUpdate{})
	require.NoError(t, err)

	assert.Equal(t, 15.0, currentQuantity(t, db, "item-1"))
	assert.Equal(t, 1, ledgerCount(t, db, "item-1"))

	entries, err := adapter.ListMovements(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionManualAdd, entries[0].Action)
	assert.Equal(t, 5.0, entries[0].Quantity)
	assert.Equal(t, "user-1", entries[0].ActorID)
}

func TestApplyMovement_RemoveToZero(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 7)

	err := adapter.ApplyMovement(context.Background(),
		movement("item-1", domain.ActionWaste, 7), port.ItemUpdate{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, currentQuantity(t, db, "item-1"))
}

// The guarded UPDATE refuses any removal that would drive the quantity
// negative, regardless of what the caller checked beforehand.
func TestApplyMovement_GuardRejectsOverdraw(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 15)

	err := adapter.ApplyMovement(context.Background(),
		movement("item-1", domain.ActionManualRemove, 20), port.ItemUpdate{})
	assert.ErrorIs(t, err, port.ErrInsufficientStock)

	assert.Equal(t, 15.0, currentQuantity(t, db, "item-1"))
	assert.Equal(t, 0, ledgerCount(t, db, "item-1"))
}

func TestApplyMovement_UnknownItem(t *testing.T) {
	_, adapter := newTestDB(t)

	err := adapter.ApplyMovement(context.Background(),
		movement("ghost", domain.ActionManualAdd, 1), port.ItemUpdate{})
	assert.ErrorIs(t, err, port.ErrItemNotFound)

	err = adapter.ApplyMovement(context.Background(),
		movement("ghost", domain.ActionSale, 1), port.ItemUpdate{})
	assert.ErrorIs(t, err, port.ErrItemNotFound)
}

// If the ledger append fails after the quantity update, the whole
// transaction rolls back and the snapshot is untouched. The failure is
// injected with a trigger that aborts every ledger insert.
func TestApplyMovement_RollbackOnLedgerFailure(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 10)

	_, err := db.Exec(`
		CREATE TRIGGER ledger_disabled BEFORE INSERT ON stock_ledger
		BEGIN SELECT RAISE(ABORT, 'ledger insert disabled'); END`)
	require.NoError(t, err)

	err = adapter.ApplyMovement(context.Background(),
		movement("item-1", domain.ActionManualAdd, 5), port.ItemUpdate{})
	require.Error(t, err)

	assert.Equal(t, 10.0, currentQuantity(t, db, "item-1"))
	assert.Equal(t, 0, ledgerCount(t, db, "item-1"))
}

func TestApplyMovement_UnitCostOverwrite(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 10)

	cost := 11.25
	entry := movement("item-1", domain.ActionManualAdd, 2)
	entry.UnitCost = &cost
	require.NoError(t, adapter.ApplyMovement(context.Background(), entry, port.ItemUpdate{UnitCost: &cost}))

	item, err := adapter.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 11.25, item.UnitCost)

	entries, err := adapter.ListMovements(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].UnitCost)
	assert.Equal(t, 11.25, *entries[0].UnitCost)
}

func TestApplyMovement_SupplierOverwrite(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 10)

	err := adapter.ApplyMovement(context.Background(),
		movement("item-1", domain.ActionManualAdd, 2),
		port.ItemUpdate{SupplierID: "sup-9"})
	require.NoError(t, err)

	item, err := adapter.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, "sup-9", item.SupplierID)
}

// Concurrent removals on one item: exactly as many succeed as there is
// stock, and every success left a ledger row.
func TestApplyMovement_Concurrent(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 20)

	const attempts = 50
	var successes atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := adapter.ApplyMovement(context.Background(),
				movement("item-1", domain.ActionSale, 1), port.ItemUpdate{})
			if err == nil {
				successes.Add(1)
			} else {
				assert.ErrorIs(t, err, port.ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), successes.Load())
	assert.Equal(t, 0.0, currentQuantity(t, db, "item-1"))
	assert.Equal(t, 20, ledgerCount(t, db, "item-1"))
}

func testBatch(itemID, number string, qty float64) domain.Batch {
	now := time.Now().UTC()
	return domain.Batch{
		ID:               uuid.NewString(),
		BatchNumber:      number,
		ItemID:           itemID,
		QuantityReceived: qty,
		ReceivedDate:     now,
		SupplierID:       "sup-1",
		CostPerUnit:      3.5,
		Status:           domain.BatchStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestCreateBatch_RoundTrip(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 0)

	batch := testBatch("item-1", "B-100", 50)
	entry := movement("item-1", domain.ActionManualAdd, 50)
	entry.BatchNumber = "B-100"
	require.NoError(t, adapter.CreateBatch(context.Background(), batch, entry))

	assert.Equal(t, 50.0, currentQuantity(t, db, "item-1"))
	assert.Equal(t, 1, ledgerCount(t, db, "item-1"))

	got, err := adapter.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "B-100", got.BatchNumber)
	assert.Equal(t, domain.BatchStatusActive, got.Status)
	assert.Equal(t, "sup-1", got.SupplierID)
}

// A second batch with the same number must fail from the unique constraint
// and leave the quantity at the value after the first call only.
func TestCreateBatch_DuplicateNumber(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 0)

	first := testBatch("item-1", "B-100", 50)
	entry := movement("item-1", domain.ActionManualAdd, 50)
	require.NoError(t, adapter.CreateBatch(context.Background(), first, entry))

	second := testBatch("item-1", "B-100", 50)
	err := adapter.CreateBatch(context.Background(), second,
		movement("item-1", domain.ActionManualAdd, 50))
	assert.ErrorIs(t, err, port.ErrDuplicateBatch)

	assert.Equal(t, 50.0, currentQuantity(t, db, "item-1"))
	assert.Equal(t, 1, ledgerCount(t, db, "item-1"))
}

// Batch creation is atomic: when the quantity increment cannot land, the
// batch row must not survive either.
func TestCreateBatch_UnknownItemLeavesNothing(t *testing.T) {
	db, adapter := newTestDB(t)

	batch := testBatch("ghost", "B-200", 10)
	err := adapter.CreateBatch(context.Background(), batch,
		movement("ghost", domain.ActionManualAdd, 10))
	assert.ErrorIs(t, err, port.ErrItemNotFound)

	var n int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM item_batches WHERE batch_number = 'B-200'`).Scan(&n))
	assert.Zero(t, n)
}

func TestUpdateBatchStatus_GuardedOnCurrentStatus(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 0)

	batch := testBatch("item-1", "B-100", 50)
	require.NoError(t, adapter.CreateBatch(context.Background(), batch,
		movement("item-1", domain.ActionManualAdd, 50)))

	now := time.Now().UTC()
	err := adapter.UpdateBatchStatus(context.Background(), batch.ID,
		domain.BatchStatusActive, domain.BatchStatusQuarantine, "", now)
	require.NoError(t, err)

	// Same transition again: the guard no longer matches.
	err = adapter.UpdateBatchStatus(context.Background(), batch.ID,
		domain.BatchStatusActive, domain.BatchStatusQuarantine, "", now)
	assert.ErrorIs(t, err, port.ErrStaleBatch)

	got, err := adapter.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusQuarantine, got.Status)
}

func TestListMovements_Chronological(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 100)

	base := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	for i, action := range []domain.ActionType{
		domain.ActionSale, domain.ActionManualAdd, domain.ActionWaste,
	} {
		entry := movement("item-1", action, 1)
		entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, adapter.ApplyMovement(context.Background(), entry, port.ItemUpdate{}))
	}

	entries, err := adapter.ListMovements(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.ActionSale, entries[0].Action)
	assert.Equal(t, domain.ActionManualAdd, entries[1].Action)
	assert.Equal(t, domain.ActionWaste, entries[2].Action)
	assert.True(t, entries[0].CreatedAt.Before(entries[2].CreatedAt))
}

func TestListMovements_SubSecondOrdering(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-1", 100)

	base := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		entry := movement("item-1", domain.ActionSale, 1)
		entry.Notes = string(rune('a' + i))
		entry.CreatedAt = base.Add(time.Duration(i) * 250 * time.Microsecond)
		require.NoError(t, adapter.ApplyMovement(context.Background(), entry, port.ItemUpdate{}))
	}

	entries, err := adapter.ListMovements(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for i, entry := range entries {
		assert.Equal(t, string(rune('a'+i)), entry.Notes)
	}
}

func TestListLowStock(t *testing.T) {
	db, adapter := newTestDB(t)
	seedItem(t, db, "item-low", 3)   // reorder level is 5
	seedItem(t, db, "item-ok", 50)

	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO inventory_items (id, sku, name, current_quantity,
			reorder_level, status, created_at, updated_at)
		VALUES ('item-retired', 'SKU-r', 'Retired', 0, 5, 'inactive', ?, ?)`, now, now)
	require.NoError(t, err)

	items, err := adapter.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "item-low", items[0].ID)
}

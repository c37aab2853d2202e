package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/purefarm/stock-ledger/internal/core/domain"
	"github.com/purefarm/stock-ledger/internal/port"
)

// SQLAdapter implements port.DatabaseRepository over database/sql. The same
// adapter serves MySQL and embedded SQLite; the constructor supplies the
// driver-specific duplicate-key detector. All statements use bound
// parameters only.
type SQLAdapter struct {
	db          *sql.DB
	isDuplicate func(error) bool
}

func (a *SQLAdapter) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	var item domain.Item
	err := a.db.QueryRowContext(ctx, `
		SELECT id, sku, name, category_id, supplier_id, current_quantity,
		       reorder_level, maximum_level, unit_cost, unit_of_measure,
		       status, created_at, updated_at
		FROM inventory_items WHERE id = ?`, itemID,
	).Scan(&item.ID, &item.SKU, &item.Name, &item.CategoryID, &item.SupplierID,
		&item.CurrentQuantity, &item.ReorderLevel, &item.MaximumLevel,
		&item.UnitCost, &item.UnitOfMeasure, &item.Status,
		&item.CreatedAt, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}

	return &item, nil
}

func (a *SQLAdapter) ListItems(ctx context.Context) ([]domain.Item, error) {
	return a.queryItems(ctx, `
		SELECT id, sku, name, category_id, supplier_id, current_quantity,
		       reorder_level, maximum_level, unit_cost, unit_of_measure,
		       status, created_at, updated_at
		FROM inventory_items ORDER BY sku`)
}

func (a *SQLAdapter) ListLowStock(ctx context.Context) ([]domain.Item, error) {
	return a.queryItems(ctx, `
		SELECT id, sku, name, category_id, supplier_id, current_quantity,
		       reorder_level, maximum_level, unit_cost, unit_of_measure,
		       status, created_at, updated_at
		FROM inventory_items
		WHERE status = 'active' AND current_quantity <= reorder_level
		ORDER BY sku`)
}

func (a *SQLAdapter) queryItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.SKU, &item.Name, &item.CategoryID,
			&item.SupplierID, &item.CurrentQuantity, &item.ReorderLevel,
			&item.MaximumLevel, &item.UnitCost, &item.UnitOfMeasure,
			&item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ApplyMovement pairs the quantity update with the ledger append inside one
// transaction. Removal-class movements are guarded so the quantity can never
// go negative, even under concurrent movements on the same item.
func (a *SQLAdapter) ApplyMovement(ctx context.Context, entry domain.LedgerEntry, update port.ItemUpdate) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// The UPDATE is assembled from static fragments; user input only ever
	// travels through bound parameters.
	set := "current_quantity = current_quantity + ?"
	if entry.Action.Removal() {
		set = "current_quantity = current_quantity - ?"
	}
	args := []any{entry.Quantity}
	if update.UnitCost != nil {
		set += ", unit_cost = ?"
		args = append(args, *update.UnitCost)
	}
	if update.SupplierID != "" {
		set += ", supplier_id = ?"
		args = append(args, update.SupplierID)
	}
	set += ", updated_at = ?"
	args = append(args, entry.CreatedAt)

	query := "UPDATE inventory_items SET " + set + " WHERE id = ?"
	args = append(args, entry.ItemID)
	if entry.Action.Removal() {
		query += " AND current_quantity >= ?"
		args = append(args, entry.Quantity)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		if entry.Action.Removal() {
			// Distinguish a missing row from a failed guard.
			if exists, err := a.itemExists(ctx, tx, entry.ItemID); err != nil {
				return err
			} else if exists {
				return port.ErrInsufficientStock
			}
		}
		return port.ErrItemNotFound
	}

	if err := insertLedgerEntry(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// CreateBatch inserts the batch row, increments the item's quantity and
// appends the receipt ledger entry, all in one transaction. A duplicate
// batch number surfaces from the unique constraint as ErrDuplicateBatch.
func (a *SQLAdapter) CreateBatch(ctx context.Context, batch domain.Batch, entry domain.LedgerEntry) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO item_batches (id, batch_number, item_id, quantity_received,
			manufacturing_date, expiry_date, received_date, supplier_id,
			purchase_order_ref, cost_per_unit, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.BatchNumber, batch.ItemID, batch.QuantityReceived,
		batch.ManufacturingDate, batch.ExpiryDate, batch.ReceivedDate,
		nullString(batch.SupplierID), nullString(batch.PurchaseOrderRef),
		batch.CostPerUnit, batch.Status, batch.Notes,
		batch.CreatedAt, batch.UpdatedAt)
	if err != nil {
		if a.isDuplicate(err) {
			return port.ErrDuplicateBatch
		}
		return fmt.Errorf("insert batch: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET current_quantity = current_quantity + ?, updated_at = ?
		WHERE id = ?`,
		batch.QuantityReceived, batch.CreatedAt, batch.ItemID)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrItemNotFound
	}

	if err := insertLedgerEntry(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

func (a *SQLAdapter) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	var (
		batch    domain.Batch
		supplier sql.NullString
		poRef    sql.NullString
		mfgDate  sql.NullTime
		expDate  sql.NullTime
	)
	err := a.db.QueryRowContext(ctx, `
		SELECT id, batch_number, item_id, quantity_received, manufacturing_date,
		       expiry_date, received_date, supplier_id, purchase_order_ref,
		       cost_per_unit, status, notes, created_at, updated_at
		FROM item_batches WHERE id = ?`, batchID,
	).Scan(&batch.ID, &batch.BatchNumber, &batch.ItemID, &batch.QuantityReceived,
		&mfgDate, &expDate, &batch.ReceivedDate, &supplier, &poRef,
		&batch.CostPerUnit, &batch.Status, &batch.Notes,
		&batch.CreatedAt, &batch.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query batch: %w", err)
	}

	batch.SupplierID = supplier.String
	batch.PurchaseOrderRef = poRef.String
	if mfgDate.Valid {
		t := mfgDate.Time
		batch.ManufacturingDate = &t
	}
	if expDate.Valid {
		t := expDate.Time
		batch.ExpiryDate = &t
	}
	return &batch, nil
}

func (a *SQLAdapter) UpdateBatchStatus(ctx context.Context, batchID string, from, to domain.BatchStatus, notes string, at time.Time) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE item_batches
		SET status = ?, notes = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, notes, at, batchID, from)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrStaleBatch
	}
	return nil
}

// ListMovements returns an item's ledger oldest first. created_at carries
// microsecond precision, so it orders same-second entries correctly; id only
// breaks exact timestamp ties deterministically.
func (a *SQLAdapter) ListMovements(ctx context.Context, itemID string) ([]domain.LedgerEntry, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, item_id, action_type, quantity, batch_number, expiry_date,
		       unit_cost, notes, actor_id, created_at
		FROM stock_ledger WHERE item_id = ?
		ORDER BY created_at, id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			entry    domain.LedgerEntry
			batchNum sql.NullString
			expDate  sql.NullTime
			unitCost sql.NullFloat64
		)
		if err := rows.Scan(&entry.ID, &entry.ItemID, &entry.Action,
			&entry.Quantity, &batchNum, &expDate, &unitCost,
			&entry.Notes, &entry.ActorID, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.BatchNumber = batchNum.String
		if expDate.Valid {
			t := expDate.Time
			entry.ExpiryDate = &t
		}
		if unitCost.Valid {
			c := unitCost.Float64
			entry.UnitCost = &c
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (a *SQLAdapter) itemExists(ctx context.Context, tx *sql.Tx, itemID string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_items WHERE id = ?`, itemID).Scan(&n); err != nil {
		return false, fmt.Errorf("check item: %w", err)
	}
	return n > 0, nil
}

func insertLedgerEntry(ctx context.Context, tx *sql.Tx, entry domain.LedgerEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_ledger (id, item_id, action_type, quantity,
			batch_number, expiry_date, unit_cost, notes, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ItemID, entry.Action, entry.Quantity,
		nullString(entry.BatchNumber), entry.ExpiryDate, entry.UnitCost,
		entry.Notes, entry.ActorID, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

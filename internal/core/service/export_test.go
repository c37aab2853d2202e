package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purefarm/stock-ledger/internal/core/domain"
	"github.com/purefarm/stock-ledger/internal/port"
)

func TestExportMovements_RunningBalance(t *testing.T) {
	item := testItem(15)
	db := newMockDB(item)
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	db.entries = []domain.LedgerEntry{
		{ID: "e1", ItemID: "item-1", Action: domain.ActionManualAdd, Quantity: 20, ActorID: "user-1", CreatedAt: base},
		{ID: "e2", ItemID: "item-1", Action: domain.ActionSale, Quantity: 5, ActorID: "user-2", CreatedAt: base.Add(time.Hour)},
	}

	var buf bytes.Buffer
	svc := newTestService(db, newMockCache())
	require.NoError(t, svc.ExportMovements(context.Background(), "item-1", &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"timestamp", "action", "quantity", "balance",
		"batch_number", "unit_cost", "actor", "notes",
	}, records[0])

	// Balances replayed backward from current_quantity=15:
	// after the sale of 5 the balance is 15, so after the add of 20 it was 20.
	assert.Equal(t, "manual_add", records[1][1])
	assert.Equal(t, "20", records[1][2])
	assert.Equal(t, "20", records[1][3])

	assert.Equal(t, "sale", records[2][1])
	assert.Equal(t, "5", records[2][2])
	assert.Equal(t, "15", records[2][3])
}

func TestExportMovements_EmptyLedger(t *testing.T) {
	db := newMockDB(testItem(0))
	svc := newTestService(db, newMockCache())

	var buf bytes.Buffer
	require.NoError(t, svc.ExportMovements(context.Background(), "item-1", &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1, "header only")
}

func TestExportMovements_UnknownItem(t *testing.T) {
	svc := newTestService(newMockDB(), newMockCache())

	var buf bytes.Buffer
	err := svc.ExportMovements(context.Background(), "missing", &buf)
	assert.ErrorIs(t, err, port.ErrItemNotFound)
	assert.Zero(t, buf.Len())
}

package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportMovements streams an item's ledger as CSV in chronological order,
// with a running-balance column. Balances are reconstructed by replaying the
// ledger backward from the current quantity, so the export reconciles the
// snapshot against the log without storing balances anywhere.
func (s *StockService) ExportMovements(ctx context.Context, itemID string, w io.Writer) error {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	entries, err := s.db.ListMovements(ctx, itemID)
	if err != nil {
		return fmt.Errorf("load movements: %w", err)
	}

	balances := make([]float64, len(entries))
	running := item.CurrentQuantity
	for i := len(entries) - 1; i >= 0; i-- {
		balances[i] = running
		running -= entries[i].Action.SignedDelta(entries[i].Quantity)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"timestamp", "action", "quantity", "balance",
		"batch_number", "unit_cost", "actor", "notes",
	}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i, e := range entries {
		unitCost := ""
		if e.UnitCost != nil {
			unitCost = formatQuantity(*e.UnitCost)
		}
		record := []string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			string(e.Action),
			formatQuantity(e.Quantity),
			formatQuantity(balances[i]),
			e.BatchNumber,
			unitCost,
			e.ActorID,
			e.Notes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatQuantity(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

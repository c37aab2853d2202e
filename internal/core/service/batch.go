package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/purefarm/stock-ledger/internal/auth"
	"github.com/purefarm/stock-ledger/internal/core/domain"
	"github.com/purefarm/stock-ledger/internal/metrics"
	"github.com/purefarm/stock-ledger/internal/port"
)

// CreateBatch registers a received lot. The batch insert, the item quantity
// increment and the receipt ledger entry land in one transaction, so a
// duplicate batch number leaves the quantity untouched.
func (s *StockService) CreateBatch(ctx context.Context, actor auth.Principal, req CreateBatchRequest) (*domain.Batch, error) {
	extra := finiteChecks(req.Quantity, &req.CostPerUnit)
	if req.ManufacturingDate != nil && req.ExpiryDate != nil &&
		!req.ExpiryDate.After(*req.ManufacturingDate) {
		extra = append(extra, "ExpiryDate: must be after ManufacturingDate")
	}
	if err := s.validate(req, extra...); err != nil {
		return nil, err
	}

	item, err := s.db.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	if item == nil {
		return nil, port.ErrItemNotFound
	}
	if item.Status != domain.ItemStatusActive {
		return nil, ErrItemInactive
	}

	now := time.Now().UTC()
	received := now
	if req.ReceivedDate != nil {
		received = req.ReceivedDate.UTC()
	}

	batch := domain.Batch{
		ID:                uuid.NewString(),
		BatchNumber:       req.BatchNumber,
		ItemID:            item.ID,
		QuantityReceived:  req.Quantity,
		ManufacturingDate: req.ManufacturingDate,
		ExpiryDate:        req.ExpiryDate,
		ReceivedDate:      received,
		SupplierID:        req.SupplierID,
		PurchaseOrderRef:  req.PurchaseOrderRef,
		CostPerUnit:       req.CostPerUnit,
		Status:            domain.BatchStatusActive,
		Notes:             req.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	cost := req.CostPerUnit
	entry := domain.LedgerEntry{
		ID:          uuid.NewString(),
		ItemID:      item.ID,
		Action:      domain.ActionManualAdd,
		Quantity:    req.Quantity,
		BatchNumber: req.BatchNumber,
		ExpiryDate:  req.ExpiryDate,
		UnitCost:    &cost,
		Notes:       "batch " + req.BatchNumber + " received",
		ActorID:     actor.UserID,
		CreatedAt:   now,
	}

	if err := s.db.CreateBatch(ctx, batch, entry); err != nil {
		return nil, err
	}

	metrics.BatchesCreated.Inc()
	metrics.Movements.WithLabelValues(string(domain.ActionManualAdd)).Inc()
	s.invalidateQuantity(ctx, item.ID)
	s.logger.Info("batch created",
		"batch_number", batch.BatchNumber,
		"item_id", item.ID,
		"quantity", req.Quantity,
		"actor", actor.UserID)
	return &batch, nil
}

// UpdateBatchStatus applies a user-selected status transition. Transitions
// into expired or discarded append a timestamped line to the batch notes.
func (s *StockService) UpdateBatchStatus(ctx context.Context, actor auth.Principal, batchID string, req BatchStatusRequest) (*domain.Batch, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	batch, err := s.db.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}
	if !batch.Status.CanTransition(req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, batch.Status, req.Status)
	}

	now := time.Now().UTC()
	notes := batch.Notes
	if req.Status == domain.BatchStatusExpired || req.Status == domain.BatchStatusDiscarded {
		line := fmt.Sprintf("[%s] marked %s by %s", now.Format(time.RFC3339), req.Status, actor.UserID)
		if req.Note != "" {
			line += ": " + req.Note
		}
		if notes != "" {
			notes += "\n"
		}
		notes += line
	}

	if err := s.db.UpdateBatchStatus(ctx, batch.ID, batch.Status, req.Status, notes, now); err != nil {
		return nil, err
	}

	s.logger.Info("batch status changed",
		"batch_number", batch.BatchNumber,
		"from", string(batch.Status),
		"to", string(req.Status),
		"actor", actor.UserID)

	batch.Status = req.Status
	batch.Notes = notes
	batch.UpdatedAt = now
	return batch, nil
}

// GetBatch returns the batch or ErrBatchNotFound.
func (s *StockService) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	batch, err := s.db.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}
	return batch, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/purefarm/stock-ledger/internal/auth"
	"github.com/purefarm/stock-ledger/internal/core/domain"
	"github.com/purefarm/stock-ledger/internal/metrics"
	"github.com/purefarm/stock-ledger/internal/port"
)

var (
	ErrItemInactive      = errors.New("item is not active")
	ErrBatchNotFound     = errors.New("batch not found")
	ErrInvalidTransition = errors.New("invalid batch status transition")
)

// StockService is the only writer that touches the item snapshot and the
// movement ledger together. Every accepted movement is one transaction:
// quantity update plus exactly one ledger row, or neither.
type StockService struct {
	db        port.DatabaseRepository
	cache     port.CacheRepository
	validator *validator.Validate
	logger    *slog.Logger
}

func NewStockService(db port.DatabaseRepository, cache port.CacheRepository, logger *slog.Logger) *StockService {
	return &StockService{
		db:        db,
		cache:     cache,
		validator: validator.New(),
		logger:    logger,
	}
}

// ApplyMovement applies a single stock movement for the acting principal.
// Removal-class movements that exceed the current quantity are rejected here
// for every caller; the guarded UPDATE in storage backs the same check under
// concurrency. The call is deliberately not idempotent: no deduplication key
// exists, and identical calls apply twice.
func (s *StockService) ApplyMovement(ctx context.Context, actor auth.Principal, req MovementRequest) (*domain.LedgerEntry, error) {
	if err := s.validate(req, finiteChecks(req.Quantity, req.UnitCost)...); err != nil {
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
	if req.Action.Removal() && req.Quantity > item.CurrentQuantity {
		return nil, port.ErrInsufficientStock
	}

	entry := domain.LedgerEntry{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		Action:    req.Action,
		Quantity:  req.Quantity,
		UnitCost:  req.UnitCost,
		Notes:     req.Notes,
		ActorID:   actor.UserID,
		CreatedAt: time.Now().UTC(),
	}

	update := port.ItemUpdate{UnitCost: req.UnitCost, SupplierID: req.SupplierID}
	if err := s.db.ApplyMovement(ctx, entry, update); err != nil {
		metrics.MovementFailures.Inc()
		return nil, err
	}

	metrics.Movements.WithLabelValues(string(req.Action)).Inc()
	s.invalidateQuantity(ctx, item.ID)
	s.logger.Info("stock movement applied",
		"item_id", item.ID,
		"action", string(req.Action),
		"quantity", req.Quantity,
		"actor", actor.UserID)
	return &entry, nil
}

// GetItem returns the item or port.ErrItemNotFound.
func (s *StockService) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	item, err := s.db.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	if item == nil {
		return nil, port.ErrItemNotFound
	}
	return item, nil
}

// GetQuantity serves the dashboard hot path through the cache, falling back
// to the database and priming the cache on a miss.
func (s *StockService) GetQuantity(ctx context.Context, itemID string) (float64, error) {
	qty, ok, err := s.cache.GetQuantity(ctx, itemID)
	if err != nil {
		s.logger.Warn("quantity cache read failed", "item_id", itemID, "error", err)
	} else if ok {
		metrics.CacheHits.Inc()
		return qty, nil
	}
	metrics.CacheMisses.Inc()

	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if err := s.cache.SetQuantity(ctx, itemID, item.CurrentQuantity); err != nil {
		s.logger.Warn("quantity cache write failed", "item_id", itemID, "error", err)
	}
	return item.CurrentQuantity, nil
}

func (s *StockService) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.db.ListItems(ctx)
}

func (s *StockService) ListLowStock(ctx context.Context) ([]domain.Item, error) {
	return s.db.ListLowStock(ctx)
}

func (s *StockService) invalidateQuantity(ctx context.Context, itemID string) {
	if err := s.cache.InvalidateQuantity(ctx, itemID); err != nil {
		s.logger.Warn("quantity cache invalidation failed", "item_id", itemID, "error", err)
	}
}

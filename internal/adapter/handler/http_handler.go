package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/purefarm/stock-ledger/internal/auth"
	"github.com/purefarm/stock-ledger/internal/core/domain"
	"github.com/purefarm/stock-ledger/internal/core/service"
	"github.com/purefarm/stock-ledger/internal/port"
)

type HTTPHandler struct {
	stock  *service.StockService
	logger *slog.Logger
}

func NewHTTPHandler(stock *service.StockService, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{stock: stock, logger: logger}
}

// Routes mounts the API behind the auth middleware; health and metrics stay
// open for probes and scrapers.
func (h *HTTPHandler) Routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/stock/movements", h.ApplyMovement)
	api.HandleFunc("POST /api/batches", h.CreateBatch)
	api.HandleFunc("POST /api/batches/{id}/status", h.UpdateBatchStatus)
	api.HandleFunc("GET /api/batches/{id}", h.GetBatch)
	api.HandleFunc("GET /api/items", h.ListItems)
	api.HandleFunc("GET /api/items/low-stock", h.ListLowStock)
	api.HandleFunc("GET /api/items/{id}", h.GetItem)
	api.HandleFunc("GET /api/items/{id}/quantity", h.GetQuantity)
	api.HandleFunc("GET /api/items/{id}/movements.csv", h.ExportMovements)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/api/", auth.Middleware(api))
	return mux
}

type movementResponse struct {
	Success bool   `json:"success"`
	EntryID string `json:"entry_id,omitempty"`
	Message string `json:"message"`
}

func (h *HTTPHandler) ApplyMovement(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req service.MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, movementResponse{Message: "invalid request body"})
		return
	}

	entry, err := h.stock.ApplyMovement(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, movementResponse{
		Success: true,
		EntryID: entry.ID,
		Message: "movement applied",
	})
}

type batchResponse struct {
	Success     bool   `json:"success"`
	BatchID     string `json:"batch_id,omitempty"`
	BatchNumber string `json:"batch_number,omitempty"`
	Status      string `json:"status,omitempty"`
	Message     string `json:"message"`
}

func (h *HTTPHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req service.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, batchResponse{Message: "invalid request body"})
		return
	}

	batch, err := h.stock.CreateBatch(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, batchResponse{
		Success:     true,
		BatchID:     batch.ID,
		BatchNumber: batch.BatchNumber,
		Status:      string(batch.Status),
		Message:     "batch created",
	})
}

func (h *HTTPHandler) UpdateBatchStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req service.BatchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, batchResponse{Message: "invalid request body"})
		return
	}

	batch, err := h.stock.UpdateBatchStatus(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{
		Success:     true,
		BatchID:     batch.ID,
		BatchNumber: batch.BatchNumber,
		Status:      string(batch.Status),
		Message:     "status updated",
	})
}

type batchDetail struct {
	ID               string     `json:"id"`
	BatchNumber      string     `json:"batch_number"`
	ItemID           string     `json:"item_id"`
	QuantityReceived float64    `json:"quantity_received"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
	ReceivedDate     time.Time  `json:"received_date"`
	SupplierID       string     `json:"supplier_id,omitempty"`
	CostPerUnit      float64    `json:"cost_per_unit"`
	Status           string     `json:"status"`
	Notes            string     `json:"notes"`
}

func (h *HTTPHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.stock.GetBatch(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchDetail{
		ID:               batch.ID,
		BatchNumber:      batch.BatchNumber,
		ItemID:           batch.ItemID,
		QuantityReceived: batch.QuantityReceived,
		ExpiryDate:       batch.ExpiryDate,
		ReceivedDate:     batch.ReceivedDate,
		SupplierID:       batch.SupplierID,
		CostPerUnit:      batch.CostPerUnit,
		Status:           string(batch.Status),
		Notes:            batch.Notes,
	})
}

type itemDetail struct {
	ID              string  `json:"id"`
	SKU             string  `json:"sku"`
	Name            string  `json:"name"`
	CurrentQuantity float64 `json:"current_quantity"`
	ReorderLevel    float64 `json:"reorder_level"`
	MaximumLevel    float64 `json:"maximum_level"`
	UnitCost        float64 `json:"unit_cost"`
	UnitOfMeasure   string  `json:"unit_of_measure"`
	Status          string  `json:"status"`
	LowStock        bool    `json:"low_stock"`
}

func itemToDetail(item domain.Item) itemDetail {
	return itemDetail{
		ID:              item.ID,
		SKU:             item.SKU,
		Name:            item.Name,
		CurrentQuantity: item.CurrentQuantity,
		ReorderLevel:    item.ReorderLevel,
		MaximumLevel:    item.MaximumLevel,
		UnitCost:        item.UnitCost,
		UnitOfMeasure:   item.UnitOfMeasure,
		Status:          string(item.Status),
		LowStock:        item.LowStock(),
	}
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.stock.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToDetail(*item))
}

func (h *HTTPHandler) GetQuantity(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	qty, err := h.stock.GetQuantity(r.Context(), itemID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item_id": itemID, "current_quantity": qty})
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	h.writeItemList(w, r, h.stock.ListItems)
}

func (h *HTTPHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	h.writeItemList(w, r, h.stock.ListLowStock)
}

func (h *HTTPHandler) writeItemList(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]domain.Item, error)) {
	items, err := list(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]itemDetail, 0, len(items))
	for _, item := range items {
		out = append(out, itemToDetail(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) ExportMovements(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	// Build the CSV in memory first so lookup failures can still produce a
	// proper error status instead of a truncated 200.
	var buf bytes.Buffer
	if err := h.stock.ExportMovements(r.Context(), itemID, &buf); err != nil {
		h.writeError(w, err)
		return
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": "movements-" + itemID + ".csv",
	})
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", disposition)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("movement export failed", "item_id", itemID, "error", err)
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, movementResponse{Message: "unauthenticated"})
		return auth.Principal{}, false
	}
	if !actor.Admin() {
		writeJSON(w, http.StatusForbidden, movementResponse{Message: "admin role required"})
		return auth.Principal{}, false
	}
	return actor, true
}

type errorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// writeError maps service and port errors onto HTTP statuses. Internal
// detail is logged, never shown.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "validation failed", Errors: verr.Fields})
	case errors.Is(err, port.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "item not found"})
	case errors.Is(err, service.ErrBatchNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "batch not found"})
	case errors.Is(err, port.ErrInsufficientStock):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: "insufficient stock"})
	case errors.Is(err, service.ErrItemInactive):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: "item is not active"})
	case errors.Is(err, port.ErrDuplicateBatch):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "duplicate batch number"})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, port.ErrStaleBatch):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "batch status conflict"})
	default:
		h.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

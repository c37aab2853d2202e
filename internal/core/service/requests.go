package service

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/purefarm/stock-ledger/internal/core/domain"
)

// ValidationError accumulates every failed check on a request. Nothing is
// written when it is returned.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

type MovementRequest struct {
	ItemID     string            `json:"item_id" validate:"required"`
	Action     domain.ActionType `json:"action" validate:"required,oneof=manual_add manual_remove sale waste return adjustment"`
	Quantity   float64           `json:"quantity" validate:"required,gt=0"`
	Notes      string            `json:"notes" validate:"max=500"`
	UnitCost   *float64          `json:"unit_cost" validate:"omitempty,gte=0"`
	SupplierID string            `json:"supplier_id"`
}

type CreateBatchRequest struct {
	BatchNumber       string     `json:"batch_number" validate:"required,max=64"`
	ItemID            string     `json:"item_id" validate:"required"`
	Quantity          float64    `json:"quantity" validate:"required,gt=0"`
	ManufacturingDate *time.Time `json:"manufacturing_date"`
	ExpiryDate        *time.Time `json:"expiry_date"`
	ReceivedDate      *time.Time `json:"received_date"`
	SupplierID        string     `json:"supplier_id"`
	PurchaseOrderRef  string     `json:"purchase_order_ref"`
	CostPerUnit       float64    `json:"cost_per_unit" validate:"gte=0"`
	Notes             string     `json:"notes" validate:"max=500"`
}

type BatchStatusRequest struct {
	Status domain.BatchStatus `json:"status" validate:"required,oneof=active quarantine consumed expired discarded"`
	Note   string             `json:"note" validate:"max=500"`
}

// validate runs the struct tags and appends any extra cross-field checks,
// returning one accumulated ValidationError.
func (s *StockService) validate(req any, extra ...string) error {
	var fields []string
	if err := s.validator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate request: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s: failed %s check", fe.Field(), fe.Tag()))
		}
	}
	fields = append(fields, extra...)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// finiteChecks catches what the gt/gte tags let through: quantities and
// costs must be finite numbers.
func finiteChecks(quantity float64, cost *float64) []string {
	var out []string
	if math.IsInf(quantity, 0) || math.IsNaN(quantity) {
		out = append(out, "Quantity: must be a finite number")
	}
	if cost != nil && (math.IsInf(*cost, 0) || math.IsNaN(*cost)) {
		out = append(out, "UnitCost: must be a finite number")
	}
	return out
}

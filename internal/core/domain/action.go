package domain

// ActionType tags a ledger entry with the reason for a stock movement.
// The direction of the movement is implied by the action, never by the
// sign of the quantity.
type ActionType string

const (
	ActionManualAdd    ActionType = "manual_add"
	ActionManualRemove ActionType = "manual_remove"
	ActionSale         ActionType = "sale"
	ActionWaste        ActionType = "waste"
	ActionReturn       ActionType = "return"
	ActionAdjustment   ActionType = "adjustment"
)

// Removal reports whether the action consumes stock. Every other action
// adds stock.
func (a ActionType) Removal() bool {
	switch a {
	case ActionManualRemove, ActionSale, ActionWaste:
		return true
	}
	return false
}

func (a ActionType) Valid() bool {
	switch a {
	case ActionManualAdd, ActionManualRemove, ActionSale,
		ActionWaste, ActionReturn, ActionAdjustment:
		return true
	}
	return false
}

// SignedDelta converts a positive movement magnitude into the delta
// applied to an item's current quantity.
func (a ActionType) SignedDelta(quantity float64) float64 {
	if a.Removal() {
		return -quantity
	}
	return quantity
}

// Package allocation plans how an approved request is drawn from stock lots.
//
// Planning is pure: it decides which lots shrink and which disappear, and the
// caller applies the plan inside the same transaction that read the lots.
package allocation

import (
	"fmt"
	"sort"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

// Step is the change applied to one lot.
type Step struct {
	LotID     string
	Before    int
	Take      int
	Remaining int
}

// Deletes reports whether the lot is used up and must be removed from the ledger.
func (s Step) Deletes() bool {
	return s.Remaining == 0
}

// Plan is the ordered list of lot changes that satisfy a requested quantity.
type Plan struct {
	Key       models.StockKey
	Requested int
	Available int
	Steps     []Step
}

// Consumed is the total quantity removed from lots by the plan.
func (p Plan) Consumed() int {
	total := 0
	for _, step := range p.Steps {
		total += step.Take
	}
	return total
}

// Available sums the quantity of available lots filed under key.
func Available(lots []models.StockLot, key models.StockKey) int {
	total := 0
	for _, lot := range lots {
		if lot.IsAvailable && lot.ChickType == key {
			total += lot.Quantity
		}
	}
	return total
}

// PlanFIFO draws requested chicks of the given key from the oldest available
// lots first. Lots with equal creation times keep their input order. When the
// available total is short it returns *models.InsufficientStockError and no plan.
func PlanFIFO(lots []models.StockLot, key models.StockKey, requested int) (Plan, error) {
	if requested <= 0 {
		return Plan{}, fmt.Errorf("%w: requested quantity must be positive, got %d", models.ErrInvalidQuantity, requested)
	}

	candidates := make([]models.StockLot, 0, len(lots))
	for _, lot := range lots {
		if !lot.IsAvailable || lot.ChickType != key {
			continue
		}
		if lot.Quantity < 0 {
			return Plan{}, fmt.Errorf("lot %s holds negative quantity %d", lot.ID, lot.Quantity)
		}
		candidates = append(candidates, lot)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	available := Available(candidates, key)
	if available < requested {
		return Plan{}, &models.InsufficientStockError{Key: key, Available: available, Requested: requested}
	}

	plan := Plan{Key: key, Requested: requested, Available: available}
	need := requested
	for _, lot := range candidates {
		if need == 0 {
			break
		}
		if lot.Quantity == 0 {
			// Zero lots should already be gone; sweep them with this approval.
			plan.Steps = append(plan.Steps, Step{LotID: lot.ID})
			continue
		}

		take := lot.Quantity
		if take > need {
			take = need
		}
		need -= take
		plan.Steps = append(plan.Steps, Step{
			LotID:     lot.ID,
			Before:    lot.Quantity,
			Take:      take,
			Remaining: lot.Quantity - take,
		})
	}

	return plan, nil
}

package models

import (
	"fmt"
	"time"
)

// StockLot is a discrete batch of chicks of one type and age added at one time.
// Lots only shrink after intake and are deleted once they reach zero.
type StockLot struct {
	ID          string    `json:"id"`
	ChickType   StockKey  `json:"chick_type"`
	Quantity    int       `json:"quantity"`
	AgeInDays   int       `json:"age_in_days"`
	IsAvailable bool      `json:"is_available"`
	AddedBy     string    `json:"added_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewStockLot is the intake payload for a fresh lot.
type NewStockLot struct {
	ChickType StockKey `json:"chick_type"`
	Quantity  int      `json:"quantity"`
	AgeInDays int      `json:"age_in_days"`
}

// Validate checks an intake payload before it reaches the ledger.
func (n NewStockLot) Validate() error {
	if !n.ChickType.Valid() {
		return fmt.Errorf("%w: unknown chick type %q", ErrInvalidChickType, n.ChickType)
	}
	if n.Quantity <= 0 {
		return fmt.Errorf("%w: lot quantity must be positive, got %d", ErrInvalidQuantity, n.Quantity)
	}
	if n.AgeInDays < 0 {
		return fmt.Errorf("%w: age in days must not be negative, got %d", ErrInvalidQuantity, n.AgeInDays)
	}
	return nil
}

// StockTotal is the available quantity on hand for a stock key.
type StockTotal struct {
	ChickType StockKey `json:"chick_type"`
	Display   string   `json:"display"`
	Quantity  int      `json:"quantity"`
	Lots      int      `json:"lots"`
}

// StockSummary is the stock desk view: every lot plus available totals per key.
type StockSummary struct {
	Lots   []StockLot   `json:"lots"`
	Totals []StockTotal `json:"totals"`
}

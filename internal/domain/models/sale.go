package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is the immutable record of a completed chick sale. There is at most one per request.
type Sale struct {
	ID          string          `json:"id"`
	RequestID   string          `json:"request_id"`
	CompletedBy string          `json:"completed_by"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       string          `json:"notes,omitempty"`
	SoldAt      time.Time       `json:"sale_date"`
}

// SalesSummary is the sales desk view: sales newest first and what they brought in.
type SalesSummary struct {
	Sales        []Sale          `json:"sales"`
	Count        int             `json:"count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RequestCooldown is the rolling window during which a farmer may hold only one request.
const RequestCooldown = 120 * 24 * time.Hour

// DefaultUnitPrice is the price of one chick in UGX.
var DefaultUnitPrice = decimal.NewFromInt(1650)

// RequestStatus is the lifecycle state of a chick request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
	StatusSold     RequestStatus = "sold"
)

// ParseRequestStatus validates a status filter value.
func ParseRequestStatus(value string) (RequestStatus, error) {
	status := RequestStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusSold:
		return status, nil
	default:
		return "", fmt.Errorf("unknown request status %q", value)
	}
}

// Display returns the human label of the status.
func (s RequestStatus) Display() string {
	return titleCase(string(s))
}

// CanTransitionTo reports whether next directly follows s in the lifecycle.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusSold
	default:
		return false
	}
}

// ChickRequest is a farmer's request for chicks.
type ChickRequest struct {
	ID          string          `json:"id"`
	FarmerID    string          `json:"farmer_id"`
	ChickType   Species         `json:"chick_type"`
	BreedType   Breed           `json:"breed_type"`
	Quantity    int             `json:"quantity_requested"`
	FarmerTier  Tier            `json:"farmer_tier"`
	Status      RequestStatus   `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ApprovedBy  string          `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
	RejectedBy  string          `json:"rejected_by,omitempty"`
	RejectedAt  *time.Time      `json:"rejected_at,omitempty"`
}

// StockKey returns the ledger key the request draws from.
func (r ChickRequest) StockKey() StockKey {
	return KeyFor(r.ChickType, r.BreedType)
}

// NewChickRequest is the farmer-submitted payload for a request.
type NewChickRequest struct {
	ChickType  Species `json:"chick_type"`
	BreedType  Breed   `json:"breed_type"`
	Quantity   int     `json:"quantity_requested"`
	FarmerTier Tier    `json:"farmer_tier"`
	Notes      string  `json:"notes"`
}

// Validate applies the form-level rules: known type, breed and tier, positive
// quantity within the tier cap.
func (n NewChickRequest) Validate() error {
	if !n.ChickType.Valid() {
		return fmt.Errorf("%w: unknown chick type %q", ErrInvalidChickType, n.ChickType)
	}
	if !n.BreedType.Valid() {
		return fmt.Errorf("%w: unknown breed type %q", ErrInvalidChickType, n.BreedType)
	}
	if !n.FarmerTier.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTier, n.FarmerTier)
	}
	if n.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidQuantity, n.Quantity)
	}
	if limit := n.FarmerTier.RequestLimit(); n.Quantity > limit {
		return fmt.Errorf("%w: %s farmers can only request up to %d chicks", ErrTierLimit, n.FarmerTier, limit)
	}
	return nil
}

// TotalFor prices a quantity at the given unit price.
func TotalFor(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// NextRequestAt returns when a farmer whose latest request was created at last may request again.
func NextRequestAt(last time.Time) time.Time {
	return last.Add(RequestCooldown)
}

// CooldownActive reports whether a request created at last still blocks a new one at now.
func CooldownActive(last, now time.Time) bool {
	return now.Before(NextRequestAt(last))
}

// RequestStatusView is what a farmer sees when polling a request.
type RequestStatusView struct {
	ID            string        `json:"id"`
	Status        RequestStatus `json:"status"`
	StatusDisplay string        `json:"status_display"`
	ApprovedAt    *time.Time    `json:"approval_date"`
	RejectedAt    *time.Time    `json:"rejection_date,omitempty"`
}

// StatusView projects the request into its farmer-facing status.
func (r ChickRequest) StatusView() RequestStatusView {
	return RequestStatusView{
		ID:            r.ID,
		Status:        r.Status,
		StatusDisplay: r.Status.Display(),
		ApprovedAt:    r.ApprovedAt,
		RejectedAt:    r.RejectedAt,
	}
}

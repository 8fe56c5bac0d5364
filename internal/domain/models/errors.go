package models

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrTierLimit        = errors.New("tier limit exceeded")
	ErrCooldownActive   = errors.New("request cooldown active")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidChickType = errors.New("invalid chick type")
	ErrInvalidTier      = errors.New("invalid farmer tier")
	ErrInvalidProfile   = errors.New("invalid farmer profile")
)

// State errors.
var (
	ErrNotPending  = errors.New("request is not pending")
	ErrNotApproved = errors.New("request is not approved for sale")
)

// Resource errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ErrForbidden is returned when the actor's role does not allow the operation.
var ErrForbidden = errors.New("operation not allowed for role")

// InsufficientStockError reports how much of a stock key was on hand when an
// approval could not be covered.
type InsufficientStockError struct {
	Key       StockKey
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.Key, e.Available, e.Requested)
}

// Is lets errors.Is match ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ErrorKind groups domain errors for callers that map them to user-facing responses.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindState
	KindResource
	KindAuthorization
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindResource:
		return "resource"
	case KindAuthorization:
		return "authorization"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrTierLimit), errors.Is(err, ErrCooldownActive), errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidChickType), errors.Is(err, ErrInvalidTier), errors.Is(err, ErrInvalidProfile):
		return KindValidation
	case errors.Is(err, ErrNotPending), errors.Is(err, ErrNotApproved):
		return KindState
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInsufficientStock):
		return KindResource
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	default:
		return KindInternal
	}
}

// ErrorCode returns the stable machine-readable code for a domain error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrTierLimit):
		return "tier_limit"
	case errors.Is(err, ErrCooldownActive):
		return "cooldown_active"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrInvalidChickType):
		return "invalid_chick_type"
	case errors.Is(err, ErrInvalidTier):
		return "invalid_tier"
	case errors.Is(err, ErrInvalidProfile):
		return "invalid_profile"
	case errors.Is(err, ErrNotPending):
		return "not_pending"
	case errors.Is(err, ErrNotApproved):
		return "not_approved"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}

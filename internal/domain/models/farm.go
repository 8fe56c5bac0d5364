package models

import (
	"fmt"
	"strings"
	"time"
)

// FarmerProfile holds the contact details a farmer registers with the hatchery.
type FarmerProfile struct {
	UserID          string    `json:"user_id"`
	FullName        string    `json:"full_name"`
	NIN             string    `json:"nin_number"`
	Phone           string    `json:"phone"`
	RecommenderName string    `json:"recommender_name"`
	RecommenderNIN  string    `json:"recommender_nin"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultCountryCode is the dialling code assumed for phone numbers written in
// local form (Uganda).
const DefaultCountryCode = "256"

// Normalize trims user input and rewrites the phone in the international form
// WhatsApp reports sender ids in. Local numbers take countryCode.
func (p *FarmerProfile) Normalize(countryCode string) {
	p.FullName = strings.TrimSpace(p.FullName)
	p.NIN = strings.ToUpper(strings.TrimSpace(p.NIN))
	p.Phone = InternationalPhone(p.Phone, countryCode)
	p.RecommenderName = strings.TrimSpace(p.RecommenderName)
	p.RecommenderNIN = strings.ToUpper(strings.TrimSpace(p.RecommenderNIN))
}

// Validate checks the fields required to reach the farmer.
func (p FarmerProfile) Validate() error {
	switch {
	case p.UserID == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidProfile)
	case p.FullName == "":
		return fmt.Errorf("%w: full name is required", ErrInvalidProfile)
	case p.NIN == "":
		return fmt.Errorf("%w: nin number is required", ErrInvalidProfile)
	case p.Phone == "":
		return fmt.Errorf("%w: phone is required", ErrInvalidProfile)
	}
	return nil
}

// NormalizePhone keeps only the digits of a phone number, which is the form
// WhatsApp reports sender ids in.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// InternationalPhone returns phone as digits with its country code. A leading
// "+" or "00" marks a number that already carries one; a trunk "0" is replaced
// by countryCode.
func InternationalPhone(phone, countryCode string) string {
	digits := NormalizePhone(phone)
	switch {
	case strings.HasPrefix(strings.TrimSpace(phone), "+"):
		return digits
	case strings.HasPrefix(digits, "00"):
		return digits[2:]
	case strings.HasPrefix(digits, "0") && countryCode != "":
		return NormalizePhone(countryCode) + digits[1:]
	default:
		return digits
	}
}

// FarmerDashboard summarizes a farmer's request history.
type FarmerDashboard struct {
	FarmerID         string         `json:"farmer_id"`
	Requests         []ChickRequest `json:"requests"`
	TotalRequests    int            `json:"total_requests"`
	PendingRequests  int            `json:"pending_requests"`
	ApprovedRequests int            `json:"approved_requests"`
	RejectedRequests int            `json:"rejected_requests"`
	CompletedSales   int            `json:"completed_sales"`
	TotalChicks      int            `json:"total_chicks"`
	CanRequest       bool           `json:"can_request"`
	NextRequestDate  *time.Time     `json:"next_request_date,omitempty"`
}

// ManagerOverview is the manager desk: work waiting, stock on hand, recent decisions.
type ManagerOverview struct {
	PendingRequests []ChickRequest `json:"pending_requests"`
	Stock           []StockTotal   `json:"stock"`
	RecentDecisions []ChickRequest `json:"recent_decisions"`
}

package models

import (
	"fmt"
	"strings"
)

// Role identifies which desk a user works at.
type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleManager  Role = "manager"
	RoleSalesRep Role = "sales_rep"
)

// ParseRole validates a role claim coming from the identity provider.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	switch role {
	case RoleFarmer, RoleManager, RoleSalesRep:
		return role, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrForbidden, value)
	}
}

// Action is an operation gated by role.
type Action string

const (
	ActionRegisterFarmer  Action = "register_farmer"
	ActionFarmerDashboard Action = "farmer_dashboard"
	ActionCreateRequest   Action = "create_request"
	ActionRequestStatus   Action = "request_status"
	ActionListRequests    Action = "list_requests"
	ActionApproveRequest  Action = "approve_request"
	ActionRejectRequest   Action = "reject_request"
	ActionCompleteSale    Action = "complete_sale"
	ActionListSales       Action = "list_sales"
	ActionManageStock     Action = "manage_stock"
	ActionOverview        Action = "overview"
	ActionDailyReport     Action = "daily_report"
	ActionSendMessage     Action = "send_message"
)

// Can reports whether the role is allowed to perform the action.
func (r Role) Can(action Action) bool {
	switch r {
	case RoleFarmer:
		switch action {
		case ActionRegisterFarmer, ActionFarmerDashboard, ActionCreateRequest, ActionRequestStatus:
			return true
		}
	case RoleManager:
		switch action {
		case ActionListRequests, ActionApproveRequest, ActionRejectRequest, ActionListSales,
			ActionManageStock, ActionOverview, ActionDailyReport, ActionSendMessage:
			return true
		}
	case RoleSalesRep:
		switch action {
		case ActionListRequests, ActionCompleteSale, ActionListSales:
			return true
		}
	}
	return false
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Authorize returns ErrForbidden when the actor may not perform the action.
func (a Actor) Authorize(action Action) error {
	if a.ID == "" {
		return fmt.Errorf("%w: anonymous actor", ErrForbidden)
	}
	if !a.Role.Can(action) {
		return fmt.Errorf("%w: role %q cannot %s", ErrForbidden, a.Role, action)
	}
	return nil
}

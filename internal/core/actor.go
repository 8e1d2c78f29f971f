package core

import "fmt"

type Role string

const (
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleBrokerManager Role = "BROKER_MANAGER"
	RoleBroker        Role = "BROKER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleBrokerManager, RoleBroker:
		return true
	}
	return false
}

// Actor is the authenticated caller an operation is evaluated against.
// BrokerID is nil for staff accounts that are not linked to a broker record.
type Actor struct {
	UserID      int64  `json:"user_id"`
	Role        Role   `json:"role"`
	BrokerID    *int64 `json:"broker_id,omitempty"`
	ShowAllData bool   `json:"show_all_data"`
}

type Permission string

const (
	PermViewAllData     Permission = "view_all_data"
	PermDeleteClient    Permission = "delete_client"
	PermDeleteOffer     Permission = "delete_offer"
	PermDeleteRenewal   Permission = "delete_renewal"
	PermCancelPolicy    Permission = "cancel_policy"
	PermManageBrokers   Permission = "manage_brokers"
	PermManageProducts  Permission = "manage_products"
	PermManageInsurers  Permission = "manage_insurers"
	PermValidatePayment Permission = "validate_payment"
	PermPayCommission   Permission = "pay_commission"
)

func (a Actor) Authenticated() bool { return a.Role.Valid() }

func (a Actor) managerOrAdmin() bool {
	return a.Role == RoleAdministrator || a.Role == RoleBrokerManager
}

// CanViewAllData reports whether list reads skip broker scoping.
// Managers only get it while their show-all toggle is on.
func (a Actor) CanViewAllData() bool {
	switch a.Role {
	case RoleAdministrator:
		return true
	case RoleBrokerManager:
		return a.ShowAllData
	}
	return false
}

func (a Actor) CanDeleteClient() bool { return a.managerOrAdmin() }
func (a Actor) CanDeleteOffer() bool { return a.managerOrAdmin() }
func (a Actor) CanDeleteRenewal() bool { return a.managerOrAdmin() }
func (a Actor) CanCancelPolicy() bool { return a.managerOrAdmin() }
func (a Actor) CanManageBrokers() bool { return a.managerOrAdmin() }
func (a Actor) CanManageProducts() bool { return a.Role == RoleAdministrator }
func (a Actor) CanManageInsurers() bool { return a.Role == RoleAdministrator }
func (a Actor) CanValidatePayment() bool { return a.managerOrAdmin() }
func (a Actor) CanPayCommission() bool { return a.managerOrAdmin() }

// Can evaluates a permission by name.
func (a Actor) Can(p Permission) bool {
	switch p {
	case PermViewAllData:
		return a.CanViewAllData()
	case PermDeleteClient:
		return a.CanDeleteClient()
	case PermDeleteOffer:
		return a.CanDeleteOffer()
	case PermDeleteRenewal:
		return a.CanDeleteRenewal()
	case PermCancelPolicy:
		return a.CanCancelPolicy()
	case PermManageBrokers:
		return a.CanManageBrokers()
	case PermManageProducts:
		return a.CanManageProducts()
	case PermManageInsurers:
		return a.CanManageInsurers()
	case PermValidatePayment:
		return a.CanValidatePayment()
	case PermPayCommission:
		return a.CanPayCommission()
	}
	return false
}

// CanSee reports whether a record owned by brokerID is inside the actor's scope.
func (a Actor) CanSee(brokerID int64) bool {
	if a.CanViewAllData() {
		return true
	}
	return a.Authenticated() && a.BrokerID != nil && *a.BrokerID == brokerID
}

// Require returns ErrPermissionDenied unless the actor holds p.
func Require(a Actor, p Permission) error {
	if !a.Can(p) {
		role := a.Role
		if role == "" {
			role = "anonymous"
		}
		return fmt.Errorf("%w: %s may not %s", ErrPermissionDenied, role, p)
	}
	return nil
}

func requireAuthenticated(a Actor) error {
	if !a.Authenticated() {
		return fmt.Errorf("%w: no authenticated actor", ErrUnauthorized)
	}
	return nil
}

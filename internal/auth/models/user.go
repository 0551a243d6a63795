package models

import (
	"slices"
	"strings"
	"time"

	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
)

type Role string

const (
	RoleAdmin           Role = "admin"
	RoleContractManager Role = "contract_manager"
	RoleSalesRep        Role = "sales_rep"
	RoleAccountant      Role = "accountant"
	RoleVendor          Role = "vendor"
)

var allRoles = []Role{RoleAdmin, RoleContractManager, RoleSalesRep, RoleAccountant, RoleVendor}

func (r Role) IsValid() bool {
	return slices.Contains(allRoles, r)
}

// IsManager reports whether r may act as the project manager on approvals
// and manage vendors.
func (r Role) IsManager() bool {
	return r == RoleAdmin || r == RoleContractManager
}

// IsStaff reports whether r belongs to the company rather than a vendor.
func (r Role) IsStaff() bool {
	return r.IsValid() && r != RoleVendor
}

// StaffRoles lists every non-vendor role.
func StaffRoles() []Role {
	return []Role{RoleAdmin, RoleContractManager, RoleSalesRep, RoleAccountant}
}

// ManagerRoles lists the roles for which IsManager is true.
func ManagerRoles() []Role {
	return []Role{RoleAdmin, RoleContractManager}
}

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// User is an application account. VendorID is set only for the vendor role.
type User struct {
	ID           id.UserID   `json:"id"`
	Username     string      `json:"username"`
	DisplayName  string      `json:"display_name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         Role        `json:"role"`
	VendorID     id.VendorID `json:"vendor_id,omitzero"`
	Status       Status      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	LastLoginAt  *time.Time  `json:"last_login_at,omitempty"`
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// Name is the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginResult carries the signed session token.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

type CreateUserRequest struct {
	Username    string      `json:"username" validate:"required,min=3,max=64"`
	DisplayName string      `json:"display_name" validate:"max=128"`
	Email       string      `json:"email" validate:"omitempty,email,max=254"`
	Password    string      `json:"password" validate:"required,min=8,max=72"`
	Role        Role        `json:"role" validate:"required,oneof=admin contract_manager sales_rep accountant vendor"`
	VendorID    id.VendorID `json:"vendor_id"`
}

func (r *CreateUserRequest) Normalize() {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

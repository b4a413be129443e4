package domain

import (
	"fmt"
	"strings"
	"time"
)

type UserRole string

const (
	RoleSuperAdmin  UserRole = "superadmin"
	RoleTenantAdmin UserRole = "tenant_admin"
	RoleAdmin       UserRole = "admin"
	RoleBranchAdmin UserRole = "branch_admin"
	RoleCashier     UserRole = "cashier"
)

var allRoles = []UserRole{RoleSuperAdmin, RoleTenantAdmin, RoleAdmin, RoleBranchAdmin, RoleCashier}

// ParseUserRole accepts the canonical role names plus "merchant_admin" as an alias of admin.
func ParseUserRole(s string) (UserRole, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "merchant_admin" || v == "merchant-admin" {
		return RoleAdmin, nil
	}
	for _, r := range allRoles {
		if string(r) == v {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleSet is an exact-match allow list. There is no implicit hierarchy between roles.
type RoleSet map[UserRole]struct{}

func Roles(roles ...UserRole) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Contains(r UserRole) bool {
	_, ok := s[r]
	return ok
}

func (s RoleSet) Empty() bool { return len(s) == 0 }

type User struct {
	ID           int64    `json:"id" gorm:"primaryKey"`
	Email        string   `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string   `json:"-" gorm:"not null"`
	Name         string   `json:"name"`
	Role         UserRole `json:"role" gorm:"size:32;not null"`
	IsActive     bool     `json:"is_active" gorm:"not null"`

	TenantID   *int64 `json:"tenant_id,omitempty" gorm:"index"`
	MerchantID *int64 `json:"merchant_id,omitempty" gorm:"index"`
	BranchID   *int64 `json:"branch_id,omitempty" gorm:"index"`
	PosID      *int64 `json:"pos_id,omitempty" gorm:"index"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Identity builds the request identity carried by an access token for this user.
func (u *User) Identity() Identity {
	return Identity{
		UserID:     u.ID,
		Email:      u.Email,
		Role:       u.Role,
		TenantID:   u.TenantID,
		MerchantID: u.MerchantID,
		BranchID:   u.BranchID,
		PosID:      u.PosID,
	}
}

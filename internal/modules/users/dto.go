package users

import (
	"time"

	"merchantpay/internal/domain"
)

const MinPasswordLength = 8

// CreateUserRequest names the narrowest scope the role needs: tenant for
// tenant_admin, merchant for admin, branch for branch_admin, POS for cashier.
// Wider levels are derived from it.
type CreateUserRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	Name       string `json:"name" binding:"max=255"`
	Role       string `json:"role" binding:"required"`
	TenantID   int64  `json:"tenant_id"`
	MerchantID int64  `json:"merchant_id"`
	BranchID   int64  `json:"branch_id"`
	PosID      int64  `json:"pos_id"`
}

type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type UserResponse struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	TenantID    *int64     `json:"tenant_id,omitempty"`
	MerchantID  *int64     `json:"merchant_id,omitempty"`
	BranchID    *int64     `json:"branch_id,omitempty"`
	PosID       *int64     `json:"pos_id,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		TenantID:    u.TenantID,
		MerchantID:  u.MerchantID,
		BranchID:    u.BranchID,
		PosID:       u.PosID,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

package auth

import (
	"time"

	"merchantpay/internal/domain"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UserPublic struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	TenantID   *int64     `json:"tenantId,omitempty"`
	MerchantID *int64     `json:"merchantId,omitempty"`
	BranchID   *int64     `json:"branchId,omitempty"`
	PosID      *int64     `json:"posId,omitempty"`
	IsActive   bool       `json:"isActive"`
	LastLogin  *time.Time `json:"lastLoginAt,omitempty"`
}

func NewUserPublic(u *domain.User) UserPublic {
	return UserPublic{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
		TenantID:   u.TenantID,
		MerchantID: u.MerchantID,
		BranchID:   u.BranchID,
		PosID:      u.PosID,
		IsActive:   u.IsActive,
		LastLogin:  u.LastLoginAt,
	}
}

// MeResponse is the caller's profile plus the number of live refresh tokens.
type MeResponse struct {
	UserPublic
	ActiveSessions int64 `json:"activeSessions"`
}

type LoginResponse struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresIn    int64      `json:"expiresIn"`
	User         UserPublic `json:"user"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// ClientMeta is stored with each refresh token for audit.
type ClientMeta struct {
	UserAgent string
	IP        string
}

// Session is a freshly issued access/refresh pair.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             *domain.User
}

package merchant

import "merchantpay/internal/domain"

type CreateTenantRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// CreateMerchantRequest: TenantID is required for superadmin and ignored for tenant admins.
type CreateMerchantRequest struct {
	TenantID    int64  `json:"tenant_id"`
	Name        string `json:"name" binding:"required,max=255"`
	LegalName   string `json:"legal_name"`
	TaxID       string `json:"tax_id" binding:"max=32"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
}

type UpdateMerchantRequest struct {
	Name        *string                `json:"name" binding:"omitempty,max=255"`
	LegalName   *string                `json:"legal_name"`
	TaxID       *string                `json:"tax_id" binding:"omitempty,max=32"`
	Email       *string                `json:"email" binding:"omitempty,email"`
	Phone       *string                `json:"phone"`
	Description *string                `json:"description"`
	Status      *domain.MerchantStatus `json:"status" binding:"omitempty,oneof=active suspended"`
}

type CreateBranchRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	Address string `json:"address"`
	City    string `json:"city"`
}

type UpdateBranchRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=255"`
	Address  *string `json:"address"`
	City     *string `json:"city"`
	IsActive *bool   `json:"is_active"`
}

type CreatePOSRequest struct {
	Name         string `json:"name" binding:"required,max=255"`
	SerialNumber string `json:"serial_number" binding:"required,max=64"`
	Model        string `json:"model"`
}

type UpdatePOSRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=255"`
	Model    *string `json:"model"`
	IsActive *bool   `json:"is_active"`
}

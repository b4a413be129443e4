package domain

import (
	"time"

	"gorm.io/gorm"
)

type Tenant struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }

type MerchantStatus string

const (
	MerchantActive    MerchantStatus = "active"
	MerchantSuspended MerchantStatus = "suspended"
)

type Merchant struct {
	ID          int64          `json:"id" gorm:"primaryKey"`
	TenantID    int64          `json:"tenant_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"size:255;not null"`
	LegalName   string         `json:"legal_name,omitempty"`
	TaxID       string         `json:"tax_id,omitempty" gorm:"size:32"`
	Email       string         `json:"email,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Status      MerchantStatus `json:"status" gorm:"size:16;not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	Branches    []Branch       `json:"branches,omitempty" gorm:"foreignKey:MerchantID"`
	Description string         `json:"description,omitempty"`
}

func (Merchant) TableName() string { return "merchants" }

func (m *Merchant) Path() ResourcePath {
	return ResourcePath{TenantID: m.TenantID, MerchantID: m.ID}
}

type Branch struct {
	ID         int64          `json:"id" gorm:"primaryKey"`
	TenantID   int64          `json:"tenant_id" gorm:"index;not null"`
	MerchantID int64          `json:"merchant_id" gorm:"index;not null"`
	Name       string         `json:"name" gorm:"size:255;not null"`
	Address    string         `json:"address,omitempty"`
	City       string         `json:"city,omitempty"`
	IsActive   bool           `json:"is_active" gorm:"not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	Terminals  []POSTerminal  `json:"terminals,omitempty" gorm:"foreignKey:BranchID"`
}

func (Branch) TableName() string { return "branches" }

func (b *Branch) Path() ResourcePath {
	return ResourcePath{TenantID: b.TenantID, MerchantID: b.MerchantID, BranchID: b.ID}
}

type POSTerminal struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	TenantID     int64     `json:"tenant_id" gorm:"index;not null"`
	MerchantID   int64     `json:"merchant_id" gorm:"index;not null"`
	BranchID     int64     `json:"branch_id" gorm:"index;not null"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	SerialNumber string    `json:"serial_number" gorm:"size:64;uniqueIndex;not null"`
	Model        string    `json:"model,omitempty"`
	IsActive     bool      `json:"is_active" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (POSTerminal) TableName() string { return "pos_terminals" }

func (p *POSTerminal) Path() ResourcePath {
	return ResourcePath{TenantID: p.TenantID, MerchantID: p.MerchantID, BranchID: p.BranchID, PosID: p.ID}
}

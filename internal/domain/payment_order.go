package domain

import (
	"fmt"
	"strings"
	"time"
)

type PaymentOrderStatus string

const (
	PaymentOrderPending   PaymentOrderStatus = "pending"
	PaymentOrderPaid      PaymentOrderStatus = "paid"
	PaymentOrderCancelled PaymentOrderStatus = "cancelled"
)

func ParsePaymentOrderStatus(s string) (PaymentOrderStatus, error) {
	switch v := PaymentOrderStatus(strings.ToLower(strings.TrimSpace(s))); v {
	case PaymentOrderPending, PaymentOrderPaid, PaymentOrderCancelled:
		return v, nil
	}
	return "", fmt.Errorf("unknown payment order status %q", s)
}

// CanTransitionTo allows pending → paid and pending → cancelled only.
func (s PaymentOrderStatus) CanTransitionTo(next PaymentOrderStatus) bool {
	return s == PaymentOrderPending && (next == PaymentOrderPaid || next == PaymentOrderCancelled)
}

type PaymentOrder struct {
	ID          int64              `json:"id" gorm:"primaryKey"`
	Reference   string             `json:"reference" gorm:"size:36;uniqueIndex;not null"`
	TenantID    int64              `json:"tenant_id" gorm:"index;not null"`
	MerchantID  int64              `json:"merchant_id" gorm:"index;not null"`
	BranchID    int64              `json:"branch_id" gorm:"index;not null"`
	PosID       int64              `json:"pos_id" gorm:"index;not null"`
	CreatedBy   int64              `json:"created_by" gorm:"not null"`
	Amount      int64              `json:"amount" gorm:"not null"`
	Currency    string             `json:"currency" gorm:"size:3;not null"`
	Description string             `json:"description,omitempty"`
	Status      PaymentOrderStatus `json:"status" gorm:"size:16;index;not null"`
	PaidAt      *time.Time         `json:"paid_at,omitempty"`
	CancelledAt *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (PaymentOrder) TableName() string { return "payment_orders" }

func (o *PaymentOrder) Path() ResourcePath {
	return ResourcePath{TenantID: o.TenantID, MerchantID: o.MerchantID, BranchID: o.BranchID, PosID: o.PosID}
}

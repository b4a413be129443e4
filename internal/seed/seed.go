// Package seed loads a demo hierarchy with one user per role.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"merchantpay/internal/domain"
	"merchantpay/internal/modules/auth"
	"merchantpay/internal/repository"
)

// ErrAlreadySeeded is returned when the demo superadmin already exists.
var ErrAlreadySeeded = errors.New("database already seeded")

const SuperAdminEmail = "superadmin@merchantpay.local"

type Result struct {
	Tenant   domain.Tenant
	Merchant domain.Merchant
	Branch   domain.Branch
	POS      domain.POSTerminal
	Users    []domain.User
}

// Run creates the demo data in one transaction. Every user gets password.
func Run(ctx context.Context, db *gorm.DB, password string) (*Result, error) {
	if len(password) < 8 {
		return nil, fmt.Errorf("seed password must be at least 8 characters")
	}
	if _, err := repository.NewUserRepository(db).GetByEmail(ctx, SuperAdminEmail); err == nil {
		return nil, ErrAlreadySeeded
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res.Tenant = domain.Tenant{Name: "Demo Tenant"}
		if err := repository.NewTenantRepository(tx).Create(ctx, &res.Tenant); err != nil {
			return fmt.Errorf("tenant: %w", err)
		}
		res.Merchant = domain.Merchant{TenantID: res.Tenant.ID, Name: "Demo Coffee", Status: domain.MerchantActive}
		if err := repository.NewMerchantRepository(tx).Create(ctx, &res.Merchant); err != nil {
			return fmt.Errorf("merchant: %w", err)
		}
		res.Branch = domain.Branch{TenantID: res.Tenant.ID, MerchantID: res.Merchant.ID, Name: "Downtown", City: "Almaty", IsActive: true}
		if err := repository.NewBranchRepository(tx).Create(ctx, &res.Branch); err != nil {
			return fmt.Errorf("branch: %w", err)
		}
		res.POS = domain.POSTerminal{
			TenantID:     res.Tenant.ID,
			MerchantID:   res.Merchant.ID,
			BranchID:     res.Branch.ID,
			Name:         "Counter 1",
			SerialNumber: "DEMO-POS-0001",
			IsActive:     true,
		}
		if err := repository.NewPOSRepository(tx).Create(ctx, &res.POS); err != nil {
			return fmt.Errorf("pos: %w", err)
		}

		t, m, b, p := res.Tenant.ID, res.Merchant.ID, res.Branch.ID, res.POS.ID
		res.Users = []domain.User{
			{Email: SuperAdminEmail, Name: "Super Admin", Role: domain.RoleSuperAdmin},
			{Email: "tenant@merchantpay.local", Name: "Tenant Admin", Role: domain.RoleTenantAdmin, TenantID: &t},
			{Email: "admin@merchantpay.local", Name: "Merchant Admin", Role: domain.RoleAdmin, TenantID: &t, MerchantID: &m},
			{Email: "branch@merchantpay.local", Name: "Branch Admin", Role: domain.RoleBranchAdmin, TenantID: &t, MerchantID: &m, BranchID: &b},
			{Email: "cashier@merchantpay.local", Name: "Cashier", Role: domain.RoleCashier, TenantID: &t, MerchantID: &m, BranchID: &b, PosID: &p},
		}
		users := repository.NewUserRepository(tx)
		for i := range res.Users {
			res.Users[i].PasswordHash = hash
			res.Users[i].IsActive = true
			if err := users.Create(ctx, &res.Users[i]); err != nil {
				return fmt.Errorf("user %s: %w", res.Users[i].Email, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("users", len(res.Users)).Int64("tenant_id", res.Tenant.ID).Msg("seed completed")
	return res, nil
}

package merchant

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"merchantpay/internal/domain"
	"merchantpay/internal/repository"
)

// Service owns the tenant → merchant → branch → POS hierarchy. Every call
// checks the caller's scope; resources outside it are reported as not found.
type Service struct {
	tenants   *repository.TenantRepository
	merchants *repository.MerchantRepository
	branches  *repository.BranchRepository
	terminals *repository.POSRepository
	now       func() time.Time
}

func NewService(
	tenants *repository.TenantRepository,
	merchants *repository.MerchantRepository,
	branches *repository.BranchRepository,
	terminals *repository.POSRepository,
) *Service {
	return &Service{
		tenants:   tenants,
		merchants: merchants,
		branches:  branches,
		terminals: terminals,
		now:       time.Now,
	}
}

/* ---------- TENANTS ---------- */

func (s *Service) CreateTenant(ctx context.Context, req CreateTenantRequest) (*domain.Tenant, error) {
	t := &domain.Tenant{Name: strings.TrimSpace(req.Name)}
	if t.Name == "" {
		return nil, ErrInvalidInput
	}
	if err := s.tenants.Create(ctx, t); err != nil {
		return nil, mapWriteErr(err)
	}
	return t, nil
}

func (s *Service) ListTenants(ctx context.Context, f repository.ListFilters) ([]domain.Tenant, int64, error) {
	return s.tenants.List(ctx, f)
}

/* ---------- MERCHANTS ---------- */

func (s *Service) CreateMerchant(ctx context.Context, caller domain.Identity, req CreateMerchantRequest) (*domain.Merchant, error) {
	tenantID := req.TenantID
	if caller.Role == domain.RoleTenantAdmin && caller.TenantID != nil {
		tenantID = *caller.TenantID
	}
	if tenantID == 0 {
		return nil, ErrInvalidInput
	}
	if !caller.CanAccess(domain.ResourcePath{TenantID: tenantID}) {
		return nil, ErrForbidden
	}
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInput
		}
		return nil, err
	}

	m := &domain.Merchant{
		TenantID:    tenantID,
		Name:        strings.TrimSpace(req.Name),
		LegalName:   req.LegalName,
		TaxID:       req.TaxID,
		Email:       req.Email,
		Phone:       req.Phone,
		Description: req.Description,
		Status:      domain.MerchantActive,
	}
	if err := s.merchants.Create(ctx, m); err != nil {
		return nil, mapWriteErr(err)
	}
	return m, nil
}

func (s *Service) ListMerchants(ctx context.Context, caller domain.Identity, f repository.ListFilters) ([]domain.Merchant, int64, error) {
	return s.merchants.List(ctx, caller.Filter(), f)
}

func (s *Service) GetMerchant(ctx context.Context, caller domain.Identity, id int64) (*domain.Merchant, error) {
	m, err := s.merchants.GetWithBranches(ctx, id)
	if err != nil {
		return nil, mapReadErr(err)
	}
	if !caller.CanAccess(m.Path()) {
		return nil, ErrNotFound
	}
	// branch-level callers only see their own branch
	if caller.BranchID != nil && (caller.Role == domain.RoleBranchAdmin || caller.Role == domain.RoleCashier) {
		visible := m.Branches[:0]
		for _, b := range m.Branches {
			if b.ID == *caller.BranchID {
				visible = append(visible, b)
			}
		}
		m.Branches = visible
	}
	return m, nil
}

func (s *Service) UpdateMerchant(ctx context.Context, caller domain.Identity, id int64, req UpdateMerchantRequest) (*domain.Merchant, error) {
	m, err := s.accessibleMerchant(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
	}
	if req.LegalName != nil {
		m.LegalName = *req.LegalName
	}
	if req.TaxID != nil {
		m.TaxID = *req.TaxID
	}
	if req.Email != nil {
		m.Email = *req.Email
	}
	if req.Phone != nil {
		m.Phone = *req.Phone
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.Status != nil {
		// merchant admins cannot suspend their own merchant
		if caller.Role == domain.RoleAdmin && *req.Status != m.Status {
			return nil, ErrForbidden
		}
		m.Status = *req.Status
	}
	if m.Name == "" {
		return nil, ErrInvalidInput
	}
	m.UpdatedAt = s.now().UTC()

	if err := s.merchants.Update(ctx, m); err != nil {
		return nil, mapWriteErr(err)
	}
	return m, nil
}

func (s *Service) DeleteMerchant(ctx context.Context, caller domain.Identity, id int64) error {
	if _, err := s.accessibleMerchant(ctx, caller, id); err != nil {
		return err
	}
	return mapReadErr(s.merchants.Delete(ctx, id))
}

func (s *Service) accessibleMerchant(ctx context.Context, caller domain.Identity, id int64) (*domain.Merchant, error) {
	m, err := s.merchants.GetByID(ctx, id)
	if err != nil {
		return nil, mapReadErr(err)
	}
	if !caller.CanAccess(m.Path()) {
		return nil, ErrNotFound
	}
	return m, nil
}

/* ---------- BRANCHES ---------- */

func (s *Service) CreateBranch(ctx context.Context, caller domain.Identity, merchantID int64, req CreateBranchRequest) (*domain.Branch, error) {
	m, err := s.accessibleMerchant(ctx, caller, merchantID)
	if err != nil {
		return nil, err
	}

	b := &domain.Branch{
		TenantID:   m.TenantID,
		MerchantID: m.ID,
		Name:       strings.TrimSpace(req.Name),
		Address:    req.Address,
		City:       req.City,
		IsActive:   true,
	}
	if err := s.branches.Create(ctx, b); err != nil {
		return nil, mapWriteErr(err)
	}
	return b, nil
}

func (s *Service) ListBranches(ctx context.Context, caller domain.Identity, merchantID int64) ([]domain.Branch, error) {
	if _, err := s.accessibleMerchant(ctx, caller, merchantID); err != nil {
		return nil, err
	}
	return s.branches.ListByMerchant(ctx, merchantID, caller.Filter())
}

func (s *Service) UpdateBranch(ctx context.Context, caller domain.Identity, id int64, req UpdateBranchRequest) (*domain.Branch, error) {
	b, err := s.accessibleBranch(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		b.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		b.Address = *req.Address
	}
	if req.City != nil {
		b.City = *req.City
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
	if b.Name == "" {
		return nil, ErrInvalidInput
	}
	b.UpdatedAt = s.now().UTC()

	if err := s.branches.Update(ctx, b); err != nil {
		return nil, mapWriteErr(err)
	}
	return b, nil
}

func (s *Service) DeleteBranch(ctx context.Context, caller domain.Identity, id int64) error {
	if _, err := s.accessibleBranch(ctx, caller, id); err != nil {
		return err
	}
	return mapReadErr(s.branches.Delete(ctx, id))
}

func (s *Service) accessibleBranch(ctx context.Context, caller domain.Identity, id int64) (*domain.Branch, error) {
	b, err := s.branches.GetByID(ctx, id)
	if err != nil {
		return nil, mapReadErr(err)
	}
	if !caller.CanAccess(b.Path()) {
		return nil, ErrNotFound
	}
	return b, nil
}

/* ---------- POS TERMINALS ---------- */

func (s *Service) CreatePOS(ctx context.Context, caller domain.Identity, branchID int64, req CreatePOSRequest) (*domain.POSTerminal, error) {
	b, err := s.accessibleBranch(ctx, caller, branchID)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, ErrInvalidInput
	}

	p := &domain.POSTerminal{
		TenantID:     b.TenantID,
		MerchantID:   b.MerchantID,
		BranchID:     b.ID,
		Name:         strings.TrimSpace(req.Name),
		SerialNumber: strings.TrimSpace(req.SerialNumber),
		Model:        req.Model,
		IsActive:     true,
	}
	if err := s.terminals.Create(ctx, p); err != nil {
		return nil, mapWriteErr(err)
	}
	return p, nil
}

func (s *Service) ListPOS(ctx context.Context, caller domain.Identity, branchID int64) ([]domain.POSTerminal, error) {
	if _, err := s.accessibleBranch(ctx, caller, branchID); err != nil {
		return nil, err
	}
	return s.terminals.ListByBranch(ctx, branchID, caller.Filter())
}

func (s *Service) UpdatePOS(ctx context.Context, caller domain.Identity, id int64, req UpdatePOSRequest) (*domain.POSTerminal, error) {
	p, err := s.accessiblePOS(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Model != nil {
		p.Model = *req.Model
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if p.Name == "" {
		return nil, ErrInvalidInput
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.terminals.Update(ctx, p); err != nil {
		return nil, mapWriteErr(err)
	}
	return p, nil
}

// DeactivatePOS keeps the terminal row so historical payment orders still resolve.
func (s *Service) DeactivatePOS(ctx context.Context, caller domain.Identity, id int64) error {
	inactive := false
	_, err := s.UpdatePOS(ctx, caller, id, UpdatePOSRequest{IsActive: &inactive})
	return err
}

func (s *Service) accessiblePOS(ctx context.Context, caller domain.Identity, id int64) (*domain.POSTerminal, error) {
	p, err := s.terminals.GetByID(ctx, id)
	if err != nil {
		return nil, mapReadErr(err)
	}
	if !caller.CanAccess(p.Path()) {
		return nil, ErrNotFound
	}
	return p, nil
}

func mapReadErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func mapWriteErr(err error) error {
	if repository.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

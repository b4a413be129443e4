package merchant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchantpay/internal/database/dbtest"
	"merchantpay/internal/domain"
	"merchantpay/internal/repository"
)

var superadmin = domain.Identity{UserID: 1, Role: domain.RoleSuperAdmin}

func newService(t *testing.T) *Service {
	t.Helper()
	db := dbtest.New(t)
	return NewService(
		repository.NewTenantRepository(db),
		repository.NewMerchantRepository(db),
		repository.NewBranchRepository(db),
		repository.NewPOSRepository(db),
	)
}

type tree struct {
	tenant   *domain.Tenant
	merchant *domain.Merchant
	branch   *domain.Branch
	pos      *domain.POSTerminal
}

func seedTree(t *testing.T, s *Service, name string) tree {
	t.Helper()
	ctx := context.Background()
	tn, err := s.CreateTenant(ctx, CreateTenantRequest{Name: name})
	require.NoError(t, err)
	m, err := s.CreateMerchant(ctx, superadmin, CreateMerchantRequest{TenantID: tn.ID, Name: name + " shop"})
	require.NoError(t, err)
	b, err := s.CreateBranch(ctx, superadmin, m.ID, CreateBranchRequest{Name: name + " main"})
	require.NoError(t, err)
	p, err := s.CreatePOS(ctx, superadmin, b.ID, CreatePOSRequest{Name: "till", SerialNumber: name + "-001"})
	require.NoError(t, err)
	return tree{tn, m, b, p}
}

func tenantAdmin(tr tree) domain.Identity {
	return domain.Identity{UserID: 10, Role: domain.RoleTenantAdmin, TenantID: domain.Int64Ptr(tr.tenant.ID)}
}

func branchAdminOf(tr tree) domain.Identity {
	return domain.Identity{
		UserID:     11,
		Role:       domain.RoleBranchAdmin,
		TenantID:   domain.Int64Ptr(tr.tenant.ID),
		MerchantID: domain.Int64Ptr(tr.merchant.ID),
		BranchID:   domain.Int64Ptr(tr.branch.ID),
	}
}

func TestCreateMerchant_CopiesScope(t *testing.T) {
	s := newService(t)
	tr := seedTree(t, s, "acme")

	assert.Equal(t, tr.tenant.ID, tr.merchant.TenantID)
	assert.Equal(t, domain.MerchantActive, tr.merchant.Status)
	assert.Equal(t, tr.merchant.ID, tr.branch.MerchantID)
	assert.Equal(t, tr.tenant.ID, tr.branch.TenantID)
	assert.Equal(t, tr.branch.ID, tr.pos.BranchID)
	assert.Equal(t, tr.merchant.ID, tr.pos.MerchantID)
	assert.True(t, tr.pos.IsActive)
}

func TestCreateMerchant_TenantAdminIsPinnedToOwnTenant(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	a := seedTree(t, s, "acme")
	b := seedTree(t, s, "globex")

	m, err := s.CreateMerchant(ctx, tenantAdmin(a), CreateMerchantRequest{TenantID: b.tenant.ID, Name: "sneaky"})
	require.NoError(t, err)
	assert.Equal(t, a.tenant.ID, m.TenantID)

	_, err = s.CreateMerchant(ctx, superadmin, CreateMerchantRequest{Name: "no tenant"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreateMerchant(ctx, superadmin, CreateMerchantRequest{TenantID: 999, Name: "ghost"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListMerchants_Scoped(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	a := seedTree(t, s, "acme")
	seedTree(t, s, "globex")

	all, total, err := s.ListMerchants(ctx, superadmin, repository.ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	mine, total, err := s.ListMerchants(ctx, tenantAdmin(a), repository.ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, mine, 1)
	assert.Equal(t, a.merchant.ID, mine[0].ID)

	none, total, err := s.ListMerchants(ctx, domain.Identity{UserID: 5, Role: domain.RoleAdmin}, repository.ListFilters{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func TestGetMerchant_OutOfScopeIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	a := seedTree(t, s, "acme")
	b := seedTree(t, s, "globex")

	_, err := s.GetMerchant(ctx, tenantAdmin(a), b.merchant.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	m, err := s.GetMerchant(ctx, tenantAdmin(a), a.merchant.ID)
	require.NoError(t, err)
	assert.Len(t, m.Branches, 1)

	_, err = s.GetMerchant(ctx, superadmin, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMerchant_BranchAdminSeesOwnBranchOnly(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	a := seedTree(t, s, "acme")
	_, err := s.CreateBranch(ctx, superadmin, a.merchant.ID, CreateBranchRequest{Name: "second"})
	require.NoError(t, err)

	m, err := s.GetMerchant(ctx, branchAdminOf(a), a.merchant.ID)
	require.NoError(t, err)
	require.Len(t, m.Branches, 1)
	assert.Equal(t, a.branch.ID, m.Branches[0].ID)

	branches, err := s.ListBranches(ctx, branchAdminOf(a), a.merchant.ID)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, a.branch.ID, branches[0].ID)
}

func TestUpdateMerchant(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	a := seedTree(t, s, "acme")

	admin := domain.Identity{UserID: 12, Role: domain.RoleAdmin, TenantID: domain.Int64Ptr(a.tenant.ID), MerchantID: domain.Int64Ptr(a.merchant.ID)}
	name := "Acme Retail"
	m, err := s.UpdateMerchant(ctx, admin, a.merchant.ID, UpdateMerchantRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Acme Retail", m.Name)

	suspended := domain.MerchantSuspended
	_, err = s.UpdateMerchant(ctx, admin, a.merchant.ID, UpdateMerchantRequest{Status: &suspended})
	assert.ErrorIs(t, err, ErrForbidden)

	m, err = s.UpdateMerchant(ctx, tenantAdmin(a), a.merchant.ID, UpdateMerchantRequest{Status: &suspended})
	require.NoError(t, err)
	assert.Equal(t, domain.MerchantSuspended, m.Status)

	empty := " "
	_, err = s.UpdateMerchant(ctx, tenantAdmin(a), a.merchant.ID, UpdateMerchantRequest{Name: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteMerchant_SoftDeletes(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	a := seedTree(t, s, "acme")

	require.NoError(t, s.DeleteMerchant(ctx, tenantAdmin(a), a.merchant.ID))
	_, err := s.GetMerchant(ctx, superadmin, a.merchant.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteMerchant(ctx, superadmin, a.merchant.ID), ErrNotFound)
}

func TestCreatePOS_DuplicateSerialConflicts(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	a := seedTree(t, s, "acme")

	_, err := s.CreatePOS(ctx, branchAdminOf(a), a.branch.ID, CreatePOSRequest{Name: "dup", SerialNumber: "acme-001"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreatePOS_InactiveBranchRejected(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	a := seedTree(t, s, "acme")

	off := false
	_, err := s.UpdateBranch(ctx, superadmin, a.branch.ID, UpdateBranchRequest{IsActive: &off})
	require.NoError(t, err)

	_, err = s.CreatePOS(ctx, superadmin, a.branch.ID, CreatePOSRequest{Name: "x", SerialNumber: "acme-002"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeactivatePOS(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	a := seedTree(t, s, "acme")
	b := seedTree(t, s, "globex")

	assert.ErrorIs(t, s.DeactivatePOS(ctx, branchAdminOf(a), b.pos.ID), ErrNotFound)
	require.NoError(t, s.DeactivatePOS(ctx, branchAdminOf(a), a.pos.ID))

	terminals, err := s.ListPOS(ctx, branchAdminOf(a), a.branch.ID)
	require.NoError(t, err)
	require.Len(t, terminals, 1)
	assert.False(t, terminals[0].IsActive)
}

package repository

import (
	"context"
	"time"

	"merchantpay/internal/domain"

	"gorm.io/gorm"
)

type ListFilters struct {
	Limit  int
	Offset int
}

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TenantRepository) GetByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) List(ctx context.Context, f ListFilters) ([]domain.Tenant, int64, error) {
	var tenants []domain.Tenant
	var total int64

	q := r.db.WithContext(ctx).Model(&domain.Tenant{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := paginate(q, f.Limit, f.Offset).Order("id ASC").Find(&tenants).Error
	return tenants, total, err
}

type MerchantRepository struct {
	db *gorm.DB
}

func NewMerchantRepository(db *gorm.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

func (r *MerchantRepository) Create(ctx context.Context, m *domain.Merchant) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// GetByID excludes soft-deleted merchants.
func (r *MerchantRepository) GetByID(ctx context.Context, id int64) (*domain.Merchant, error) {
	var m domain.Merchant
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MerchantRepository) GetWithBranches(ctx context.Context, id int64) (*domain.Merchant, error) {
	var m domain.Merchant
	err := r.db.WithContext(ctx).
		Preload("Branches", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MerchantRepository) List(ctx context.Context, scope domain.ScopeFilter, f ListFilters) ([]domain.Merchant, int64, error) {
	var merchants []domain.Merchant
	var total int64

	q := applyScope(r.db.WithContext(ctx).Model(&domain.Merchant{}), scope, merchantScope)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := paginate(q, f.Limit, f.Offset).Order("id ASC").Find(&merchants).Error
	return merchants, total, err
}

func (r *MerchantRepository) Update(ctx context.Context, m *domain.Merchant) error {
	return r.db.WithContext(ctx).Model(m).Select(
		"name", "legal_name", "tax_id", "email", "phone", "status", "description", "updated_at",
	).Updates(m).Error
}

// Delete soft-deletes the merchant and, in the same transaction, deactivates
// its branches, terminals and users and revokes those users' refresh tokens.
func (r *MerchantRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Merchant{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Model(&domain.Branch{}).
			Where("merchant_id = ?", id).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return deactivateUnder(tx, "merchant_id", id, time.Now().UTC())
	})
}

type BranchRepository struct {
	db *gorm.DB
}

func NewBranchRepository(db *gorm.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

func (r *BranchRepository) Create(ctx context.Context, b *domain.Branch) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BranchRepository) GetByID(ctx context.Context, id int64) (*domain.Branch, error) {
	var b domain.Branch
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BranchRepository) ListByMerchant(ctx context.Context, merchantID int64, scope domain.ScopeFilter) ([]domain.Branch, error) {
	var branches []domain.Branch
	q := applyScope(r.db.WithContext(ctx).Model(&domain.Branch{}), scope, branchScope)
	err := q.Where("merchant_id = ?", merchantID).Order("id ASC").Find(&branches).Error
	return branches, err
}

func (r *BranchRepository) Update(ctx context.Context, b *domain.Branch) error {
	return r.db.WithContext(ctx).Model(b).Select(
		"name", "address", "city", "is_active", "updated_at",
	).Updates(b).Error
}

// Delete soft-deletes the branch and deactivates everything scoped under it.
func (r *BranchRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Branch{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return deactivateUnder(tx, "branch_id", id, time.Now().UTC())
	})
}

// deactivateUnder switches off the terminals and users whose scope column
// matches id, then revokes the refresh tokens of those users.
func deactivateUnder(tx *gorm.DB, column string, id int64, now time.Time) error {
	if err := tx.Model(&domain.POSTerminal{}).
		Where(column+" = ?", id).
		Update("is_active", false).Error; err != nil {
		return err
	}
	scoped := tx.Session(&gorm.Session{NewDB: true}).
		Model(&domain.User{}).Select("id").Where(column+" = ?", id)
	if err := tx.Model(&domain.RefreshToken{}).
		Where("revoked_at IS NULL AND user_id IN (?)", scoped).
		Update("revoked_at", now).Error; err != nil {
		return err
	}
	return tx.Model(&domain.User{}).
		Where(column+" = ?", id).
		Update("is_active", false).Error
}

type POSRepository struct {
	db *gorm.DB
}

func NewPOSRepository(db *gorm.DB) *POSRepository {
	return &POSRepository{db: db}
}

func (r *POSRepository) Create(ctx context.Context, p *domain.POSTerminal) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *POSRepository) GetByID(ctx context.Context, id int64) (*domain.POSTerminal, error) {
	var p domain.POSTerminal
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *POSRepository) ListByBranch(ctx context.Context, branchID int64, scope domain.ScopeFilter) ([]domain.POSTerminal, error) {
	var terminals []domain.POSTerminal
	q := applyScope(r.db.WithContext(ctx).Model(&domain.POSTerminal{}), scope, posScope)
	err := q.Where("branch_id = ?", branchID).Order("id ASC").Find(&terminals).Error
	return terminals, err
}

func (r *POSRepository) Update(ctx context.Context, p *domain.POSTerminal) error {
	return r.db.WithContext(ctx).Model(p).Select(
		"name", "model", "is_active", "updated_at",
	).Updates(p).Error
}

package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"merchantpay/internal/domain"
)

// scopeColumns names the columns a table uses for each hierarchy level.
// An empty name means the table cannot be filtered at that level.
type scopeColumns struct {
	tenant   string
	merchant string
	branch   string
	pos      string
}

var (
	merchantScope = scopeColumns{tenant: "tenant_id", merchant: "id"}
	branchScope   = scopeColumns{tenant: "tenant_id", merchant: "merchant_id", branch: "id"}
	posScope      = scopeColumns{tenant: "tenant_id", merchant: "merchant_id", branch: "branch_id", pos: "id"}
	fullScope     = scopeColumns{tenant: "tenant_id", merchant: "merchant_id", branch: "branch_id", pos: "pos_id"}
)

func applyScope(q *gorm.DB, f domain.ScopeFilter, cols scopeColumns) *gorm.DB {
	if f.Unrestricted() {
		return q
	}
	if f.MatchesNothing() {
		return q.Where("1 = 0")
	}
	if f.TenantID != 0 && cols.tenant != "" {
		q = q.Where(cols.tenant+" = ?", f.TenantID)
	}
	if f.MerchantID != 0 && cols.merchant != "" {
		q = q.Where(cols.merchant+" = ?", f.MerchantID)
	}
	if f.BranchID != 0 && cols.branch != "" {
		q = q.Where(cols.branch+" = ?", f.BranchID)
	}
	if f.PosID != 0 && cols.pos != "" {
		q = q.Where(cols.pos+" = ?", f.PosID)
	}
	return q
}

func paginate(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return q.Limit(limit).Offset(offset)
}

// IsUniqueViolation reports a unique constraint failure on PostgreSQL (23505) or SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLSTATE 23505")
}

// IsNotFound wraps gorm.ErrRecordNotFound so callers outside repository need not import gorm.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

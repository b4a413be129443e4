package domain

// Identity is the verified caller attached to a request by the authenticator.
type Identity struct {
	UserID     int64
	Email      string
	Role       UserRole
	TenantID   *int64
	MerchantID *int64
	BranchID   *int64
	PosID      *int64
}

// ResourcePath locates a resource in the tenant → merchant → branch → POS hierarchy.
// Zero means the level does not apply to the resource.
type ResourcePath struct {
	TenantID   int64
	MerchantID int64
	BranchID   int64
	PosID      int64
}

// CanAccess reports whether the identity's scoping claims cover the resource.
func (i Identity) CanAccess(p ResourcePath) bool {
	switch i.Role {
	case RoleSuperAdmin:
		return true
	case RoleTenantAdmin:
		return matches(i.TenantID, p.TenantID)
	case RoleAdmin:
		return matches(i.MerchantID, p.MerchantID)
	case RoleBranchAdmin:
		if p.BranchID == 0 {
			return matches(i.MerchantID, p.MerchantID)
		}
		return matches(i.BranchID, p.BranchID)
	case RoleCashier:
		switch {
		case p.PosID != 0:
			return matches(i.PosID, p.PosID)
		case p.BranchID != 0:
			return matches(i.BranchID, p.BranchID)
		default:
			return matches(i.MerchantID, p.MerchantID)
		}
	}
	return false
}

// Filter returns the narrowest scope columns a list query must be restricted to.
func (i Identity) Filter() ScopeFilter {
	switch i.Role {
	case RoleSuperAdmin:
		return ScopeFilter{}
	case RoleTenantAdmin:
		return ScopeFilter{TenantID: deref(i.TenantID), restricted: true}
	case RoleAdmin:
		return ScopeFilter{MerchantID: deref(i.MerchantID), restricted: true}
	case RoleBranchAdmin:
		return ScopeFilter{MerchantID: deref(i.MerchantID), BranchID: deref(i.BranchID), restricted: true}
	case RoleCashier:
		return ScopeFilter{
			MerchantID: deref(i.MerchantID),
			BranchID:   deref(i.BranchID),
			PosID:      deref(i.PosID),
			restricted: true,
		}
	}
	// unknown roles see nothing
	return ScopeFilter{restricted: true, none: true}
}

// ScopeFilter is consumed by repositories; zero fields are not applied.
type ScopeFilter struct {
	TenantID   int64
	MerchantID int64
	BranchID   int64
	PosID      int64

	restricted bool
	none       bool
}

// Unrestricted is true only for superadmin.
func (f ScopeFilter) Unrestricted() bool { return !f.restricted }

// MatchesNothing is true when the caller has no usable scope at all.
func (f ScopeFilter) MatchesNothing() bool {
	return f.none || (f.restricted && f.TenantID == 0 && f.MerchantID == 0 && f.BranchID == 0 && f.PosID == 0)
}

func matches(claim *int64, id int64) bool {
	return claim != nil && id != 0 && *claim == id
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func Int64Ptr(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

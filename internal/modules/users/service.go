package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"merchantpay/internal/domain"
	"merchantpay/internal/modules/auth"
	"merchantpay/internal/repository"
)

// TokenRevoker is satisfied by *repository.RefreshTokenRepository.
type TokenRevoker interface {
	RevokeByUser(ctx context.Context, userID int64, now time.Time) error
}

type Service struct {
	users     *repository.UserRepository
	tenants   *repository.TenantRepository
	merchants *repository.MerchantRepository
	branches  *repository.BranchRepository
	terminals *repository.POSRepository
	tokens    TokenRevoker
	now       func() time.Time
}

func NewService(
	users *repository.UserRepository,
	tenants *repository.TenantRepository,
	merchants *repository.MerchantRepository,
	branches *repository.BranchRepository,
	terminals *repository.POSRepository,
	tokens TokenRevoker,
) *Service {
	return &Service{
		users:     users,
		tenants:   tenants,
		merchants: merchants,
		branches:  branches,
		terminals: terminals,
		tokens:    tokens,
		now:       time.Now,
	}
}

var roleRank = map[domain.UserRole]int{
	domain.RoleSuperAdmin:  0,
	domain.RoleTenantAdmin: 1,
	domain.RoleAdmin:       2,
	domain.RoleBranchAdmin: 3,
	domain.RoleCashier:     4,
}

// canManage: superadmin manages every role, everyone else only strictly narrower roles.
func canManage(actor, target domain.UserRole) bool {
	if actor == domain.RoleSuperAdmin {
		return true
	}
	a, ok := roleRank[actor]
	if !ok {
		return false
	}
	t, ok := roleRank[target]
	return ok && t > a
}

func (s *Service) Create(ctx context.Context, caller domain.Identity, req CreateUserRequest) (*domain.User, error) {
	role, err := domain.ParseUserRole(req.Role)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if !canManage(caller.Role, role) {
		return nil, ErrForbidden
	}
	if len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	path, err := s.resolveScope(ctx, role, req)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleSuperAdmin && !caller.CanAccess(path) {
		return nil, ErrForbidden
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		IsActive:     true,
		TenantID:     domain.Int64Ptr(path.TenantID),
		MerchantID:   domain.Int64Ptr(path.MerchantID),
		BranchID:     domain.Int64Ptr(path.BranchID),
		PosID:        domain.Int64Ptr(path.PosID),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	log.Info().
		Int64("created_by", caller.UserID).
		Int64("user_id", u.ID).
		Str("role", string(role)).
		Msg("user created")
	return u, nil
}

// resolveScope loads the narrowest resource the role is bound to and returns its full path.
func (s *Service) resolveScope(ctx context.Context, role domain.UserRole, req CreateUserRequest) (domain.ResourcePath, error) {
	switch role {
	case domain.RoleSuperAdmin:
		return domain.ResourcePath{}, nil
	case domain.RoleTenantAdmin:
		if req.TenantID == 0 {
			return domain.ResourcePath{}, ErrScopeRequired
		}
		t, err := s.tenants.GetByID(ctx, req.TenantID)
		if err != nil {
			return domain.ResourcePath{}, scopeErr(err)
		}
		return domain.ResourcePath{TenantID: t.ID}, nil
	case domain.RoleAdmin:
		if req.MerchantID == 0 {
			return domain.ResourcePath{}, ErrScopeRequired
		}
		m, err := s.merchants.GetByID(ctx, req.MerchantID)
		if err != nil {
			return domain.ResourcePath{}, scopeErr(err)
		}
		return m.Path(), nil
	case domain.RoleBranchAdmin:
		if req.BranchID == 0 {
			return domain.ResourcePath{}, ErrScopeRequired
		}
		b, err := s.branches.GetByID(ctx, req.BranchID)
		if err != nil {
			return domain.ResourcePath{}, scopeErr(err)
		}
		return b.Path(), nil
	case domain.RoleCashier:
		if req.PosID == 0 {
			return domain.ResourcePath{}, ErrScopeRequired
		}
		p, err := s.terminals.GetByID(ctx, req.PosID)
		if err != nil {
			return domain.ResourcePath{}, scopeErr(err)
		}
		return p.Path(), nil
	}
	return domain.ResourcePath{}, ErrInvalidInput
}

func scopeErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidInput
	}
	return err
}

func (s *Service) List(ctx context.Context, caller domain.Identity, f repository.UserFilters) ([]domain.User, int64, error) {
	return s.users.List(ctx, caller.Filter(), f)
}

func (s *Service) Get(ctx context.Context, caller domain.Identity, id int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if u.ID != caller.UserID && !caller.CanAccess(userPath(u)) {
		return nil, ErrNotFound
	}
	return u, nil
}

// SetStatus activates or deactivates a user. Deactivation revokes every
// refresh token of the user; access tokens already issued run out on their own.
func (s *Service) SetStatus(ctx context.Context, caller domain.Identity, id int64, active bool) (*domain.User, error) {
	if id == caller.UserID {
		return nil, ErrSelfStatus
	}
	u, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !canManage(caller.Role, u.Role) {
		return nil, ErrForbidden
	}

	if err := s.users.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !active {
		if err := s.tokens.RevokeByUser(ctx, id, s.now().UTC()); err != nil {
			return nil, err
		}
	}
	u.IsActive = active

	log.Info().
		Int64("changed_by", caller.UserID).
		Int64("user_id", id).
		Bool("active", active).
		Msg("user status changed")
	return u, nil
}

func userPath(u *domain.User) domain.ResourcePath {
	var p domain.ResourcePath
	if u.TenantID != nil {
		p.TenantID = *u.TenantID
	}
	if u.MerchantID != nil {
		p.MerchantID = *u.MerchantID
	}
	if u.BranchID != nil {
		p.BranchID = *u.BranchID
	}
	if u.PosID != nil {
		p.PosID = *u.PosID
	}
	return p
}

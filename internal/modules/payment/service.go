package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"merchantpay/internal/domain"
	"merchantpay/internal/pkg/validator"
	"merchantpay/internal/repository"
)

var (
	ErrNotFound          = errors.New("payment order not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrTerminalRequired  = errors.New("pos terminal is required")
	ErrTerminalInactive  = errors.New("pos terminal is inactive")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Service struct {
	orders    orderRepo
	terminals terminalReader
	branches  branchReader
	merchants merchantReader
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(orders orderRepo, terminals terminalReader, branches branchReader, merchants merchantReader, opts ...Option) *Service {
	s := &Service{orders: orders, terminals: terminals, branches: branches, merchants: merchants, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a pending order on a POS terminal. Scope columns are copied
// from the terminal, never from the request.
func (s *Service) Create(ctx context.Context, caller domain.Identity, req CreateOrderRequest) (*domain.PaymentOrder, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if !validator.IsCurrency(currency) {
		return nil, ErrInvalidCurrency
	}

	posID := req.PosID
	if posID == 0 && caller.PosID != nil {
		posID = *caller.PosID
	}
	if posID == 0 {
		return nil, ErrTerminalRequired
	}

	pos, err := s.terminals.GetByID(ctx, posID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !caller.CanAccess(pos.Path()) {
		return nil, ErrNotFound
	}
	if err := s.checkAcceptsOrders(ctx, pos); err != nil {
		return nil, err
	}

	o := &domain.PaymentOrder{
		Reference:   uuid.NewString(),
		TenantID:    pos.TenantID,
		MerchantID:  pos.MerchantID,
		BranchID:    pos.BranchID,
		PosID:       pos.ID,
		CreatedBy:   caller.UserID,
		Amount:      req.Amount,
		Currency:    currency,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.PaymentOrderPending,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}

	log.Info().
		Int64("order_id", o.ID).
		Str("reference", o.Reference).
		Int64("pos_id", o.PosID).
		Int64("amount", o.Amount).
		Str("currency", o.Currency).
		Msg("payment order created")
	return o, nil
}

// checkAcceptsOrders requires the terminal, its branch and its merchant to be
// active. Soft-deleted parents read as missing and count as inactive.
func (s *Service) checkAcceptsOrders(ctx context.Context, pos *domain.POSTerminal) error {
	if !pos.IsActive {
		return ErrTerminalInactive
	}
	b, err := s.branches.GetByID(ctx, pos.BranchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTerminalInactive
		}
		return err
	}
	if !b.IsActive {
		return ErrTerminalInactive
	}
	m, err := s.merchants.GetByID(ctx, pos.MerchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTerminalInactive
		}
		return err
	}
	if m.Status != domain.MerchantActive {
		return ErrTerminalInactive
	}
	return nil
}

func (s *Service) List(ctx context.Context, caller domain.Identity, f repository.PaymentOrderFilters) ([]domain.PaymentOrder, int64, error) {
	return s.orders.List(ctx, caller.Filter(), f)
}

func (s *Service) Get(ctx context.Context, caller domain.Identity, id int64) (*domain.PaymentOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !caller.CanAccess(o.Path()) {
		return nil, ErrNotFound
	}
	return o, nil
}

// UpdateStatus moves a pending order to paid or cancelled. Only one of two
// concurrent transitions can win; the loser gets ErrInvalidTransition.
func (s *Service) UpdateStatus(ctx context.Context, caller domain.Identity, id int64, next domain.PaymentOrderStatus) (*domain.PaymentOrder, error) {
	o, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	ok, err := s.orders.Transition(ctx, id, next, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	log.Info().
		Int64("order_id", id).
		Int64("changed_by", caller.UserID).
		Str("status", string(next)).
		Msg("payment order status changed")
	return s.orders.GetByID(ctx, id)
}

package payment

import (
	"context"
	"time"

	"merchantpay/internal/domain"
	"merchantpay/internal/repository"
)

type terminalReader interface {
	GetByID(ctx context.Context, id int64) (*domain.POSTerminal, error)
}

type branchReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Branch, error)
}

type merchantReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Merchant, error)
}

type orderRepo interface {
	Create(ctx context.Context, o *domain.PaymentOrder) error
	GetByID(ctx context.Context, id int64) (*domain.PaymentOrder, error)
	List(ctx context.Context, scope domain.ScopeFilter, f repository.PaymentOrderFilters) ([]domain.PaymentOrder, int64, error)
	Transition(ctx context.Context, id int64, next domain.PaymentOrderStatus, at time.Time) (bool, error)
}

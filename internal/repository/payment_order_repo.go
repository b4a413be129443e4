package repository

import (
	"context"
	"time"

	"merchantpay/internal/domain"

	"gorm.io/gorm"
)

type PaymentOrderFilters struct {
	Status domain.PaymentOrderStatus
	Limit  int
	Offset int
}

type PaymentOrderRepository struct {
	db *gorm.DB
}

func NewPaymentOrderRepository(db *gorm.DB) *PaymentOrderRepository {
	return &PaymentOrderRepository{db: db}
}

func (r *PaymentOrderRepository) Create(ctx context.Context, o *domain.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *PaymentOrderRepository) GetByID(ctx context.Context, id int64) (*domain.PaymentOrder, error) {
	var o domain.PaymentOrder
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PaymentOrderRepository) List(ctx context.Context, scope domain.ScopeFilter, f PaymentOrderFilters) ([]domain.PaymentOrder, int64, error) {
	var orders []domain.PaymentOrder
	var total int64

	q := applyScope(r.db.WithContext(ctx).Model(&domain.PaymentOrder{}), scope, fullScope)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := paginate(q, f.Limit, f.Offset).Order("id DESC").Find(&orders).Error
	return orders, total, err
}

// Transition moves a pending order to next. It returns false when the order
// was no longer pending, so concurrent transitions cannot both win.
func (r *PaymentOrderRepository) Transition(ctx context.Context, id int64, next domain.PaymentOrderStatus, at time.Time) (bool, error) {
	at = at.UTC()
	updates := map[string]any{"status": next, "updated_at": at}
	switch next {
	case domain.PaymentOrderPaid:
		updates["paid_at"] = at
	case domain.PaymentOrderCancelled:
		updates["cancelled_at"] = at
	}

	res := r.db.WithContext(ctx).Model(&domain.PaymentOrder{}).
		Where("id = ? AND status = ?", id, domain.PaymentOrderPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

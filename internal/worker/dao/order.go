package dao

import (
	"context"

	"dex-arb/internal/worker/model"

	"gorm.io/gorm"
)

// OrderDAO 订单记录访问接口
type OrderDAO interface {
	// Create 以PENDING状态落库
	Create(ctx context.Context, order *model.Order) error

	// Update 写入终态与执行结果，每单只写一次
	Update(ctx context.Context, order *model.Order) error
}

type orderDAO struct {
	db *gorm.DB
}

func NewOrderDAO(db *gorm.DB) OrderDAO {
	return &orderDAO{db: db}
}

func (o *orderDAO) Create(ctx context.Context, order *model.Order) error {
	return o.db.WithContext(ctx).Create(order).Error
}

func (o *orderDAO) Update(ctx context.Context, order *model.Order) error {
	return o.db.WithContext(ctx).Save(order).Error
}

package repository

import (
	"context"
	"errors"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *model.AuctionOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*model.AuctionOrder, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.AuctionOrder, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *OrderRepository) get(q *gorm.DB, id int64) (*model.AuctionOrder, error) {
	var order model.AuctionOrder
	if err := q.Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerr.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return auctionerr.ErrOrderStatusInvalid
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}

	if toStatus == model.OrderStatusPaid {
		now := time.Now()
		updates["paid_at"] = &now
	}

	result := r.db.WithContext(ctx).
		Model(&model.AuctionOrder{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return auctionerr.ErrOrderStatusInvalid
	}

	return nil
}

func (r *OrderRepository) ListOverdue(ctx context.Context, createdBefore time.Time, limit int) ([]*model.AuctionOrder, error) {
	var orders []*model.AuctionOrder
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.OrderStatusPendingPayment, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID int64, page, pageSize int) ([]*model.AuctionOrder, int64, error) {
	var orders []*model.AuctionOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&model.AuctionOrder{}).Where("buyer_id = ?", buyerID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}

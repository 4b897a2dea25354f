package repository

import (
	"context"
	"errors"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Create(ctx context.Context, item *model.AuctionItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*model.AuctionItem, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *ItemRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.AuctionItem, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *ItemRepository) get(q *gorm.DB, id int64) (*model.AuctionItem, error) {
	var item model.AuctionItem
	if err := q.Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerr.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepository) ListBySession(ctx context.Context, sessionID int64) ([]*model.AuctionItem, error) {
	var items []*model.AuctionItem
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *ItemRepository) UpdateCurrentPriceAndStatus(ctx context.Context, id int64, price int64, status string) error {
	result := r.db.WithContext(ctx).
		Model(&model.AuctionItem{}).
		Where("id = ? AND current_price <= ?", id, price).
		Updates(map[string]interface{}{
			"current_price": price,
			"status":        status,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auctionerr.ErrBidTooLow
	}
	return nil
}

func (r *ItemRepository) UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string) error {
	result := r.db.WithContext(ctx).
		Model(&model.AuctionItem{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Update("status", toStatus)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auctionerr.ErrInvalidTransition
	}
	return nil
}

package repository

import (
	"context"

	"auctionhouse/internal/model"

	"gorm.io/gorm"
)

type BidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{db: db}
}

func (r *BidRepository) Insert(ctx context.Context, bid *model.AuctionBid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

func (r *BidRepository) ListValidBidsForItem(ctx context.Context, itemID int64) ([]model.AuctionBid, error) {
	var bids []model.AuctionBid
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status = ?", itemID, model.BidStatusValid).
		Order("bid_time ASC, id ASC").
		Find(&bids).Error
	return bids, err
}

func (r *BidRepository) MaxBidForUserOnItem(ctx context.Context, itemID, sessionID, userID int64) (int64, error) {
	var maxAmount int64
	err := r.db.WithContext(ctx).
		Model(&model.AuctionBid{}).
		Select("COALESCE(MAX(amount), 0)").
		Where("item_id = ? AND session_id = ? AND user_id = ? AND status = ?", itemID, sessionID, userID, model.BidStatusValid).
		Scan(&maxAmount).Error
	return maxAmount, err
}

package repository

import (
	"context"
	"errors"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"

	"gorm.io/gorm"
)

type ResultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Create fails with ErrAlreadySettled when the (session, item) pair already
// has a result; the database must be opened with TranslateError enabled.
func (r *ResultRepository) Create(ctx context.Context, result *model.AuctionResult) error {
	err := r.db.WithContext(ctx).Create(result).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return auctionerr.ErrAlreadySettled
	}
	return err
}

func (r *ResultRepository) Get(ctx context.Context, sessionID, itemID int64) (*model.AuctionResult, error) {
	var result model.AuctionResult
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND item_id = ?", sessionID, itemID).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepository) Exists(ctx context.Context, sessionID, itemID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AuctionResult{}).
		Where("session_id = ? AND item_id = ?", sessionID, itemID).
		Count(&count).Error
	return count > 0, err
}

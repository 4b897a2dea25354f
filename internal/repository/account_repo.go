package repository

import (
	"context"
	"errors"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*model.DepositAccount, error) {
	var account model.DepositAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerr.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) getForUpdate(ctx context.Context, userID int64) (*model.DepositAccount, error) {
	var account model.DepositAccount
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerr.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// create inserts an empty account, tolerating a concurrent insert of the same user.
func (r *AccountRepository) create(ctx context.Context, userID int64) error {
	account := &model.DepositAccount{
		UserID: userID,
		Status: model.AccountStatusActive,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(account).Error
}

func (r *AccountRepository) GetOrCreate(ctx context.Context, userID int64) (*model.DepositAccount, error) {
	account, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, auctionerr.ErrAccountNotFound) {
		return nil, err
	}
	if err := r.create(ctx, userID); err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

func (r *AccountRepository) GetOrCreateForUpdate(ctx context.Context, userID int64) (*model.DepositAccount, error) {
	account, err := r.getForUpdate(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, auctionerr.ErrAccountNotFound) {
		return nil, err
	}
	if err := r.create(ctx, userID); err != nil {
		return nil, err
	}
	return r.getForUpdate(ctx, userID)
}

// UpdateBalances writes the four balance columns. The row must already be
// locked by the caller's transaction.
func (r *AccountRepository) UpdateBalances(ctx context.Context, account *model.DepositAccount) error {
	if !account.Balanced() {
		return errors.New("refusing to persist unbalanced deposit account")
	}
	result := r.db.WithContext(ctx).
		Model(&model.DepositAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]interface{}{
			"total":     account.Total,
			"available": account.Available,
			"frozen":    account.Frozen,
			"refunded":  account.Refunded,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auctionerr.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, userID int64, status string) error {
	result := r.db.WithContext(ctx).
		Model(&model.DepositAccount{}).
		Where("user_id = ?", userID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auctionerr.ErrAccountNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, trans *model.DepositTransaction) error {
	return r.db.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.DepositTransaction, error) {
	var trans model.DepositTransaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerr.ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// UpdateReview finalises a PENDING entry; rows already reviewed are left untouched.
func (r *TransactionRepository) UpdateReview(ctx context.Context, trans *model.DepositTransaction) error {
	result := r.db.WithContext(ctx).
		Model(&model.DepositTransaction{}).
		Where("id = ? AND status = ?", trans.ID, model.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":         trans.Status,
			"balance_before": trans.BalanceBefore,
			"balance_after":  trans.BalanceAfter,
			"reviewer_id":    trans.ReviewerID,
			"remark":         trans.Remark,
			"reviewed_at":    trans.ReviewedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auctionerr.ErrTransactionNotPending
	}
	return nil
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.DepositTransaction, int64, error) {
	var transactions []*model.DepositTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.DepositTransaction{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}

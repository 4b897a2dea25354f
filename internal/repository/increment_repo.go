package repository

import (
	"context"
	"errors"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"

	"gorm.io/gorm"
)

type IncrementRepository struct {
	db *gorm.DB
}

func NewIncrementRepository(db *gorm.DB) *IncrementRepository {
	return &IncrementRepository{db: db}
}

// CreateConfig inserts the config together with its Rules.
func (r *IncrementRepository) CreateConfig(ctx context.Context, config *model.BidIncrementConfig) error {
	return r.db.WithContext(ctx).Create(config).Error
}

func (r *IncrementRepository) GetConfig(ctx context.Context, configID int64) (*model.BidIncrementConfig, error) {
	var config model.BidIncrementConfig
	err := r.db.WithContext(ctx).
		Preload("Rules", func(db *gorm.DB) *gorm.DB { return db.Order("min_amount ASC") }).
		Where("id = ? AND deleted = ?", configID, false).
		First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerr.ErrConfigNotFound
		}
		return nil, err
	}
	return &config, nil
}

func (r *IncrementRepository) GetRules(ctx context.Context, configID int64) ([]model.BidIncrementRule, error) {
	var rules []model.BidIncrementRule
	err := r.db.WithContext(ctx).
		Joins("JOIN bid_increment_config c ON c.id = bid_increment_rule.config_id AND c.deleted = ? AND c.enabled = ?", false, true).
		Where("bid_increment_rule.config_id = ?", configID).
		Order("bid_increment_rule.min_amount ASC").
		Find(&rules).Error
	return rules, err
}

func (r *IncrementRepository) ReplaceRules(ctx context.Context, configID int64, rules []model.BidIncrementRule) error {
	if err := r.db.WithContext(ctx).Where("config_id = ?", configID).Delete(&model.BidIncrementRule{}).Error; err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	for i := range rules {
		rules[i].ID = 0
		rules[i].ConfigID = configID
	}
	return r.db.WithContext(ctx).Create(&rules).Error
}

func (r *IncrementRepository) DeleteConfig(ctx context.Context, configID int64) error {
	if err := r.db.WithContext(ctx).Where("config_id = ?", configID).Delete(&model.BidIncrementRule{}).Error; err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&model.BidIncrementConfig{}).
		Where("id = ? AND deleted = ?", configID, false).
		Update("deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auctionerr.ErrConfigNotFound
	}
	return nil
}

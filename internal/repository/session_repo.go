package repository

import (
	"context"
	"errors"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"

	"gorm.io/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.AuctionSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*model.AuctionSession, error) {
	var session model.AuctionSession
	err := r.db.WithContext(ctx).Where("id = ? AND deleted = ?", id, false).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerr.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetBidIncrementConfigID(ctx context.Context, id int64) (*int64, error) {
	session, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.BidIncrementConfigID, nil
}

func (r *SessionRepository) UpdateEndTime(ctx context.Context, id int64, newEndTime, expectedEnd time.Time, expectedCount int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AuctionSession{}).
		Where("id = ? AND extension_count = ? AND end_time = ?", id, expectedCount, expectedEnd).
		Updates(map[string]interface{}{
			"end_time":        newEndTime,
			"extension_count": expectedCount + 1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *SessionRepository) UpdateSchedule(ctx context.Context, id int64, start, end time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.AuctionSession{}).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]interface{}{
			"start_time": start,
			"end_time":   end,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auctionerr.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) MarkCancelled(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.AuctionSession{}).
		Where("id = ? AND deleted = ?", id, false).
		Update("cancelled", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auctionerr.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) ListByBidIncrementConfigID(ctx context.Context, configID int64) ([]*model.AuctionSession, error) {
	var sessions []*model.AuctionSession
	err := r.db.WithContext(ctx).
		Where("bid_increment_config_id = ? AND deleted = ?", configID, false).
		Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) ListWithOpenItems(ctx context.Context, now time.Time, limit int) ([]*model.AuctionSession, error) {
	var sessions []*model.AuctionSession
	openItems := r.db.Model(&model.AuctionItem{}).
		Select("session_id").
		Where("status IN ?", []string{model.ItemStatusApproved, model.ItemStatusInAuction})
	err := r.db.WithContext(ctx).
		Where("deleted = ? AND (start_time <= ? OR cancelled = ?)", false, now, true).
		Where("id IN (?)", openItems).
		Order("end_time ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

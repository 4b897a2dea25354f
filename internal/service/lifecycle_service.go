package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/infrastructure/cache"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
	"auctionhouse/pkg/logger"
	"auctionhouse/pkg/money"

	"github.com/shopspring/decimal"
)

// LifecycleService drives the item state machine and the admin session
// actions. Session status itself is never stored except for cancellation.
type LifecycleService struct {
	store   repository.Store
	counter cache.Counter
	now     func() time.Time

	defaultDepositRatio decimal.Decimal
}

func NewLifecycleService(store repository.Store, counter cache.Counter) *LifecycleService {
	return &LifecycleService{store: store, counter: counter, now: time.Now}
}

// SetDefaultDepositRatio sets the deposit ratio applied to sessions created
// without one.
func (s *LifecycleService) SetDefaultDepositRatio(ratio decimal.Decimal) {
	s.defaultDepositRatio = ratio
}

type CreateSessionRequest struct {
	Name                 string          `json:"name" binding:"required"`
	StartTime            time.Time       `json:"start_time" binding:"required"`
	EndTime              time.Time       `json:"end_time" binding:"required"`
	DepositRatio         decimal.Decimal `json:"deposit_ratio"`
	CommissionRatio      decimal.Decimal `json:"commission_ratio"`
	BidIncrementConfigID *int64          `json:"bid_increment_config_id"`
	AntiSnipingEnabled   bool            `json:"anti_sniping_enabled"`
	ThresholdSeconds     int             `json:"threshold_seconds"`
	ExtendSeconds        int             `json:"extend_seconds"`
	MaxExtensions        int             `json:"max_extensions"`
}

func (s *LifecycleService) CreateSession(ctx context.Context, req *CreateSessionRequest) (*model.AuctionSession, error) {
	if req.DepositRatio.IsZero() {
		req.DepositRatio = s.defaultDepositRatio
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("%w: end time must be after start time", auctionerr.ErrInvalidTransition)
	}
	if !money.ValidRatio(req.DepositRatio) || !money.ValidRatio(req.CommissionRatio) {
		return nil, fmt.Errorf("%w: ratios must be within [0, 1]", auctionerr.ErrInvalidAmount)
	}
	if req.ThresholdSeconds < 0 || req.ExtendSeconds < 0 || req.MaxExtensions < 0 {
		return nil, fmt.Errorf("%w: anti-sniping parameters must not be negative", auctionerr.ErrInvalidAmount)
	}
	if req.BidIncrementConfigID != nil {
		if _, err := s.store.Increments().GetConfig(ctx, *req.BidIncrementConfigID); err != nil {
			return nil, err
		}
	}

	session := &model.AuctionSession{
		Name:                 req.Name,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		DepositRatio:         req.DepositRatio,
		CommissionRatio:      req.CommissionRatio,
		BidIncrementConfigID: req.BidIncrementConfigID,
		AntiSnipingEnabled:   req.AntiSnipingEnabled,
		ThresholdSeconds:     req.ThresholdSeconds,
		ExtendSeconds:        req.ExtendSeconds,
		MaxExtensions:        req.MaxExtensions,
	}
	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("创建拍卖会失败: %w", err)
	}
	return session, nil
}

type CreateItemRequest struct {
	SessionID     int64  `json:"session_id" binding:"required"`
	Name          string `json:"name" binding:"required"`
	StartingPrice int64  `json:"starting_price" binding:"gte=0"`
	ReservePrice  *int64 `json:"reserve_price"`
}

// CreateItem adds a DRAFT item to a session.
func (s *LifecycleService) CreateItem(ctx context.Context, req *CreateItemRequest) (*model.AuctionItem, error) {
	if req.StartingPrice < 0 || (req.ReservePrice != nil && *req.ReservePrice < 0) {
		return nil, auctionerr.ErrInvalidAmount
	}
	if _, err := s.store.Sessions().GetByID(ctx, req.SessionID); err != nil {
		return nil, err
	}
	item := &model.AuctionItem{
		SessionID:     req.SessionID,
		Name:          req.Name,
		StartingPrice: req.StartingPrice,
		ReservePrice:  req.ReservePrice,
		Status:        model.ItemStatusDraft,
	}
	if err := s.store.Items().Create(ctx, item); err != nil {
		return nil, fmt.Errorf("创建拍品失败: %w", err)
	}
	return item, nil
}

// ============================================================================
// 拍品状态机
// ============================================================================
//
//   DRAFT -> PENDING_REVIEW -> APPROVED -> IN_AUCTION -> SOLD / UNSOLD
//                           \-> REJECTED
//   APPROVED <-> DELISTED
//
// 管理端只能走 submit / approve / reject / delist / relist，
// IN_AUCTION 之后的状态由开拍和结算推进。

func (s *LifecycleService) SubmitItem(ctx context.Context, itemID int64) (*model.AuctionItem, error) {
	return s.transition(ctx, itemID, model.ItemActionSubmit, nil)
}

func (s *LifecycleService) ApproveItem(ctx context.Context, itemID int64) (*model.AuctionItem, error) {
	return s.transition(ctx, itemID, model.ItemActionApprove, nil)
}

func (s *LifecycleService) RejectItem(ctx context.Context, itemID int64) (*model.AuctionItem, error) {
	return s.transition(ctx, itemID, model.ItemActionReject, nil)
}

// DelistItem is refused while the item's session is pending or running.
func (s *LifecycleService) DelistItem(ctx context.Context, itemID int64) (*model.AuctionItem, error) {
	return s.transition(ctx, itemID, model.ItemActionDelist, func(tx repository.Repos, item *model.AuctionItem) error {
		session, err := tx.Sessions().GetByID(ctx, item.SessionID)
		if errors.Is(err, auctionerr.ErrSessionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		switch status := session.StatusAt(s.now()); status {
		case model.SessionStatusPending, model.SessionStatusActive:
			return fmt.Errorf("%w: session %d is %s", auctionerr.ErrInvalidTransition, session.ID, status)
		}
		return nil
	})
}

func (s *LifecycleService) RelistItem(ctx context.Context, itemID int64) (*model.AuctionItem, error) {
	return s.transition(ctx, itemID, model.ItemActionRelist, nil)
}

func (s *LifecycleService) transition(ctx context.Context, itemID int64, action string, guard func(tx repository.Repos, item *model.AuctionItem) error) (*model.AuctionItem, error) {
	var out *model.AuctionItem
	err := s.store.Transaction(ctx, func(tx repository.Repos) error {
		item, err := tx.Items().GetByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		next, ok := model.NextItemStatus(item.Status, action)
		if !ok {
			return fmt.Errorf("%w: cannot %s item in status %s", auctionerr.ErrInvalidTransition, action, item.Status)
		}
		if guard != nil {
			if err := guard(tx, item); err != nil {
				return err
			}
		}
		if err := tx.Items().UpdateStatus(ctx, item.ID, item.Status, next); err != nil {
			return err
		}
		item.Status = next
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("item status changed", map[string]any{"item_id": itemID, "action": action, "status": out.Status})
	return out, nil
}

// GetItem returns an item and bumps its view counter.
func (s *LifecycleService) GetItem(ctx context.Context, itemID int64) (*model.AuctionItem, int64, error) {
	item, err := s.store.Items().GetByID(ctx, itemID)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.counter.Increment(ctx, cache.ItemViewCountKey(itemID))
	if err != nil {
		logger.Warn("failed to bump view counter", map[string]any{"item_id": itemID, "error": err.Error()})
	}
	return item, views, nil
}

// BidCount reads the advisory bid counter of an item.
func (s *LifecycleService) BidCount(ctx context.Context, itemID int64) int64 {
	n, err := s.counter.Get(ctx, cache.ItemBidCountKey(itemID))
	if err != nil {
		logger.Warn("failed to read bid counter", map[string]any{"item_id": itemID, "error": err.Error()})
		return 0
	}
	return n
}

// ============================================================================
// 拍卖会
// ============================================================================
//
// 拍卖会状态不落库，由 start/end/cancelled 和当前时间推导：
//   cancelled              -> CANCELLED
//   now < start            -> PENDING
//   start <= now <= end    -> ACTIVE
//   now > end              -> ENDED
//
// 提前开拍、提前结束都只是改写 start/end。

type SessionView struct {
	Session *model.AuctionSession `json:"session"`
	Status  string                `json:"status"`
}

func (s *LifecycleService) SessionStatus(ctx context.Context, sessionID int64) (*SessionView, error) {
	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionView{Session: session, Status: session.StatusAt(s.now())}, nil
}

// StartSession opens bidding on every APPROVED item of an active session and
// returns the ids of the items it moved to IN_AUCTION.
func (s *LifecycleService) StartSession(ctx context.Context, sessionID int64) ([]int64, error) {
	var started []int64
	err := s.store.Transaction(ctx, func(tx repository.Repos) error {
		session, err := tx.Sessions().GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if status := session.StatusAt(s.now()); status != model.SessionStatusActive {
			return fmt.Errorf("%w: session %d is %s", auctionerr.ErrInvalidTransition, sessionID, status)
		}
		items, err := tx.Items().ListBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		for _, item := range items {
			next, ok := model.NextItemStatus(item.Status, model.ItemActionStart)
			if !ok {
				continue
			}
			if err := tx.Items().UpdateStatus(ctx, item.ID, item.Status, next); err != nil {
				return err
			}
			started = append(started, item.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(started) > 0 {
		logger.Info("session items opened for bidding", map[string]any{"session_id": sessionID, "items": len(started)})
	}
	return started, nil
}

// StartSessionNow moves a pending session's start time to now and opens it.
func (s *LifecycleService) StartSessionNow(ctx context.Context, sessionID int64) ([]int64, error) {
	now := s.now()
	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if status := session.StatusAt(now); status != model.SessionStatusPending {
		return nil, fmt.Errorf("%w: session %d is %s", auctionerr.ErrInvalidTransition, sessionID, status)
	}
	if err := s.store.Sessions().UpdateSchedule(ctx, sessionID, now, session.EndTime); err != nil {
		return nil, err
	}
	return s.StartSession(ctx, sessionID)
}

// EndSessionNow closes an active session immediately. Settlement is left to
// the caller or the scheduler.
func (s *LifecycleService) EndSessionNow(ctx context.Context, sessionID int64) (*SessionView, error) {
	now := s.now()
	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if status := session.StatusAt(now); status != model.SessionStatusActive {
		return nil, fmt.Errorf("%w: session %d is %s", auctionerr.ErrInvalidTransition, sessionID, status)
	}
	// Active includes now == end, so step just past it
	end := now.Add(-time.Millisecond)
	start := session.StartTime
	if end.Before(start) {
		start = end
	}
	if err := s.store.Sessions().UpdateSchedule(ctx, sessionID, start, end); err != nil {
		return nil, err
	}
	session.StartTime, session.EndTime = start, end
	logger.Info("session ended by admin", map[string]any{"session_id": sessionID})
	return &SessionView{Session: session, Status: session.StatusAt(now)}, nil
}

// CancelSession permanently cancels a session that has not ended. Cancelling
// twice is a no-op.
func (s *LifecycleService) CancelSession(ctx context.Context, sessionID int64) (*SessionView, error) {
	now := s.now()
	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch session.StatusAt(now) {
	case model.SessionStatusCancelled:
		return &SessionView{Session: session, Status: model.SessionStatusCancelled}, nil
	case model.SessionStatusEnded:
		return nil, fmt.Errorf("%w: session %d already ended", auctionerr.ErrInvalidTransition, sessionID)
	}
	if err := s.store.Sessions().MarkCancelled(ctx, sessionID); err != nil {
		return nil, err
	}
	session.Cancelled = true
	logger.Info("session cancelled", map[string]any{"session_id": sessionID})
	return &SessionView{Session: session, Status: model.SessionStatusCancelled}, nil
}

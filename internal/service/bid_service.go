package service

import (
	"context"
	"fmt"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/event"
	"auctionhouse/internal/infrastructure/cache"
	"auctionhouse/internal/infrastructure/lock"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
	"auctionhouse/pkg/logger"
	"auctionhouse/pkg/money"
)

type BidRequest struct {
	SessionID int64 `json:"session_id" binding:"required"`
	ItemID    int64 `json:"item_id" binding:"required"`
	UserID    int64 `json:"user_id" binding:"required"`
	Amount    int64 `json:"amount" binding:"required,gt=0"`
}

type BidResult struct {
	Bid             *model.AuctionBid `json:"bid"`
	CurrentPrice    int64             `json:"current_price"`
	RequiredDeposit int64             `json:"required_deposit"`
	DepositFrozen   int64             `json:"deposit_frozen"`
	Extended        bool              `json:"extended"`
	EndTime         time.Time         `json:"end_time"`
	ExtensionCount  int               `json:"extension_count"`
}

// BidService admits bids. Everything from the item read to the anti-sniping
// extension runs under the item lock and inside one store transaction.
type BidService struct {
	store      repository.Store
	ledger     *DepositLedger
	increments *IncrementService
	locker     lock.Locker
	publisher  event.Publisher
	counter    cache.Counter
	now        func() time.Time
}

func NewBidService(
	store repository.Store,
	ledger *DepositLedger,
	increments *IncrementService,
	locker lock.Locker,
	publisher event.Publisher,
	counter cache.Counter,
) *BidService {
	return &BidService{
		store:      store,
		ledger:     ledger,
		increments: increments,
		locker:     locker,
		publisher:  publisher,
		counter:    counter,
		now:        time.Now,
	}
}

// ============================================================================
// 出价
// ============================================================================
//
// 在拍品锁内、同一个事务中依次完成：
//   1. 校验拍卖会与拍品可出价
//   2. 校验加价阶梯
//   3. 按 ceil(新价 * 比例) - ceil(旧价 * 比例) 补冻保证金
//   4. 写出价记录
//   5. 临近结束时延长拍卖会（有次数上限）
//
// 事件和计数在事务提交后发送，失败只记日志。

func (s *BidService) PlaceBid(ctx context.Context, req *BidRequest) (*BidResult, error) {
	if req.Amount <= 0 {
		return nil, auctionerr.ErrInvalidAmount
	}

	release, err := s.locker.Acquire(ctx, lock.ItemLockKey(req.ItemID))
	if err != nil {
		return nil, fmt.Errorf("获取拍品锁失败: %w", err)
	}
	defer release()

	now := s.now()
	var result *BidResult
	err = s.store.Transaction(ctx, func(tx repository.Repos) error {
		var err error
		result, err = s.admit(ctx, tx, req, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("bid accepted", map[string]any{
		"session_id": req.SessionID,
		"item_id":    req.ItemID,
		"user_id":    req.UserID,
		"amount":     req.Amount,
		"frozen":     result.DepositFrozen,
	})

	s.publisher.Publish(event.BidAccepted(req.SessionID, req.ItemID, req.UserID, req.Amount, now))
	if result.Extended {
		s.publisher.Publish(event.AuctionExtended(req.SessionID, req.ItemID, result.EndTime, result.ExtensionCount, now))
	}
	if _, err := s.counter.Increment(ctx, cache.ItemBidCountKey(req.ItemID)); err != nil {
		logger.Warn("failed to bump bid counter", map[string]any{"item_id": req.ItemID, "error": err.Error()})
	}
	return result, nil
}

func (s *BidService) admit(ctx context.Context, tx repository.Repos, req *BidRequest, now time.Time) (*BidResult, error) {
	// 1. item and session must be open
	item, err := tx.Items().GetByIDForUpdate(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.SessionID != req.SessionID {
		return nil, fmt.Errorf("%w: item %d is not in session %d", auctionerr.ErrItemNotBiddable, item.ID, req.SessionID)
	}
	session, err := tx.Sessions().GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if status := session.StatusAt(now); status != model.SessionStatusActive {
		return nil, fmt.Errorf("%w: session is %s", auctionerr.ErrItemNotBiddable, status)
	}
	if !item.Biddable() {
		return nil, fmt.Errorf("%w: item is %s", auctionerr.ErrItemNotBiddable, item.Status)
	}

	// 2. price floor
	if req.Amount <= item.CurrentPrice || req.Amount < item.StartingPrice {
		return nil, auctionerr.ErrBidTooLow
	}

	// 3. increment tier
	if err := validateWith(ctx, tx.Increments(), item.CurrentPrice, req.Amount, session.BidIncrementConfigID); err != nil {
		return nil, err
	}

	// 4. differential deposit against the user's own prior max
	priorMax, err := tx.Bids().MaxBidForUserOnItem(ctx, item.ID, session.ID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("查询历史出价失败: %w", err)
	}
	oldRequired := money.CeilRatio(priorMax, session.DepositRatio)
	newRequired := money.CeilRatio(req.Amount, session.DepositRatio)
	delta := money.Max(0, newRequired-oldRequired)
	if delta == 0 && priorMax > 0 && req.Amount > priorMax && session.DepositRatio.IsPositive() {
		logger.Warn("deposit freeze delta is zero for a raised bid", map[string]any{
			"item_id":      item.ID,
			"user_id":      req.UserID,
			"prior_max":    priorMax,
			"amount":       req.Amount,
			"required":     newRequired,
			"deposit_rate": session.DepositRatio.String(),
		})
	}

	// 5. funds
	account, err := tx.Accounts().GetOrCreateForUpdate(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("查询账户失败: %w", err)
	}
	if account.IsFrozen() {
		return nil, auctionerr.ErrAccountFrozen
	}
	if account.Available < delta {
		return nil, fmt.Errorf("%w: need %d, available %d", auctionerr.ErrInsufficientDeposit, delta, account.Available)
	}

	// 6. record the bid
	bid := &model.AuctionBid{
		SessionID: session.ID,
		ItemID:    item.ID,
		UserID:    req.UserID,
		Amount:    req.Amount,
		BidTime:   now,
		Status:    model.BidStatusValid,
		CreatedAt: now,
	}
	if err := tx.Bids().Insert(ctx, bid); err != nil {
		return nil, fmt.Errorf("写入出价记录失败: %w", err)
	}

	// 7. advance price
	if err := tx.Items().UpdateCurrentPriceAndStatus(ctx, item.ID, req.Amount, item.Status); err != nil {
		return nil, err
	}

	// 8. freeze only the increment since the user's last bid
	if delta > 0 {
		if _, err := s.ledger.With(tx).Freeze(ctx, req.UserID, delta, item.ID, model.RelatedTypeItem); err != nil {
			return nil, fmt.Errorf("冻结保证金失败: %w", err)
		}
	}

	result := &BidResult{
		Bid:             bid,
		CurrentPrice:    req.Amount,
		RequiredDeposit: newRequired,
		DepositFrozen:   delta,
		EndTime:         session.EndTime,
		ExtensionCount:  session.ExtensionCount,
	}

	// 9. anti-sniping
	if session.CanExtend(now) {
		newEnd := session.EndTime.Add(time.Duration(session.ExtendSeconds) * time.Second)
		applied, err := tx.Sessions().UpdateEndTime(ctx, session.ID, newEnd, session.EndTime, session.ExtensionCount)
		if err != nil {
			return nil, fmt.Errorf("延长拍卖会失败: %w", err)
		}
		if applied {
			result.Extended = true
			result.EndTime = newEnd
			result.ExtensionCount = session.ExtensionCount + 1
		} else {
			logger.Debug("session end changed by a concurrent writer, extension skipped", map[string]any{"session_id": session.ID})
		}
	}

	return result, nil
}

// MinimumBid returns the smallest amount the next bid on an item may carry.
func (s *BidService) MinimumBid(ctx context.Context, itemID int64) (int64, error) {
	item, err := s.store.Items().GetByID(ctx, itemID)
	if err != nil {
		return 0, err
	}
	configID, err := s.store.Sessions().GetBidIncrementConfigID(ctx, item.SessionID)
	if err != nil {
		return 0, err
	}
	next, err := s.increments.NextMinimumBid(ctx, item.CurrentPrice, configID)
	if err != nil {
		return 0, err
	}
	return money.Max(next, item.StartingPrice), nil
}

// ListBids returns the valid bids on an item, oldest first.
func (s *BidService) ListBids(ctx context.Context, itemID int64) ([]model.AuctionBid, error) {
	if _, err := s.store.Items().GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.store.Bids().ListValidBidsForItem(ctx, itemID)
}

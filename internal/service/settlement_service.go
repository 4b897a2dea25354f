package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/event"
	"auctionhouse/internal/infrastructure/lock"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
	"auctionhouse/pkg/idgen"
	"auctionhouse/pkg/logger"
	"auctionhouse/pkg/money"
)

// ItemSettlement is the outcome of settling one item.
type ItemSettlement struct {
	ItemID int64               `json:"item_id"`
	Result *model.AuctionResult `json:"result"`
	Order  *model.AuctionOrder  `json:"order,omitempty"`
}

// SettlementService closes items once their session has ended or was
// cancelled. Each item settles at most once; the AuctionResult row is the
// marker.
type SettlementService struct {
	store     repository.Store
	ledger    *DepositLedger
	locker    lock.Locker
	publisher event.Publisher
	now       func() time.Time
}

func NewSettlementService(store repository.Store, ledger *DepositLedger, locker lock.Locker, publisher event.Publisher) *SettlementService {
	return &SettlementService{
		store:     store,
		ledger:    ledger,
		locker:    locker,
		publisher: publisher,
		now:       time.Now,
	}
}

// settleable reports whether an item still takes part in the auction.
func settleable(status string) bool {
	return status == model.ItemStatusApproved || status == model.ItemStatusInAuction
}

// ============================================================================
// 结算
// ============================================================================
//
// 每个拍品结算一次，以 AuctionResult 记录为准：
//   - 无人出价或未达保留价：流拍，释放所有人的保证金
//   - 成交：生成订单，释放落选者保证金，买家保证金留到付款时抵扣
//   - 拍卖会被取消：按流拍处理

// SettleSession settles every open item of an ended or cancelled session.
// Items already settled are skipped, so calling it again is harmless. A
// failure on one item does not stop the others; all failures are returned.
func (s *SettlementService) SettleSession(ctx context.Context, sessionID int64) ([]ItemSettlement, error) {
	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := ensureClosed(session, s.now()); err != nil {
		return nil, err
	}

	items, err := s.store.Items().ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("查询拍卖会拍品失败: %w", err)
	}

	var (
		settled []ItemSettlement
		errs    []error
	)
	for _, item := range items {
		if !settleable(item.Status) {
			continue
		}
		out, err := s.SettleItem(ctx, sessionID, item.ID)
		if errors.Is(err, auctionerr.ErrAlreadySettled) {
			continue
		}
		if err != nil {
			logger.Error("item settlement failed", map[string]any{
				"session_id": sessionID,
				"item_id":    item.ID,
				"error":      err.Error(),
			})
			errs = append(errs, fmt.Errorf("拍品 %d: %w", item.ID, err))
			continue
		}
		settled = append(settled, *out)
	}

	if len(settled) > 0 {
		s.publisher.Publish(event.AuctionEnded(sessionID, session.EndTime, s.now()))
	}
	return settled, errors.Join(errs...)
}

func ensureClosed(session *model.AuctionSession, now time.Time) error {
	switch status := session.StatusAt(now); status {
	case model.SessionStatusEnded, model.SessionStatusCancelled:
		return nil
	default:
		return fmt.Errorf("%w: session %d is %s", auctionerr.ErrSessionNotEnded, session.ID, status)
	}
}

// SettleItem settles one item. It fails with ErrAlreadySettled if a result
// for (sessionID, itemID) exists.
func (s *SettlementService) SettleItem(ctx context.Context, sessionID, itemID int64) (*ItemSettlement, error) {
	release, err := s.locker.Acquire(ctx, lock.ItemLockKey(itemID))
	if err != nil {
		return nil, fmt.Errorf("获取拍品锁失败: %w", err)
	}
	defer release()

	now := s.now()
	var out *ItemSettlement
	err = s.store.Transaction(ctx, func(tx repository.Repos) error {
		var err error
		out, err = s.settle(ctx, tx, sessionID, itemID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := out.Result
	logger.Info("item settled", map[string]any{
		"session_id":  sessionID,
		"item_id":     itemID,
		"sold":        res.Sold,
		"final_price": res.FinalPrice,
		"commission":  res.Commission,
	})
	s.publisher.Publish(event.ItemSettled(sessionID, itemID, res.WinnerUserID, res.FinalPrice, res.Sold, res.OrderID, now))
	return out, nil
}

func (s *SettlementService) settle(ctx context.Context, tx repository.Repos, sessionID, itemID int64, now time.Time) (*ItemSettlement, error) {
	item, err := tx.Items().GetByIDForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SessionID != sessionID {
		return nil, auctionerr.ErrItemNotFound
	}
	exists, err := tx.Results().Exists(ctx, sessionID, itemID)
	if err != nil {
		return nil, fmt.Errorf("查询成交结果失败: %w", err)
	}
	if exists {
		return nil, auctionerr.ErrAlreadySettled
	}

	session, err := tx.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := ensureClosed(session, now); err != nil {
		return nil, err
	}

	// never started: pass through InAuction first
	if item.Status == model.ItemStatusApproved {
		if err := tx.Items().UpdateStatus(ctx, item.ID, model.ItemStatusApproved, model.ItemStatusInAuction); err != nil {
			return nil, err
		}
		item.Status = model.ItemStatusInAuction
	}
	if item.Status != model.ItemStatusInAuction {
		return nil, fmt.Errorf("%w: item %d is %s", auctionerr.ErrInvalidTransition, item.ID, item.Status)
	}

	bids, err := tx.Bids().ListValidBidsForItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("查询出价记录失败: %w", err)
	}
	var sessionBids []model.AuctionBid
	for _, b := range bids {
		if b.SessionID == sessionID {
			sessionBids = append(sessionBids, b)
		}
	}

	userMax := model.MaxBidByUser(sessionBids)
	best, found := model.HighestBid(sessionBids)

	result := &model.AuctionResult{
		SessionID: sessionID,
		ItemID:    item.ID,
		CreatedAt: now,
	}
	if found {
		winner, bidID := best.UserID, best.ID
		result.WinnerUserID = &winner
		result.HighestBidID = &bidID
		result.FinalPrice = best.Amount
	}
	result.Sold = found && !session.Cancelled && result.FinalPrice > 0 && item.MeetsReserve(result.FinalPrice)

	ledger := s.ledger.With(tx)
	out := &ItemSettlement{ItemID: item.ID, Result: result}

	if result.Sold {
		commission := money.RoundRatio(result.FinalPrice, session.CommissionRatio)
		winnerDeposit := money.CeilRatio(result.FinalPrice, session.DepositRatio)
		order := &model.AuctionOrder{
			OrderNo:       idgen.GenerateOrderNo(),
			SessionID:     sessionID,
			ItemID:        item.ID,
			BuyerID:       best.UserID,
			TotalAmount:   result.FinalPrice,
			Commission:    commission,
			DepositAmount: winnerDeposit,
			BalanceAmount: money.Max(0, result.FinalPrice+commission-winnerDeposit),
			Status:        model.OrderStatusPendingPayment,
			CreatedAt:     now,
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return nil, fmt.Errorf("创建成交订单失败: %w", err)
		}
		orderID := order.ID
		result.Commission = commission
		result.DepositUsed = winnerDeposit
		result.OrderID = &orderID
		out.Order = order

		delete(userMax, best.UserID)
	}

	// release everyone still holding a deposit on this item, in user order
	users := make([]int64, 0, len(userMax))
	for userID := range userMax {
		users = append(users, userID)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	for _, userID := range users {
		amount := money.CeilRatio(userMax[userID], session.DepositRatio)
		if amount == 0 {
			continue
		}
		if _, err := ledger.Unfreeze(ctx, userID, amount, item.ID, model.RelatedTypeItem); err != nil {
			return nil, fmt.Errorf("释放用户 %d 保证金失败: %w", userID, err)
		}
	}

	action := model.ItemActionPass
	if result.Sold {
		action = model.ItemActionSell
	}
	next, _ := model.NextItemStatus(item.Status, action)
	if err := tx.Items().UpdateStatus(ctx, item.ID, item.Status, next); err != nil {
		return nil, err
	}

	if err := tx.Results().Create(ctx, result); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SettlementService) GetResult(ctx context.Context, sessionID, itemID int64) (*model.AuctionResult, error) {
	result, err := s.store.Results().Get(ctx, sessionID, itemID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: item %d has no result", auctionerr.ErrItemNotFound, itemID)
	}
	return result, nil
}

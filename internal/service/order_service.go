package service

import (
	"context"
	"fmt"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/event"
	"auctionhouse/internal/infrastructure/lock"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
	"auctionhouse/pkg/logger"
)

// OrderService handles the buyer side of a settled item: payment, forfeiture
// of unpaid orders and refunds of rejected shipments.
type OrderService struct {
	store      repository.Store
	ledger     *DepositLedger
	locker     lock.Locker
	publisher  event.Publisher
	payTimeout time.Duration
	batchSize  int
	now        func() time.Time
}

func NewOrderService(store repository.Store, ledger *DepositLedger, locker lock.Locker, publisher event.Publisher, payTimeout time.Duration) *OrderService {
	return &OrderService{
		store:      store,
		ledger:     ledger,
		locker:     locker,
		publisher:  publisher,
		payTimeout: payTimeout,
		batchSize:  100,
		now:        time.Now,
	}
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*model.AuctionOrder, error) {
	return s.store.Orders().GetByID(ctx, orderID)
}

func (s *OrderService) ListByBuyer(ctx context.Context, buyerID int64, page, pageSize int) ([]*model.AuctionOrder, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return s.store.Orders().ListByBuyer(ctx, buyerID, page, pageSize)
}

// withOrder runs fn on a row-locked order under the order lock.
func (s *OrderService) withOrder(ctx context.Context, orderID int64, fn func(tx repository.Repos, order *model.AuctionOrder) error) (*model.AuctionOrder, error) {
	release, err := s.locker.Acquire(ctx, lock.OrderLockKey(orderID))
	if err != nil {
		return nil, fmt.Errorf("获取订单锁失败: %w", err)
	}
	defer release()

	var out *model.AuctionOrder
	err = s.store.Transaction(ctx, func(tx repository.Repos) error {
		order, err := tx.Orders().GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(tx, order); err != nil {
			return err
		}
		out = order
		return nil
	})
	return out, err
}

// ============================================================================
// 订单支付 / 超时 / 拒收
// ============================================================================
//
//   PENDING_PAYMENT --Pay--> PAID --RejectShipment--> REFUNDED
//   PENDING_PAYMENT --超时--> CANCELLED（没收买家保证金）
//
// 所有操作都在订单锁内，并对订单行加 FOR UPDATE，支付和超时没收不会同时生效。

// Pay settles a PENDING_PAYMENT order: the balance is taken from available
// funds and the winner's frozen deposit is consumed.
func (s *OrderService) Pay(ctx context.Context, orderID int64) (*model.AuctionOrder, error) {
	order, err := s.withOrder(ctx, orderID, func(tx repository.Repos, order *model.AuctionOrder) error {
		if order.Status != model.OrderStatusPendingPayment {
			return fmt.Errorf("%w: order is %s", auctionerr.ErrOrderStatusInvalid, order.Status)
		}
		ledger := s.ledger.With(tx)
		if order.BalanceAmount > 0 {
			if _, err := ledger.DeductFromAvailable(ctx, order.BuyerID, order.BalanceAmount, order.ID, model.RelatedTypeOrder); err != nil {
				return fmt.Errorf("扣除尾款失败: %w", err)
			}
		}
		if order.DepositAmount > 0 {
			if _, err := ledger.Deduct(ctx, order.BuyerID, order.DepositAmount, order.ID, model.RelatedTypeOrder); err != nil {
				return fmt.Errorf("扣除保证金失败: %w", err)
			}
		}
		if err := tx.Orders().UpdateStatus(ctx, order.ID, order.Status, model.OrderStatusPaid); err != nil {
			return err
		}
		paidAt := s.now()
		order.Status = model.OrderStatusPaid
		order.PaidAt = &paidAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("order paid", map[string]any{
		"order_id": order.ID,
		"buyer_id": order.BuyerID,
		"balance":  order.BalanceAmount,
		"deposit":  order.DepositAmount,
	})
	s.publisher.Publish(event.OrderPaid(order.SessionID, order.ItemID, order.BuyerID, order.ID, order.TotalAmount, s.now()))
	return order, nil
}

// ForfeitOverdue cancels PENDING_PAYMENT orders older than the pay timeout
// and keeps the winner's frozen deposit. It returns how many were forfeited.
func (s *OrderService) ForfeitOverdue(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.payTimeout)
	orders, err := s.store.Orders().ListOverdue(ctx, cutoff, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("查询超时订单失败: %w", err)
	}

	forfeited := 0
	for _, o := range orders {
		_, err := s.withOrder(ctx, o.ID, func(tx repository.Repos, order *model.AuctionOrder) error {
			// paid between the listing and the lock
			if order.Status != model.OrderStatusPendingPayment {
				return auctionerr.ErrOrderStatusInvalid
			}
			if order.DepositAmount > 0 {
				if _, err := s.ledger.With(tx).Deduct(ctx, order.BuyerID, order.DepositAmount, order.ID, model.RelatedTypeOrder); err != nil {
					return fmt.Errorf("没收保证金失败: %w", err)
				}
			}
			if err := tx.Orders().UpdateStatus(ctx, order.ID, order.Status, model.OrderStatusCancelled); err != nil {
				return err
			}
			order.Status = model.OrderStatusCancelled
			return nil
		})
		if err != nil {
			logger.Warn("failed to forfeit overdue order", map[string]any{"order_id": o.ID, "error": err.Error()})
			continue
		}
		forfeited++
		logger.Info("overdue order forfeited", map[string]any{
			"order_id": o.ID,
			"buyer_id": o.BuyerID,
			"deposit":  o.DepositAmount,
		})
	}
	return forfeited, nil
}

// RejectShipment refunds a PAID order in full (balance plus deposit) and
// marks it REFUNDED.
func (s *OrderService) RejectShipment(ctx context.Context, orderID int64, reason string) (*model.AuctionOrder, error) {
	order, err := s.withOrder(ctx, orderID, func(tx repository.Repos, order *model.AuctionOrder) error {
		if order.Status != model.OrderStatusPaid {
			return fmt.Errorf("%w: order is %s", auctionerr.ErrOrderStatusInvalid, order.Status)
		}
		amount := order.BalanceAmount + order.DepositAmount
		if amount > 0 {
			if _, err := s.ledger.With(tx).Refund(ctx, order.BuyerID, amount, order.ID, model.RelatedTypeOrder); err != nil {
				return fmt.Errorf("退款失败: %w", err)
			}
		}
		if err := tx.Orders().UpdateStatus(ctx, order.ID, order.Status, model.OrderStatusRefunded); err != nil {
			return err
		}
		order.Status = model.OrderStatusRefunded
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("shipment rejected, order refunded", map[string]any{"order_id": orderID, "reason": reason})
	return order, nil
}

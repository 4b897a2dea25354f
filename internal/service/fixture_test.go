package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"auctionhouse/internal/event"
	"auctionhouse/internal/infrastructure/cache"
	"auctionhouse/internal/infrastructure/lock"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository/memory"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	clock *fakeClock

	counter    *cache.MemoryCounter
	ledger     *DepositLedger
	increments *IncrementService
	bids       *BidService
	settlement *SettlementService
	lifecycle  *LifecycleService
	orders     *OrderService

	mu     sync.Mutex
	events []event.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		store:   memory.New(),
		clock:   &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
		counter: cache.NewMemoryCounter(),
	}

	publisher := event.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any()).Do(func(evt event.Event) {
		f.mu.Lock()
		f.events = append(f.events, evt)
		f.mu.Unlock()
	}).AnyTimes()

	locker := lock.NewLocalLocker()

	f.ledger = NewDepositLedger(f.store)
	f.ledger.now = f.clock.Now
	f.increments = NewIncrementService(f.store)
	f.increments.now = f.clock.Now
	f.bids = NewBidService(f.store, f.ledger, f.increments, locker, publisher, f.counter)
	f.bids.now = f.clock.Now
	f.settlement = NewSettlementService(f.store, f.ledger, locker, publisher)
	f.settlement.now = f.clock.Now
	f.lifecycle = NewLifecycleService(f.store, f.counter)
	f.lifecycle.now = f.clock.Now
	f.orders = NewOrderService(f.store, f.ledger, locker, publisher, 24*time.Hour)
	f.orders.now = f.clock.Now
	return f
}

func ratio(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

// newSession creates a session that is active for the next hour.
func (f *fixture) newSession(mod func(req *CreateSessionRequest)) *model.AuctionSession {
	f.t.Helper()
	now := f.clock.Now()
	req := &CreateSessionRequest{
		Name:            "evening sale",
		StartTime:       now.Add(-time.Minute),
		EndTime:         now.Add(time.Hour),
		DepositRatio:    ratio("0.10"),
		CommissionRatio: ratio("0.05"),
	}
	if mod != nil {
		mod(req)
	}
	session, err := f.lifecycle.CreateSession(f.ctx, req)
	require.NoError(f.t, err)
	return session
}

// approvedItem walks a new item through review to APPROVED.
func (f *fixture) approvedItem(sessionID, startingPrice int64, reserve *int64) *model.AuctionItem {
	f.t.Helper()
	item, err := f.lifecycle.CreateItem(f.ctx, &CreateItemRequest{
		SessionID:     sessionID,
		Name:          "lot",
		StartingPrice: startingPrice,
		ReservePrice:  reserve,
	})
	require.NoError(f.t, err)
	_, err = f.lifecycle.SubmitItem(f.ctx, item.ID)
	require.NoError(f.t, err)
	item, err = f.lifecycle.ApproveItem(f.ctx, item.ID)
	require.NoError(f.t, err)
	return item
}

// openItem returns an item that is IN_AUCTION in an active session.
func (f *fixture) openItem(sessionID, startingPrice int64, reserve *int64) *model.AuctionItem {
	f.t.Helper()
	item := f.approvedItem(sessionID, startingPrice, reserve)
	_, err := f.lifecycle.StartSession(f.ctx, sessionID)
	require.NoError(f.t, err)
	return f.item(item.ID)
}

func (f *fixture) item(itemID int64) *model.AuctionItem {
	f.t.Helper()
	item, err := f.store.Items().GetByID(f.ctx, itemID)
	require.NoError(f.t, err)
	return item
}

func (f *fixture) fund(userID, amount int64) {
	f.t.Helper()
	trans, err := f.ledger.Recharge(f.ctx, userID, amount, "test funding")
	require.NoError(f.t, err)
	_, err = f.ledger.Approve(f.ctx, trans.ID, 1, "ok")
	require.NoError(f.t, err)
}

func (f *fixture) account(userID int64) *model.DepositAccount {
	f.t.Helper()
	acc, err := f.ledger.GetAccount(f.ctx, userID)
	require.NoError(f.t, err)
	return acc
}

func (f *fixture) bid(sessionID, itemID, userID, amount int64) (*BidResult, error) {
	return f.bids.PlaceBid(f.ctx, &BidRequest{SessionID: sessionID, ItemID: itemID, UserID: userID, Amount: amount})
}

func (f *fixture) mustBid(sessionID, itemID, userID, amount int64) *BidResult {
	f.t.Helper()
	res, err := f.bid(sessionID, itemID, userID, amount)
	require.NoError(f.t, err)
	return res
}

// requireBalanced checks total == available + frozen for every user given.
func (f *fixture) requireBalanced(userIDs ...int64) {
	f.t.Helper()
	for _, id := range userIDs {
		acc := f.account(id)
		require.Truef(f.t, acc.Balanced(), "user %d unbalanced: %+v", id, acc)
	}
}

func (f *fixture) countEvents(typ event.Type) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func (f *fixture) transactionCount(userID int64) int64 {
	f.t.Helper()
	_, total, err := f.ledger.ListTransactions(f.ctx, userID, 1, 1)
	require.NoError(f.t, err)
	return total
}

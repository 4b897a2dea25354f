package service

import (
	"testing"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/event"
	"auctionhouse/internal/model"

	"github.com/stretchr/testify/require"
)

func TestSettle_ReserveNotMetReleasesEveryone(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(nil)
	item := f.openItem(session.ID, 100, ptr(int64(250)))
	f.fund(1, 1000)
	f.fund(2, 1000)

	f.mustBid(session.ID, item.ID, 1, 100)
	f.mustBid(session.ID, item.ID, 2, 200)
	require.Equal(t, int64(10), f.account(1).Frozen)
	require.Equal(t, int64(20), f.account(2).Frozen)

	f.clock.Advance(2 * time.Hour)
	settled, err := f.settlement.SettleSession(f.ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, settled, 1)
	require.False(t, settled[0].Result.Sold)
	require.Nil(t, settled[0].Order)
	require.Equal(t, int64(200), settled[0].Result.FinalPrice)

	for _, u := range []int64{1, 2} {
		acc := f.account(u)
		require.Zero(t, acc.Frozen)
		require.Equal(t, int64(1000), acc.Available)
	}
	require.Equal(t, model.ItemStatusUnsold, f.item(item.ID).Status)

	orders, total, err := f.orders.ListByBuyer(f.ctx, 2, 1, 10)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, orders)
	require.Equal(t, 1, f.countEvents(event.TypeAuctionEnded))
	require.Equal(t, 1, f.countEvents(event.TypeItemSettled))
}

func TestSettle_SoldComputesOrderSplit(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(nil) // deposit 0.10, commission 0.05
	item := f.openItem(session.ID, 100, nil)
	f.fund(1, 1000)
	f.fund(2, 1000)

	f.mustBid(session.ID, item.ID, 1, 400)
	f.mustBid(session.ID, item.ID, 2, 500)

	f.clock.Advance(2 * time.Hour)
	out, err := f.settlement.SettleItem(f.ctx, session.ID, item.ID)
	require.NoError(t, err)

	res := out.Result
	require.True(t, res.Sold)
	require.Equal(t, int64(2), *res.WinnerUserID)
	require.Equal(t, int64(500), res.FinalPrice)
	require.Equal(t, int64(25), res.Commission)
	require.Equal(t, int64(50), res.DepositUsed)

	order := out.Order
	require.NotNil(t, order)
	require.Equal(t, *res.OrderID, order.ID)
	require.Equal(t, int64(2), order.BuyerID)
	require.Equal(t, int64(500), order.TotalAmount)
	require.Equal(t, int64(25), order.Commission)
	require.Equal(t, int64(50), order.DepositAmount)
	require.Equal(t, int64(475), order.BalanceAmount)
	require.Equal(t, model.OrderStatusPendingPayment, order.Status)

	// loser fully released, winner keeps the deposit frozen for payment
	require.Zero(t, f.account(1).Frozen)
	require.Equal(t, int64(1000), f.account(1).Available)
	require.Equal(t, int64(50), f.account(2).Frozen)
	require.Equal(t, model.ItemStatusSold, f.item(item.ID).Status)
	f.requireBalanced(1, 2)
}

func TestSettle_Idempotent(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(nil)
	item := f.openItem(session.ID, 100, nil)
	f.fund(1, 1000)
	f.fund(2, 1000)
	f.mustBid(session.ID, item.ID, 1, 100)
	f.mustBid(session.ID, item.ID, 2, 300)

	f.clock.Advance(2 * time.Hour)
	first, err := f.settlement.SettleSession(f.ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	tx1, tx2 := f.transactionCount(1), f.transactionCount(2)
	acc1, acc2 := f.account(1), f.account(2)

	second, err := f.settlement.SettleSession(f.ctx, session.ID)
	require.NoError(t, err)
	require.Empty(t, second)

	_, err = f.settlement.SettleItem(f.ctx, session.ID, item.ID)
	require.ErrorIs(t, err, auctionerr.ErrAlreadySettled)

	require.Equal(t, tx1, f.transactionCount(1))
	require.Equal(t, tx2, f.transactionCount(2))
	require.Equal(t, acc1.Available, f.account(1).Available)
	require.Equal(t, acc2.Frozen, f.account(2).Frozen)

	_, total, err := f.orders.ListByBuyer(f.ctx, 2, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	result, err := f.settlement.GetResult(f.ctx, session.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, first[0].Result.ID, result.ID)
}

func TestSettle_RejectsOpenSession(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(nil)
	item := f.openItem(session.ID, 100, nil)

	_, err := f.settlement.SettleSession(f.ctx, session.ID)
	require.ErrorIs(t, err, auctionerr.ErrSessionNotEnded)
	_, err = f.settlement.SettleItem(f.ctx, session.ID, item.ID)
	require.ErrorIs(t, err, auctionerr.ErrSessionNotEnded)
	require.Equal(t, model.ItemStatusInAuction, f.item(item.ID).Status)
}

func TestSettle_CancelledSessionReleasesAll(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(nil)
	item := f.openItem(session.ID, 100, nil)
	f.fund(1, 1000)
	f.mustBid(session.ID, item.ID, 1, 600)

	_, err := f.lifecycle.CancelSession(f.ctx, session.ID)
	require.NoError(t, err)

	settled, err := f.settlement.SettleSession(f.ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, settled, 1)
	require.False(t, settled[0].Result.Sold)
	require.Equal(t, model.ItemStatusUnsold, f.item(item.ID).Status)
	require.Zero(t, f.account(1).Frozen)
	require.Equal(t, int64(1000), f.account(1).Available)
}

func TestSettle_LoserRoundTrip(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(func(req *CreateSessionRequest) { req.DepositRatio = ratio("0.13") })
	item := f.openItem(session.ID, 100, nil)
	f.fund(1, 777)
	f.fund(2, 5000)
	before := f.account(1)

	f.mustBid(session.ID, item.ID, 1, 101)
	f.mustBid(session.ID, item.ID, 2, 150)
	f.mustBid(session.ID, item.ID, 1, 233)
	f.mustBid(session.ID, item.ID, 2, 1000)

	f.clock.Advance(2 * time.Hour)
	_, err := f.settlement.SettleSession(f.ctx, session.ID)
	require.NoError(t, err)

	after := f.account(1)
	require.Equal(t, before.Available, after.Available)
	require.Equal(t, before.Total, after.Total)
	require.Zero(t, after.Frozen)
}

func TestSettle_ApprovedItemWithoutBids(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(nil)
	item := f.approvedItem(session.ID, 100, nil)
	draft, err := f.lifecycle.CreateItem(f.ctx, &CreateItemRequest{SessionID: session.ID, Name: "draft", StartingPrice: 10})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	settled, err := f.settlement.SettleSession(f.ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, settled, 1)
	require.Nil(t, settled[0].Result.WinnerUserID)
	require.Zero(t, settled[0].Result.FinalPrice)
	require.Equal(t, model.ItemStatusUnsold, f.item(item.ID).Status)
	require.Equal(t, model.ItemStatusDraft, f.item(draft.ID).Status)
}

func TestSettle_ReserveMetExactly(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(func(req *CreateSessionRequest) { req.CommissionRatio = ratio("0.015") })
	item := f.openItem(session.ID, 100, ptr(int64(250)))
	f.fund(1, 1000)
	f.mustBid(session.ID, item.ID, 1, 250)

	f.clock.Advance(2 * time.Hour)
	out, err := f.settlement.SettleItem(f.ctx, session.ID, item.ID)
	require.NoError(t, err)
	require.True(t, out.Result.Sold)
	// 250 * 0.015 = 3.75 rounds half-up to 4
	require.Equal(t, int64(4), out.Order.Commission)
	require.Equal(t, int64(25), out.Order.DepositAmount)
	require.Equal(t, int64(229), out.Order.BalanceAmount)
}

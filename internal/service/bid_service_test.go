package service

import (
	"sync"
	"testing"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/event"
	"auctionhouse/internal/infrastructure/cache"
	"auctionhouse/internal/model"
	"auctionhouse/pkg/money"

	"github.com/stretchr/testify/require"
)

func TestPlaceBid_DifferentialFreeze(t *testing.T) {
	f := newFixture(t)
	cfg, err := f.increments.CreateConfig(f.ctx, "tiers", []model.BidIncrementRule{
		{MinAmount: 0, MaxAmount: 1000, IncrementAmount: 50},
		{MinAmount: 1000, IncrementAmount: 100},
	})
	require.NoError(t, err)
	session := f.newSession(func(req *CreateSessionRequest) { req.BidIncrementConfigID = &cfg.ID })
	item := f.openItem(session.ID, 100, nil)
	f.fund(1, 1000)

	res := f.mustBid(session.ID, item.ID, 1, 100)
	require.Equal(t, int64(10), res.RequiredDeposit)
	require.Equal(t, int64(10), res.DepositFrozen)
	acc := f.account(1)
	require.Equal(t, int64(990), acc.Available)
	require.Equal(t, int64(10), acc.Frozen)

	res = f.mustBid(session.ID, item.ID, 1, 150)
	require.Equal(t, int64(15), res.RequiredDeposit)
	require.Equal(t, int64(5), res.DepositFrozen)
	acc = f.account(1)
	require.Equal(t, int64(985), acc.Available)
	require.Equal(t, int64(15), acc.Frozen)
	require.Equal(t, int64(1000), acc.Total)

	require.Equal(t, int64(150), f.item(item.ID).CurrentPrice)
	require.Equal(t, 2, f.countEvents(event.TypeBidAccepted))

	n, err := f.counter.Get(f.ctx, cache.ItemBidCountKey(item.ID))
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestPlaceBid_CumulativeFreezeMatchesLatestBid(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(func(req *CreateSessionRequest) { req.DepositRatio = ratio("0.07") })
	item := f.openItem(session.ID, 100, nil)
	f.fund(1, 1000)
	f.fund(2, 1000)

	f.mustBid(session.ID, item.ID, 1, 101)
	f.mustBid(session.ID, item.ID, 2, 120)
	f.mustBid(session.ID, item.ID, 1, 157)
	f.mustBid(session.ID, item.ID, 1, 203)

	require.Equal(t, money.CeilRatio(203, ratio("0.07")), f.account(1).Frozen)
	require.Equal(t, int64(15), f.account(1).Frozen)
	require.Equal(t, money.CeilRatio(120, ratio("0.07")), f.account(2).Frozen)
	f.requireBalanced(1, 2)
}

func TestPlaceBid_ZeroDeltaStillAccepted(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(func(req *CreateSessionRequest) { req.DepositRatio = ratio("0.01") })
	item := f.openItem(session.ID, 100, nil)
	f.fund(1, 100)

	f.mustBid(session.ID, item.ID, 1, 101) // ceil(1.01) = 2
	res := f.mustBid(session.ID, item.ID, 1, 150)
	require.Zero(t, res.DepositFrozen)
	require.Equal(t, int64(2), f.account(1).Frozen)
	require.Equal(t, int64(150), f.item(item.ID).CurrentPrice)
}

func TestPlaceBid_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture) (sessionID, itemID int64)
		userID  int64
		amount  int64
		wantErr error
	}{
		{
			name: "item_not_started",
			setup: func(f *fixture) (int64, int64) {
				s := f.newSession(nil)
				return s.ID, f.approvedItem(s.ID, 100, nil).ID
			},
			userID: 1, amount: 100, wantErr: auctionerr.ErrItemNotBiddable,
		},
		{
			name: "session_pending",
			setup: func(f *fixture) (int64, int64) {
				s := f.newSession(func(req *CreateSessionRequest) {
					req.StartTime = f.clock.Now().Add(time.Hour)
					req.EndTime = f.clock.Now().Add(2 * time.Hour)
				})
				return s.ID, f.approvedItem(s.ID, 100, nil).ID
			},
			userID: 1, amount: 100, wantErr: auctionerr.ErrItemNotBiddable,
		},
		{
			name: "session_ended",
			setup: func(f *fixture) (int64, int64) {
				s := f.newSession(nil)
				item := f.openItem(s.ID, 100, nil)
				f.clock.Advance(2 * time.Hour)
				return s.ID, item.ID
			},
			userID: 1, amount: 100, wantErr: auctionerr.ErrItemNotBiddable,
		},
		{
			name: "wrong_session",
			setup: func(f *fixture) (int64, int64) {
				s := f.newSession(nil)
				other := f.newSession(nil)
				return other.ID, f.openItem(s.ID, 100, nil).ID
			},
			userID: 1, amount: 100, wantErr: auctionerr.ErrItemNotBiddable,
		},
		{
			name: "unknown_item",
			setup: func(f *fixture) (int64, int64) {
				return f.newSession(nil).ID, 999
			},
			userID: 1, amount: 100, wantErr: auctionerr.ErrItemNotFound,
		},
		{
			name: "below_starting_price",
			setup: func(f *fixture) (int64, int64) {
				s := f.newSession(nil)
				return s.ID, f.openItem(s.ID, 100, nil).ID
			},
			userID: 1, amount: 99, wantErr: auctionerr.ErrBidTooLow,
		},
		{
			name: "not_above_current_price",
			setup: func(f *fixture) (int64, int64) {
				s := f.newSession(nil)
				item := f.openItem(s.ID, 100, nil)
				f.fund(2, 1000)
				f.mustBid(s.ID, item.ID, 2, 200)
				return s.ID, item.ID
			},
			userID: 1, amount: 200, wantErr: auctionerr.ErrBidTooLow,
		},
		{
			name: "increment_violation",
			setup: func(f *fixture) (int64, int64) {
				cfg, err := f.increments.CreateConfig(f.ctx, "tiers", []model.BidIncrementRule{
					{MinAmount: 0, IncrementAmount: 50},
				})
				require.NoError(f.t, err)
				s := f.newSession(func(req *CreateSessionRequest) { req.BidIncrementConfigID = &cfg.ID })
				item := f.openItem(s.ID, 100, nil)
				f.fund(2, 1000)
				f.mustBid(s.ID, item.ID, 2, 100)
				return s.ID, item.ID
			},
			userID: 1, amount: 149, wantErr: auctionerr.ErrIncrementViolation,
		},
		{
			name: "insufficient_deposit",
			setup: func(f *fixture) (int64, int64) {
				s := f.newSession(nil)
				return s.ID, f.openItem(s.ID, 100, nil).ID
			},
			userID: 3, amount: 100, wantErr: auctionerr.ErrInsufficientDeposit,
		},
		{
			name: "blacklisted_account",
			setup: func(f *fixture) (int64, int64) {
				s := f.newSession(nil)
				item := f.openItem(s.ID, 100, nil)
				require.NoError(f.t, f.ledger.SetAccountStatus(f.ctx, 1, model.AccountStatusFrozen))
				return s.ID, item.ID
			},
			userID: 1, amount: 100, wantErr: auctionerr.ErrAccountFrozen,
		},
		{
			name: "zero_amount",
			setup: func(f *fixture) (int64, int64) {
				s := f.newSession(nil)
				return s.ID, f.openItem(s.ID, 100, nil).ID
			},
			userID: 1, amount: 0, wantErr: auctionerr.ErrInvalidAmount,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.fund(1, 1000)
			sessionID, itemID := tc.setup(f)

			before := f.account(tc.userID)
			var priceBefore int64
			if item, err := f.store.Items().GetByID(f.ctx, itemID); err == nil {
				priceBefore = item.CurrentPrice
			}

			_, err := f.bid(sessionID, itemID, tc.userID, tc.amount)
			require.ErrorIs(t, err, tc.wantErr)

			after := f.account(tc.userID)
			require.Equal(t, before.Available, after.Available)
			require.Equal(t, before.Frozen, after.Frozen)
			if item, err := f.store.Items().GetByID(f.ctx, itemID); err == nil {
				require.Equal(t, priceBefore, item.CurrentPrice)
			}
		})
	}
}

func TestPlaceBid_NoIncrementTierPasses(t *testing.T) {
	f := newFixture(t)
	cfg, err := f.increments.CreateConfig(f.ctx, "high only", []model.BidIncrementRule{
		{MinAmount: 1000, IncrementAmount: 100},
	})
	require.NoError(t, err)
	session := f.newSession(func(req *CreateSessionRequest) { req.BidIncrementConfigID = &cfg.ID })
	item := f.openItem(session.ID, 100, nil)
	f.fund(1, 1000)

	f.mustBid(session.ID, item.ID, 1, 100)
	f.mustBid(session.ID, item.ID, 1, 101)
	require.Equal(t, int64(101), f.item(item.ID).CurrentPrice)
}

func TestPlaceBid_AntiSnipingStopsAtCap(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(func(req *CreateSessionRequest) {
		req.AntiSnipingEnabled = true
		req.ThresholdSeconds = 60
		req.ExtendSeconds = 60
		req.MaxExtensions = 5
	})
	item := f.openItem(session.ID, 100, nil)
	f.fund(1, 10000)
	f.fund(2, 10000)

	end := session.EndTime
	amount := int64(100)
	for i := 1; i <= 6; i++ {
		f.clock.Set(end.Add(-30 * time.Second))
		res := f.mustBid(session.ID, item.ID, int64(i%2+1), amount)
		amount += 10

		if i <= 5 {
			require.True(t, res.Extended, "bid %d", i)
			require.Equal(t, end.Add(60*time.Second), res.EndTime)
			require.Equal(t, i, res.ExtensionCount)
			end = res.EndTime
		} else {
			require.False(t, res.Extended, "bid %d", i)
			require.Equal(t, end, res.EndTime)
		}
	}

	stored, err := f.store.Sessions().GetByID(f.ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 5, stored.ExtensionCount)
	require.True(t, stored.EndTime.Equal(session.EndTime.Add(5*time.Minute)))
	require.Equal(t, 5, f.countEvents(event.TypeAuctionExtended))
}

func TestPlaceBid_NoExtensionOutsideThreshold(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(func(req *CreateSessionRequest) {
		req.AntiSnipingEnabled = true
		req.ThresholdSeconds = 60
		req.ExtendSeconds = 60
	})
	item := f.openItem(session.ID, 100, nil)
	f.fund(1, 1000)

	f.clock.Set(session.EndTime.Add(-2 * time.Minute))
	res := f.mustBid(session.ID, item.ID, 1, 100)
	require.False(t, res.Extended)
	require.Zero(t, f.countEvents(event.TypeAuctionExtended))
}

func TestPlaceBid_ConcurrentBidders(t *testing.T) {
	f := newFixture(t)
	session := f.newSession(nil)
	item := f.openItem(session.ID, 100, nil)

	const bidders = 20
	for u := int64(1); u <= bidders; u++ {
		f.fund(u, 10000)
	}

	var wg sync.WaitGroup
	for u := int64(1); u <= bidders; u++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			for k := int64(0); k < 5; k++ {
				_, _ = f.bid(session.ID, item.ID, userID, 100+userID*10+k*200)
			}
		}(u)
	}
	wg.Wait()

	bids, err := f.bids.ListBids(f.ctx, item.ID)
	require.NoError(t, err)
	require.NotEmpty(t, bids)

	// accepted bids are strictly increasing in commit order
	for i := 1; i < len(bids); i++ {
		require.Greater(t, bids[i].Amount, bids[i-1].Amount)
	}
	require.Equal(t, bids[len(bids)-1].Amount, f.item(item.ID).CurrentPrice)

	maxByUser := model.MaxBidByUser(bids)
	for u := int64(1); u <= bidders; u++ {
		acc := f.account(u)
		require.True(t, acc.Balanced())
		require.Equal(t, money.CeilRatio(maxByUser[u], session.DepositRatio), acc.Frozen, "user %d", u)
	}
}

func TestMinimumBid(t *testing.T) {
	f := newFixture(t)
	cfg, err := f.increments.CreateConfig(f.ctx, "tiers", []model.BidIncrementRule{
		{MinAmount: 0, MaxAmount: 500, IncrementAmount: 20},
		{MinAmount: 500, IncrementAmount: 50},
	})
	require.NoError(t, err)
	session := f.newSession(func(req *CreateSessionRequest) { req.BidIncrementConfigID = &cfg.ID })
	item := f.openItem(session.ID, 100, nil)
	f.fund(1, 1000)

	next, err := f.bids.MinimumBid(f.ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), next)

	f.mustBid(session.ID, item.ID, 1, 500)
	next, err = f.bids.MinimumBid(f.ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, int64(550), next)
}

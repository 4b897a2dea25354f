package service

import (
	"testing"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"

	"github.com/stretchr/testify/require"
)

func TestLedger_Movements(t *testing.T) {
	tests := []struct {
		name    string
		run     func(f *fixture) error
		wantErr error
		want    model.DepositAccount
	}{
		{
			name: "freeze",
			run: func(f *fixture) error {
				_, err := f.ledger.Freeze(f.ctx, 1, 30, 7, model.RelatedTypeItem)
				return err
			},
			want: model.DepositAccount{Total: 100, Available: 70, Frozen: 30},
		},
		{
			name: "freeze more than available",
			run: func(f *fixture) error {
				_, err := f.ledger.Freeze(f.ctx, 1, 101, 7, model.RelatedTypeItem)
				return err
			},
			wantErr: auctionerr.ErrInsufficientFunds,
			want:    model.DepositAccount{Total: 100, Available: 100},
		},
		{
			name: "unfreeze more than frozen",
			run: func(f *fixture) error {
				if _, err := f.ledger.Freeze(f.ctx, 1, 10, 7, model.RelatedTypeItem); err != nil {
					return err
				}
				_, err := f.ledger.Unfreeze(f.ctx, 1, 11, 7, model.RelatedTypeItem)
				return err
			},
			wantErr: auctionerr.ErrInsufficientFrozenFunds,
			want:    model.DepositAccount{Total: 100, Available: 90, Frozen: 10},
		},
		{
			name: "deduct from frozen",
			run: func(f *fixture) error {
				if _, err := f.ledger.Freeze(f.ctx, 1, 40, 7, model.RelatedTypeItem); err != nil {
					return err
				}
				_, err := f.ledger.Deduct(f.ctx, 1, 25, 7, model.RelatedTypeItem)
				return err
			},
			want: model.DepositAccount{Total: 75, Available: 60, Frozen: 15},
		},
		{
			name: "deduct more than frozen",
			run: func(f *fixture) error {
				_, err := f.ledger.Deduct(f.ctx, 1, 1, 7, model.RelatedTypeItem)
				return err
			},
			wantErr: auctionerr.ErrInsufficientFrozenFunds,
			want:    model.DepositAccount{Total: 100, Available: 100},
		},
		{
			name: "pay from available",
			run: func(f *fixture) error {
				_, err := f.ledger.DeductFromAvailable(f.ctx, 1, 60, 3, model.RelatedTypeOrder)
				return err
			},
			want: model.DepositAccount{Total: 40, Available: 40},
		},
		{
			name: "refund",
			run: func(f *fixture) error {
				_, err := f.ledger.Refund(f.ctx, 1, 15, 3, model.RelatedTypeOrder)
				return err
			},
			want: model.DepositAccount{Total: 115, Available: 115, Refunded: 15},
		},
		{
			name: "zero amount",
			run: func(f *fixture) error {
				_, err := f.ledger.Freeze(f.ctx, 1, 0, 7, model.RelatedTypeItem)
				return err
			},
			wantErr: auctionerr.ErrInvalidAmount,
			want:    model.DepositAccount{Total: 100, Available: 100},
		},
		{
			name: "negative amount",
			run: func(f *fixture) error {
				_, err := f.ledger.Refund(f.ctx, 1, -5, 3, model.RelatedTypeOrder)
				return err
			},
			wantErr: auctionerr.ErrInvalidAmount,
			want:    model.DepositAccount{Total: 100, Available: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.fund(1, 100)

			err := tt.run(f)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			acc := f.account(1)
			require.Equal(t, tt.want.Total, acc.Total)
			require.Equal(t, tt.want.Available, acc.Available)
			require.Equal(t, tt.want.Frozen, acc.Frozen)
			require.Equal(t, tt.want.Refunded, acc.Refunded)
			f.requireBalanced(1)
		})
	}
}

func TestLedger_FailedMovementLeavesNoEntry(t *testing.T) {
	f := newFixture(t)
	f.fund(1, 50)
	before := f.transactionCount(1)

	_, err := f.ledger.Freeze(f.ctx, 1, 51, 7, model.RelatedTypeItem)
	require.ErrorIs(t, err, auctionerr.ErrInsufficientFunds)
	require.Equal(t, before, f.transactionCount(1))
}

func TestLedger_EntryRecordsBalances(t *testing.T) {
	f := newFixture(t)
	f.fund(1, 100)

	trans, err := f.ledger.Freeze(f.ctx, 1, 30, 9, model.RelatedTypeItem)
	require.NoError(t, err)
	require.Equal(t, model.TransactionTypeFreeze, trans.Type)
	require.Equal(t, model.TransactionStatusSuccess, trans.Status)
	require.Equal(t, int64(100), trans.BalanceBefore)
	require.Equal(t, int64(70), trans.BalanceAfter)
	require.Equal(t, int64(9), trans.RelatedID)
	require.Equal(t, model.RelatedTypeItem, trans.RelatedType)
	require.NotEmpty(t, trans.TransactionNo)

	// deduct entries track the frozen balance
	trans, err = f.ledger.Deduct(f.ctx, 1, 20, 9, model.RelatedTypeItem)
	require.NoError(t, err)
	require.Equal(t, int64(30), trans.BalanceBefore)
	require.Equal(t, int64(10), trans.BalanceAfter)
}

func TestLedger_RechargeIsTwoPhase(t *testing.T) {
	f := newFixture(t)

	trans, err := f.ledger.Recharge(f.ctx, 1, 500, "bank transfer")
	require.NoError(t, err)
	require.Equal(t, model.TransactionStatusPending, trans.Status)
	require.Zero(t, f.account(1).Total)

	approved, err := f.ledger.Approve(f.ctx, trans.ID, 42, "received")
	require.NoError(t, err)
	require.Equal(t, model.TransactionStatusSuccess, approved.Status)
	require.Equal(t, int64(42), approved.ReviewerID)
	require.NotNil(t, approved.ReviewedAt)
	require.Zero(t, approved.BalanceBefore)
	require.Equal(t, int64(500), approved.BalanceAfter)

	acc := f.account(1)
	require.Equal(t, int64(500), acc.Total)
	require.Equal(t, int64(500), acc.Available)

	_, err = f.ledger.Approve(f.ctx, trans.ID, 42, "again")
	require.ErrorIs(t, err, auctionerr.ErrTransactionNotPending)
	_, err = f.ledger.Reject(f.ctx, trans.ID, 42, "too late")
	require.ErrorIs(t, err, auctionerr.ErrTransactionNotPending)
	require.Equal(t, int64(500), f.account(1).Total)
}

func TestLedger_RejectLeavesBalances(t *testing.T) {
	f := newFixture(t)
	f.fund(1, 100)

	trans, err := f.ledger.Recharge(f.ctx, 1, 300, "")
	require.NoError(t, err)
	rejected, err := f.ledger.Reject(f.ctx, trans.ID, 7, "unverified")
	require.NoError(t, err)
	require.Equal(t, model.TransactionStatusFailed, rejected.Status)
	require.Equal(t, "unverified", rejected.Remark)
	require.Equal(t, int64(100), f.account(1).Total)

	_, err = f.ledger.Approve(f.ctx, trans.ID, 7, "")
	require.ErrorIs(t, err, auctionerr.ErrTransactionNotPending)
}

func TestLedger_WithdrawRechecksOnApprove(t *testing.T) {
	f := newFixture(t)
	f.fund(1, 100)

	_, err := f.ledger.Withdraw(f.ctx, 1, 101, "")
	require.ErrorIs(t, err, auctionerr.ErrInsufficientFunds)

	trans, err := f.ledger.Withdraw(f.ctx, 1, 80, "")
	require.NoError(t, err)
	require.Equal(t, int64(100), f.account(1).Available)

	// funds get frozen by a bid in the meantime
	_, err = f.ledger.Freeze(f.ctx, 1, 30, 1, model.RelatedTypeItem)
	require.NoError(t, err)

	_, err = f.ledger.Approve(f.ctx, trans.ID, 7, "")
	require.ErrorIs(t, err, auctionerr.ErrInsufficientFunds)

	_, err = f.ledger.Unfreeze(f.ctx, 1, 30, 1, model.RelatedTypeItem)
	require.NoError(t, err)
	_, err = f.ledger.Approve(f.ctx, trans.ID, 7, "")
	require.NoError(t, err)

	acc := f.account(1)
	require.Equal(t, int64(20), acc.Total)
	require.Equal(t, int64(20), acc.Available)
}

func TestLedger_ReviewUnknownOrNonReviewable(t *testing.T) {
	f := newFixture(t)
	f.fund(1, 100)

	_, err := f.ledger.Approve(f.ctx, 9999, 1, "")
	require.ErrorIs(t, err, auctionerr.ErrTransactionNotFound)

	trans, err := f.ledger.Freeze(f.ctx, 1, 10, 1, model.RelatedTypeItem)
	require.NoError(t, err)
	_, err = f.ledger.Approve(f.ctx, trans.ID, 1, "")
	require.ErrorIs(t, err, auctionerr.ErrInvalidTransition)
}

func TestLedger_FrozenAccount(t *testing.T) {
	f := newFixture(t)
	f.fund(1, 100)
	_, err := f.ledger.Freeze(f.ctx, 1, 40, 1, model.RelatedTypeItem)
	require.NoError(t, err)
	pending, err := f.ledger.Recharge(f.ctx, 1, 50, "")
	require.NoError(t, err)

	require.NoError(t, f.ledger.SetAccountStatus(f.ctx, 1, model.AccountStatusFrozen))
	require.True(t, f.account(1).IsFrozen())

	blocked := map[string]func() error{
		"freeze": func() error {
			_, err := f.ledger.Freeze(f.ctx, 1, 1, 1, model.RelatedTypeItem)
			return err
		},
		"pay": func() error {
			_, err := f.ledger.DeductFromAvailable(f.ctx, 1, 1, 1, model.RelatedTypeOrder)
			return err
		},
		"refund": func() error {
			_, err := f.ledger.Refund(f.ctx, 1, 1, 1, model.RelatedTypeOrder)
			return err
		},
		"recharge": func() error {
			_, err := f.ledger.Recharge(f.ctx, 1, 1, "")
			return err
		},
		"withdraw": func() error {
			_, err := f.ledger.Withdraw(f.ctx, 1, 1, "")
			return err
		},
		"approve": func() error {
			_, err := f.ledger.Approve(f.ctx, pending.ID, 1, "")
			return err
		},
	}
	for name, op := range blocked {
		require.ErrorIs(t, op(), auctionerr.ErrAccountFrozen, name)
	}

	// settlement paths still work on a blacklisted account
	_, err = f.ledger.Unfreeze(f.ctx, 1, 15, 1, model.RelatedTypeItem)
	require.NoError(t, err)
	_, err = f.ledger.Deduct(f.ctx, 1, 25, 1, model.RelatedTypeItem)
	require.NoError(t, err)

	acc := f.account(1)
	require.Equal(t, int64(75), acc.Total)
	require.Equal(t, int64(75), acc.Available)
	require.Zero(t, acc.Frozen)

	require.NoError(t, f.ledger.SetAccountStatus(f.ctx, 1, model.AccountStatusActive))
	_, err = f.ledger.Freeze(f.ctx, 1, 5, 1, model.RelatedTypeItem)
	require.NoError(t, err)

	require.ErrorIs(t, f.ledger.SetAccountStatus(f.ctx, 1, "GONE"), auctionerr.ErrInvalidTransition)
}

func TestLedger_ListTransactions(t *testing.T) {
	f := newFixture(t)
	f.fund(1, 100)
	for i := 0; i < 5; i++ {
		_, err := f.ledger.Freeze(f.ctx, 1, 1, int64(i), model.RelatedTypeItem)
		require.NoError(t, err)
	}
	f.fund(2, 10)

	rows, total, err := f.ledger.ListTransactions(f.ctx, 1, 1, 4)
	require.NoError(t, err)
	require.Equal(t, int64(6), total)
	require.Len(t, rows, 4)
	// newest first
	require.Equal(t, model.TransactionTypeFreeze, rows[0].Type)
	require.Equal(t, int64(4), rows[0].RelatedID)

	rows, _, err = f.ledger.ListTransactions(f.ctx, 1, 2, 4)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, model.TransactionTypeRecharge, rows[1].Type)

	rows, _, err = f.ledger.ListTransactions(f.ctx, 1, 0, 1000)
	require.NoError(t, err)
	require.Len(t, rows, 6)
}

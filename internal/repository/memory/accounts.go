package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"
)

type accountStore struct{ *repos }

func (r accountStore) GetByUserID(ctx context.Context, userID int64) (*model.DepositAccount, error) {
	var out *model.DepositAccount
	err := r.with(func(st *state) error {
		acc, ok := st.accounts[userID]
		if !ok {
			return auctionerr.ErrAccountNotFound
		}
		out = &acc
		return nil
	})
	return out, err
}

func (r accountStore) GetOrCreate(ctx context.Context, userID int64) (*model.DepositAccount, error) {
	var out *model.DepositAccount
	err := r.with(func(st *state) error {
		acc, ok := st.accounts[userID]
		if !ok {
			now := time.Now()
			acc = model.DepositAccount{
				ID:        st.nextID("deposit_account"),
				UserID:    userID,
				Status:    model.AccountStatusActive,
				CreatedAt: now,
				UpdatedAt: now,
			}
			st.accounts[userID] = acc
		}
		out = &acc
		return nil
	})
	return out, err
}

// GetOrCreateForUpdate needs no row lock: writers are already serialised.
func (r accountStore) GetOrCreateForUpdate(ctx context.Context, userID int64) (*model.DepositAccount, error) {
	return r.GetOrCreate(ctx, userID)
}

func (r accountStore) UpdateBalances(ctx context.Context, account *model.DepositAccount) error {
	if !account.Balanced() {
		return errors.New("refusing to persist unbalanced deposit account")
	}
	return r.with(func(st *state) error {
		stored, ok := st.accounts[account.UserID]
		if !ok || stored.ID != account.ID {
			return auctionerr.ErrAccountNotFound
		}
		stored.Total = account.Total
		stored.Available = account.Available
		stored.Frozen = account.Frozen
		stored.Refunded = account.Refunded
		stored.UpdatedAt = time.Now()
		st.accounts[account.UserID] = stored
		return nil
	})
}

func (r accountStore) UpdateStatus(ctx context.Context, userID int64, status string) error {
	return r.with(func(st *state) error {
		stored, ok := st.accounts[userID]
		if !ok {
			return auctionerr.ErrAccountNotFound
		}
		stored.Status = status
		stored.UpdatedAt = time.Now()
		st.accounts[userID] = stored
		return nil
	})
}

type transactionStore struct{ *repos }

func (r transactionStore) Create(ctx context.Context, trans *model.DepositTransaction) error {
	return r.with(func(st *state) error {
		for _, t := range st.transactions {
			if t.TransactionNo == trans.TransactionNo {
				return errors.New("duplicate transaction number " + trans.TransactionNo)
			}
		}
		trans.ID = st.nextID("deposit_transaction")
		if trans.CreatedAt.IsZero() {
			trans.CreatedAt = time.Now()
		}
		st.transactions[trans.ID] = *trans
		return nil
	})
}

func (r transactionStore) GetByIDForUpdate(ctx context.Context, id int64) (*model.DepositTransaction, error) {
	var out *model.DepositTransaction
	err := r.with(func(st *state) error {
		t, ok := st.transactions[id]
		if !ok {
			return auctionerr.ErrTransactionNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r transactionStore) UpdateReview(ctx context.Context, trans *model.DepositTransaction) error {
	return r.with(func(st *state) error {
		stored, ok := st.transactions[trans.ID]
		if !ok || stored.Status != model.TransactionStatusPending {
			return auctionerr.ErrTransactionNotPending
		}
		stored.Status = trans.Status
		stored.BalanceBefore = trans.BalanceBefore
		stored.BalanceAfter = trans.BalanceAfter
		stored.ReviewerID = trans.ReviewerID
		stored.Remark = trans.Remark
		stored.ReviewedAt = trans.ReviewedAt
		st.transactions[trans.ID] = stored
		return nil
	})
}

func (r transactionStore) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.DepositTransaction, int64, error) {
	var (
		out   []*model.DepositTransaction
		total int64
	)
	err := r.with(func(st *state) error {
		var rows []model.DepositTransaction
		for _, t := range st.transactions {
			if t.UserID == userID {
				rows = append(rows, t)
			}
		}
		sort.Slice(rows, func(i, j int) bool {
			if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
				return rows[i].CreatedAt.After(rows[j].CreatedAt)
			}
			return rows[i].ID > rows[j].ID
		})
		total = int64(len(rows))
		for _, t := range paginate(rows, page, pageSize) {
			t := t
			out = append(out, &t)
		}
		return nil
	})
	return out, total, err
}

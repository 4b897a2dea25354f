package service

import (
	"context"
	"fmt"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
	"auctionhouse/pkg/idgen"
	"auctionhouse/pkg/logger"
)

// DepositLedger owns every balance movement of deposit accounts. Each public
// method is one unit of work; use With to run the same operations inside a
// transaction the caller already holds.
type DepositLedger struct {
	store repository.Store
	now   func() time.Time
}

func NewDepositLedger(store repository.Store) *DepositLedger {
	return &DepositLedger{store: store, now: time.Now}
}

// LedgerTx applies ledger operations against a transaction's repositories.
type LedgerTx struct {
	repos repository.Repos
	now   func() time.Time
}

func (l *DepositLedger) With(tx repository.Repos) *LedgerTx {
	return &LedgerTx{repos: tx, now: l.now}
}

type movement struct {
	txType string
	// frozen (blacklisted) accounts may still be unfrozen or deducted so
	// that settlement can always complete
	allowBlocked bool
	// balance is the figure recorded as balance before/after
	balance func(a *model.DepositAccount) int64
	apply   func(a *model.DepositAccount, amount int64) error
}

var (
	freezeMove = movement{
		txType:  model.TransactionTypeFreeze,
		balance: func(a *model.DepositAccount) int64 { return a.Available },
		apply: func(a *model.DepositAccount, amount int64) error {
			if a.Available < amount {
				return auctionerr.ErrInsufficientFunds
			}
			a.Available -= amount
			a.Frozen += amount
			return nil
		},
	}
	unfreezeMove = movement{
		txType:       model.TransactionTypeUnfreeze,
		allowBlocked: true,
		balance:      func(a *model.DepositAccount) int64 { return a.Available },
		apply: func(a *model.DepositAccount, amount int64) error {
			if a.Frozen < amount {
				return auctionerr.ErrInsufficientFrozenFunds
			}
			a.Frozen -= amount
			a.Available += amount
			return nil
		},
	}
	deductMove = movement{
		txType:       model.TransactionTypeDeduct,
		allowBlocked: true,
		balance:      func(a *model.DepositAccount) int64 { return a.Frozen },
		apply: func(a *model.DepositAccount, amount int64) error {
			if a.Frozen < amount {
				return auctionerr.ErrInsufficientFrozenFunds
			}
			a.Total -= amount
			a.Frozen -= amount
			return nil
		},
	}
	payMove = movement{
		txType:  model.TransactionTypePay,
		balance: func(a *model.DepositAccount) int64 { return a.Available },
		apply: func(a *model.DepositAccount, amount int64) error {
			if a.Available < amount {
				return auctionerr.ErrInsufficientFunds
			}
			a.Total -= amount
			a.Available -= amount
			return nil
		},
	}
	refundMove = movement{
		txType:  model.TransactionTypeRefund,
		balance: func(a *model.DepositAccount) int64 { return a.Available },
		apply: func(a *model.DepositAccount, amount int64) error {
			a.Total += amount
			a.Available += amount
			a.Refunded += amount
			return nil
		},
	}
)

func (t *LedgerTx) move(ctx context.Context, m movement, userID, amount, relatedID int64, relatedType string) (*model.DepositTransaction, error) {
	if amount <= 0 {
		return nil, auctionerr.ErrInvalidAmount
	}

	account, err := t.repos.Accounts().GetOrCreateForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询账户失败: %w", err)
	}
	if account.IsFrozen() && !m.allowBlocked {
		return nil, auctionerr.ErrAccountFrozen
	}

	before := m.balance(account)
	if err := m.apply(account, amount); err != nil {
		return nil, err
	}
	if err := t.repos.Accounts().UpdateBalances(ctx, account); err != nil {
		return nil, fmt.Errorf("更新账户余额失败: %w", err)
	}

	trans := &model.DepositTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		AccountID:     account.ID,
		UserID:        userID,
		Type:          m.txType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  m.balance(account),
		RelatedID:     relatedID,
		RelatedType:   relatedType,
		Status:        model.TransactionStatusSuccess,
		CreatedAt:     t.now(),
	}
	if err := t.repos.Transactions().Create(ctx, trans); err != nil {
		return nil, fmt.Errorf("记录流水失败: %w", err)
	}
	return trans, nil
}

// Freeze moves amount from available to frozen.
func (t *LedgerTx) Freeze(ctx context.Context, userID, amount, relatedID int64, relatedType string) (*model.DepositTransaction, error) {
	return t.move(ctx, freezeMove, userID, amount, relatedID, relatedType)
}

// Unfreeze moves amount from frozen back to available.
func (t *LedgerTx) Unfreeze(ctx context.Context, userID, amount, relatedID int64, relatedType string) (*model.DepositTransaction, error) {
	return t.move(ctx, unfreezeMove, userID, amount, relatedID, relatedType)
}

// Deduct permanently removes amount from frozen funds.
func (t *LedgerTx) Deduct(ctx context.Context, userID, amount, relatedID int64, relatedType string) (*model.DepositTransaction, error) {
	return t.move(ctx, deductMove, userID, amount, relatedID, relatedType)
}

// DeductFromAvailable permanently removes amount from available funds.
func (t *LedgerTx) DeductFromAvailable(ctx context.Context, userID, amount, relatedID int64, relatedType string) (*model.DepositTransaction, error) {
	return t.move(ctx, payMove, userID, amount, relatedID, relatedType)
}

// Refund credits amount back to available and records it as refunded.
func (t *LedgerTx) Refund(ctx context.Context, userID, amount, relatedID int64, relatedType string) (*model.DepositTransaction, error) {
	return t.move(ctx, refundMove, userID, amount, relatedID, relatedType)
}

func (l *DepositLedger) run(ctx context.Context, fn func(t *LedgerTx) (*model.DepositTransaction, error)) (*model.DepositTransaction, error) {
	var trans *model.DepositTransaction
	err := l.store.Transaction(ctx, func(tx repository.Repos) error {
		var err error
		trans, err = fn(l.With(tx))
		return err
	})
	return trans, err
}

func (l *DepositLedger) Freeze(ctx context.Context, userID, amount, relatedID int64, relatedType string) (*model.DepositTransaction, error) {
	return l.run(ctx, func(t *LedgerTx) (*model.DepositTransaction, error) {
		return t.Freeze(ctx, userID, amount, relatedID, relatedType)
	})
}

func (l *DepositLedger) Unfreeze(ctx context.Context, userID, amount, relatedID int64, relatedType string) (*model.DepositTransaction, error) {
	return l.run(ctx, func(t *LedgerTx) (*model.DepositTransaction, error) {
		return t.Unfreeze(ctx, userID, amount, relatedID, relatedType)
	})
}

func (l *DepositLedger) Deduct(ctx context.Context, userID, amount, relatedID int64, relatedType string) (*model.DepositTransaction, error) {
	return l.run(ctx, func(t *LedgerTx) (*model.DepositTransaction, error) {
		return t.Deduct(ctx, userID, amount, relatedID, relatedType)
	})
}

func (l *DepositLedger) DeductFromAvailable(ctx context.Context, userID, amount, relatedID int64, relatedType string) (*model.DepositTransaction, error) {
	return l.run(ctx, func(t *LedgerTx) (*model.DepositTransaction, error) {
		return t.DeductFromAvailable(ctx, userID, amount, relatedID, relatedType)
	})
}

func (l *DepositLedger) Refund(ctx context.Context, userID, amount, relatedID int64, relatedType string) (*model.DepositTransaction, error) {
	return l.run(ctx, func(t *LedgerTx) (*model.DepositTransaction, error) {
		return t.Refund(ctx, userID, amount, relatedID, relatedType)
	})
}

// ============================================================================
// 充值 / 提现
// ============================================================================
//
// 两阶段处理：
//   1. Recharge / Withdraw 只写一条 PENDING 流水，余额不动
//   2. Approve 时才入账或出账，流水置为 SUCCESS
//   3. Reject 直接关闭申请，余额不动
//
// 提现在申请和审批时各校验一次可用余额，中间不做预留。

// Recharge records a PENDING recharge request. No balance moves until Approve.
func (l *DepositLedger) Recharge(ctx context.Context, userID, amount int64, description string) (*model.DepositTransaction, error) {
	return l.request(ctx, model.TransactionTypeRecharge, userID, amount, description)
}

// Withdraw records a PENDING withdrawal request. Available funds are checked
// now and again on Approve; nothing is reserved in between.
func (l *DepositLedger) Withdraw(ctx context.Context, userID, amount int64, description string) (*model.DepositTransaction, error) {
	return l.request(ctx, model.TransactionTypeWithdraw, userID, amount, description)
}

func (l *DepositLedger) request(ctx context.Context, txType string, userID, amount int64, description string) (*model.DepositTransaction, error) {
	if amount <= 0 {
		return nil, auctionerr.ErrInvalidAmount
	}
	return l.run(ctx, func(t *LedgerTx) (*model.DepositTransaction, error) {
		account, err := t.repos.Accounts().GetOrCreateForUpdate(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("查询账户失败: %w", err)
		}
		if account.IsFrozen() {
			return nil, auctionerr.ErrAccountFrozen
		}
		if txType == model.TransactionTypeWithdraw && account.Available < amount {
			return nil, auctionerr.ErrInsufficientFunds
		}

		trans := &model.DepositTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			AccountID:     account.ID,
			UserID:        userID,
			Type:          txType,
			Amount:        amount,
			BalanceBefore: account.Available,
			BalanceAfter:  account.Available,
			Status:        model.TransactionStatusPending,
			Description:   description,
			CreatedAt:     t.now(),
		}
		if err := t.repos.Transactions().Create(ctx, trans); err != nil {
			return nil, fmt.Errorf("记录流水失败: %w", err)
		}
		return trans, nil
	})
}

// Approve applies a PENDING recharge or withdrawal and marks it SUCCESS.
// A second review of the same entry fails with ErrTransactionNotPending.
func (l *DepositLedger) Approve(ctx context.Context, transactionID, reviewerID int64, remark string) (*model.DepositTransaction, error) {
	trans, err := l.run(ctx, func(t *LedgerTx) (*model.DepositTransaction, error) {
		trans, err := t.pendingForReview(ctx, transactionID)
		if err != nil {
			return nil, err
		}

		account, err := t.repos.Accounts().GetOrCreateForUpdate(ctx, trans.UserID)
		if err != nil {
			return nil, fmt.Errorf("查询账户失败: %w", err)
		}
		if account.IsFrozen() {
			return nil, auctionerr.ErrAccountFrozen
		}

		before := account.Available
		switch trans.Type {
		case model.TransactionTypeRecharge:
			account.Total += trans.Amount
			account.Available += trans.Amount
		case model.TransactionTypeWithdraw:
			if account.Available < trans.Amount {
				return nil, auctionerr.ErrInsufficientFunds
			}
			account.Total -= trans.Amount
			account.Available -= trans.Amount
		}
		if err := t.repos.Accounts().UpdateBalances(ctx, account); err != nil {
			return nil, fmt.Errorf("更新账户余额失败: %w", err)
		}

		reviewedAt := t.now()
		trans.Status = model.TransactionStatusSuccess
		trans.BalanceBefore = before
		trans.BalanceAfter = account.Available
		trans.ReviewerID = reviewerID
		trans.Remark = remark
		trans.ReviewedAt = &reviewedAt
		if err := t.repos.Transactions().UpdateReview(ctx, trans); err != nil {
			return nil, err
		}
		return trans, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("deposit request approved", map[string]any{
		"transaction_id": trans.ID,
		"user_id":        trans.UserID,
		"type":           trans.Type,
		"amount":         trans.Amount,
		"reviewer_id":    reviewerID,
	})
	return trans, nil
}

// Reject marks a PENDING recharge or withdrawal FAILED; balances are untouched.
func (l *DepositLedger) Reject(ctx context.Context, transactionID, reviewerID int64, remark string) (*model.DepositTransaction, error) {
	return l.run(ctx, func(t *LedgerTx) (*model.DepositTransaction, error) {
		trans, err := t.pendingForReview(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		reviewedAt := t.now()
		trans.Status = model.TransactionStatusFailed
		trans.ReviewerID = reviewerID
		trans.Remark = remark
		trans.ReviewedAt = &reviewedAt
		if err := t.repos.Transactions().UpdateReview(ctx, trans); err != nil {
			return nil, err
		}
		return trans, nil
	})
}

func (t *LedgerTx) pendingForReview(ctx context.Context, transactionID int64) (*model.DepositTransaction, error) {
	trans, err := t.repos.Transactions().GetByIDForUpdate(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !model.RequiresReview(trans.Type) {
		return nil, fmt.Errorf("%w: %s entries are not reviewable", auctionerr.ErrInvalidTransition, trans.Type)
	}
	if trans.Status != model.TransactionStatusPending {
		return nil, auctionerr.ErrTransactionNotPending
	}
	return trans, nil
}

// SetAccountStatus blacklists (FROZEN) or restores (ACTIVE) an account.
func (l *DepositLedger) SetAccountStatus(ctx context.Context, userID int64, status string) error {
	if status != model.AccountStatusActive && status != model.AccountStatusFrozen {
		return fmt.Errorf("%w: unknown account status %q", auctionerr.ErrInvalidTransition, status)
	}
	err := l.store.Transaction(ctx, func(tx repository.Repos) error {
		if _, err := tx.Accounts().GetOrCreateForUpdate(ctx, userID); err != nil {
			return err
		}
		return tx.Accounts().UpdateStatus(ctx, userID, status)
	})
	if err != nil {
		return err
	}
	logger.Info("deposit account status changed", map[string]any{"user_id": userID, "status": status})
	return nil
}

// GetAccount returns the user's account, creating an empty one on first use.
func (l *DepositLedger) GetAccount(ctx context.Context, userID int64) (*model.DepositAccount, error) {
	return l.store.Accounts().GetOrCreate(ctx, userID)
}

func (l *DepositLedger) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.DepositTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return l.store.Transactions().ListByUserID(ctx, userID, page, pageSize)
}

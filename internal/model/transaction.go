package model

import (
	"time"
)

const (
	TransactionTypeRecharge = "RECHARGE" // 充值
	TransactionTypeWithdraw = "WITHDRAW" // 提现
	TransactionTypeFreeze   = "FREEZE"   // 出价冻结
	TransactionTypeUnfreeze = "UNFREEZE" // 释放冻结
	TransactionTypeDeduct   = "DEDUCT"   // 扣除冻结保证金
	TransactionTypeRefund   = "REFUND"   // 退款
	TransactionTypePay      = "PAY"      // 支付尾款
)

const (
	TransactionStatusPending = "PENDING"
	TransactionStatusSuccess = "SUCCESS"
	TransactionStatusFailed  = "FAILED"
)

const (
	RelatedTypeItem  = "item"
	RelatedTypeOrder = "order"
)

// DepositTransaction 保证金流水
//
// 只追加不删除。唯一会被更新的是 PENDING 充值/提现的审核字段
// （Status、余额快照、ReviewerID、Remark、ReviewedAt）。
// BalanceBefore/BalanceAfter 记录本笔变动的那个余额：
// 大多数类型是可用余额，DEDUCT 是冻结余额。
type DepositTransaction struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	AccountID     int64      `gorm:"index;not null" json:"account_id"`
	UserID        int64      `gorm:"index;not null" json:"user_id"`
	Type          string     `gorm:"type:varchar(16);not null" json:"type"`
	Amount        int64      `gorm:"not null" json:"amount"`
	BalanceBefore int64      `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64      `gorm:"not null" json:"balance_after"`
	RelatedID     int64      `gorm:"index" json:"related_id"`
	RelatedType   string     `gorm:"type:varchar(16)" json:"related_type"`
	Status        string     `gorm:"type:varchar(16);index;not null" json:"status"`
	Description   string     `gorm:"type:varchar(256)" json:"description"`
	ReviewerID    int64      `json:"reviewer_id,omitempty"`
	Remark        string     `gorm:"type:varchar(256)" json:"remark,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (DepositTransaction) TableName() string {
	return "deposit_transaction"
}

// RequiresReview reports whether the type goes through the two-phase
// approve/reject flow.
func RequiresReview(txType string) bool {
	return txType == TransactionTypeRecharge || txType == TransactionTypeWithdraw
}

package model

import (
	"time"
)

const (
	OrderStatusPendingPayment = "PENDING_PAYMENT"
	OrderStatusPaid           = "PAID"
	OrderStatusCancelled      = "CANCELLED"
	OrderStatusRefunded       = "REFUNDED"
)

var ValidStatusTransitions = map[string][]string{
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:           {OrderStatusRefunded},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// AuctionOrder 成交订单
// BalanceAmount = max(0, TotalAmount + Commission - DepositAmount)，
// 即抵扣冻结保证金后买家还需支付的尾款。
type AuctionOrder struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	SessionID     int64      `gorm:"uniqueIndex:uk_order_session_item;not null" json:"session_id"`
	ItemID        int64      `gorm:"uniqueIndex:uk_order_session_item;not null" json:"item_id"`
	BuyerID       int64      `gorm:"index;not null" json:"buyer_id"`
	TotalAmount   int64      `gorm:"not null" json:"total_amount"`
	Commission    int64      `gorm:"not null" json:"commission"`
	DepositAmount int64      `gorm:"not null" json:"deposit_amount"`
	BalanceAmount int64      `gorm:"not null" json:"balance_amount"`
	Status        string     `gorm:"type:varchar(20);index;not null" json:"status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AuctionOrder) TableName() string {
	return "auction_order"
}

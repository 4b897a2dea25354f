package model

import (
	"time"
)

// AuctionResult 成交结果
// 每个 (session, item) 只写一次，唯一索引即结算幂等标记。
type AuctionResult struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID    int64     `gorm:"uniqueIndex:uk_result_session_item;not null" json:"session_id"`
	ItemID       int64     `gorm:"uniqueIndex:uk_result_session_item;not null" json:"item_id"`
	WinnerUserID *int64    `json:"winner_user_id,omitempty"`
	HighestBidID *int64    `json:"highest_bid_id,omitempty"`
	FinalPrice   int64     `gorm:"not null" json:"final_price"`
	Commission   int64     `gorm:"not null;default:0" json:"commission"`
	DepositUsed  int64     `gorm:"not null;default:0" json:"deposit_used"`
	Sold         bool      `gorm:"not null" json:"sold"`
	OrderID      *int64    `json:"order_id,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AuctionResult) TableName() string {
	return "auction_result"
}

package model

import (
	"time"
)

const (
	BidStatusValid   = "VALID"
	BidStatusInvalid = "INVALID"
	BidStatusOutbid  = "OUTBID" // display only, never written by the engine
)

// AuctionBid 出价记录
// 写入后不再修改，出价历史与保证金冻结都以它为准
type AuctionBid struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID int64     `gorm:"index:idx_bid_item_user,priority:2;not null" json:"session_id"`
	ItemID    int64     `gorm:"index:idx_bid_item_user,priority:1;not null" json:"item_id"`
	UserID    int64     `gorm:"index:idx_bid_item_user,priority:3;not null" json:"user_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	BidTime   time.Time `gorm:"not null" json:"bid_time"`
	Status    string    `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AuctionBid) TableName() string {
	return "auction_bid"
}

// HighestBid picks the highest valid bid, earliest first on equal amounts.
func HighestBid(bids []AuctionBid) (AuctionBid, bool) {
	var best AuctionBid
	found := false
	for _, b := range bids {
		if b.Status != BidStatusValid {
			continue
		}
		if !found || b.Amount > best.Amount || (b.Amount == best.Amount && b.BidTime.Before(best.BidTime)) {
			best = b
			found = true
		}
	}
	return best, found
}

// MaxBidByUser returns each bidder's highest valid bid amount.
func MaxBidByUser(bids []AuctionBid) map[int64]int64 {
	out := make(map[int64]int64)
	for _, b := range bids {
		if b.Status != BidStatusValid {
			continue
		}
		if b.Amount > out[b.UserID] {
			out[b.UserID] = b.Amount
		}
	}
	return out
}

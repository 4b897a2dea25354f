package model

import (
	"time"
)

const (
	ItemStatusDraft         = "DRAFT"
	ItemStatusPendingReview = "PENDING_REVIEW"
	ItemStatusApproved      = "APPROVED"
	ItemStatusRejected      = "REJECTED"
	ItemStatusInAuction     = "IN_AUCTION"
	ItemStatusSold          = "SOLD"
	ItemStatusUnsold        = "UNSOLD"
	ItemStatusDelisted      = "DELISTED"
)

const (
	ItemActionSubmit  = "submit"
	ItemActionApprove = "approve"
	ItemActionReject  = "reject"
	ItemActionDelist  = "delist"
	ItemActionRelist  = "relist"
	ItemActionStart   = "start"
	ItemActionSell    = "sell"
	ItemActionPass    = "pass"
)

// itemTransitions: action -> from -> to
var itemTransitions = map[string]map[string]string{
	ItemActionSubmit:  {ItemStatusDraft: ItemStatusPendingReview},
	ItemActionApprove: {ItemStatusPendingReview: ItemStatusApproved},
	ItemActionReject:  {ItemStatusPendingReview: ItemStatusRejected},
	ItemActionDelist:  {ItemStatusApproved: ItemStatusDelisted},
	ItemActionRelist:  {ItemStatusDelisted: ItemStatusApproved},
	ItemActionStart:   {ItemStatusApproved: ItemStatusInAuction},
	ItemActionSell:    {ItemStatusInAuction: ItemStatusSold},
	ItemActionPass:    {ItemStatusInAuction: ItemStatusUnsold},
}

// NextItemStatus returns the status reached by applying action to current.
func NextItemStatus(current, action string) (string, bool) {
	next, ok := itemTransitions[action][current]
	return next, ok
}

// AuctionItem 拍品
// 首次出价成功前 CurrentPrice 为 0，之后只增不减。
type AuctionItem struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID     int64     `gorm:"index;not null" json:"session_id"`
	Name          string    `gorm:"type:varchar(128);not null" json:"name"`
	StartingPrice int64     `gorm:"not null" json:"starting_price"`
	ReservePrice  *int64    `json:"reserve_price,omitempty"`
	CurrentPrice  int64     `gorm:"not null;default:0" json:"current_price"`
	Status        string    `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AuctionItem) TableName() string {
	return "auction_item"
}

func (i *AuctionItem) Biddable() bool {
	return i.Status == ItemStatusInAuction
}

// MeetsReserve reports whether price clears the reserve, if any.
func (i *AuctionItem) MeetsReserve(price int64) bool {
	return i.ReservePrice == nil || price >= *i.ReservePrice
}

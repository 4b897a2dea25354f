package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SessionStatusPending   = "PENDING"
	SessionStatusActive    = "ACTIVE"
	SessionStatusEnded     = "ENDED"
	SessionStatusCancelled = "CANCELLED"
)

// AuctionSession 拍卖会
//
// 只存 Cancelled 标记，Pending/Active/Ended 每次读取时按当前时间推导。
// EndTime 只会被防狙击延时或管理端提前结束修改。
type AuctionSession struct {
	ID                   int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                 string          `gorm:"type:varchar(128);not null" json:"name"`
	StartTime            time.Time       `gorm:"not null;index" json:"start_time"`
	EndTime              time.Time       `gorm:"not null;index" json:"end_time"`
	DepositRatio         decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"deposit_ratio"`
	CommissionRatio      decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"commission_ratio"`
	BidIncrementConfigID *int64          `gorm:"index" json:"bid_increment_config_id,omitempty"`
	AntiSnipingEnabled   bool            `gorm:"not null;default:false" json:"anti_sniping_enabled"`
	ThresholdSeconds     int             `gorm:"not null;default:60" json:"threshold_seconds"`
	ExtendSeconds        int             `gorm:"not null;default:60" json:"extend_seconds"`
	MaxExtensions        int             `gorm:"not null;default:5" json:"max_extensions"` // 0 = unlimited
	ExtensionCount       int             `gorm:"not null;default:0" json:"extension_count"`
	Cancelled            bool            `gorm:"not null;default:false" json:"cancelled"`
	Deleted              bool            `gorm:"not null;default:false" json:"-"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AuctionSession) TableName() string {
	return "auction_session"
}

// DeriveSessionStatus is the single source of truth for session status.
func DeriveSessionStatus(now, start, end time.Time, cancelled bool) string {
	switch {
	case cancelled:
		return SessionStatusCancelled
	case now.Before(start):
		return SessionStatusPending
	case !now.After(end):
		return SessionStatusActive
	default:
		return SessionStatusEnded
	}
}

func (s *AuctionSession) StatusAt(now time.Time) string {
	return DeriveSessionStatus(now, s.StartTime, s.EndTime, s.Cancelled)
}

// CanExtend reports whether a bid at now qualifies for an anti-sniping
// extension: enabled, strictly before the end but within the threshold, and
// under the extension cap.
func (s *AuctionSession) CanExtend(now time.Time) bool {
	if !s.AntiSnipingEnabled || s.ExtendSeconds <= 0 {
		return false
	}
	remaining := s.EndTime.Sub(now)
	if remaining <= 0 || remaining > time.Duration(s.ThresholdSeconds)*time.Second {
		return false
	}
	return s.MaxExtensions == 0 || s.ExtensionCount < s.MaxExtensions
}

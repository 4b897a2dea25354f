package model

import (
	"time"
)

const (
	AccountStatusActive = "ACTIVE"
	AccountStatusFrozen = "FROZEN" // blacklisted
)

// DepositAccount 用户保证金账户
// 金额单位为分，始终满足 Total == Available + Frozen。
// Refunded 只是累计退款数，仅用于统计。
type DepositAccount struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	Total     int64     `gorm:"not null;default:0" json:"total"`
	Available int64     `gorm:"not null;default:0" json:"available"`
	Frozen    int64     `gorm:"not null;default:0" json:"frozen"`
	Refunded  int64     `gorm:"not null;default:0" json:"refunded"`
	Status    string    `gorm:"type:varchar(16);not null;default:ACTIVE" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DepositAccount) TableName() string {
	return "deposit_account"
}

// Balanced reports whether the account satisfies total == available + frozen
// with no negative component.
func (a *DepositAccount) Balanced() bool {
	return a.Available >= 0 && a.Frozen >= 0 && a.Total == a.Available+a.Frozen
}

func (a *DepositAccount) IsFrozen() bool {
	return a.Status == AccountStatusFrozen
}

package model

import (
	"sort"
	"time"
)

// BidIncrementConfig 加价阶梯配置
type BidIncrementConfig struct {
	ID        int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string             `gorm:"type:varchar(64);not null" json:"name"`
	Enabled   bool               `gorm:"not null;default:true" json:"enabled"`
	Deleted   bool               `gorm:"not null;default:false" json:"-"`
	Rules     []BidIncrementRule `gorm:"foreignKey:ConfigID" json:"rules,omitempty"`
	CreatedAt time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BidIncrementConfig) TableName() string {
	return "bid_increment_config"
}

// BidIncrementRule maps the half-open price range [MinAmount, MaxAmount) to
// the minimum legal increment. MaxAmount == 0 means the range is unbounded.
type BidIncrementRule struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConfigID        int64     `gorm:"index;not null" json:"config_id"`
	MinAmount       int64     `gorm:"not null" json:"min_amount"`
	MaxAmount       int64     `gorm:"not null" json:"max_amount"`
	IncrementAmount int64     `gorm:"not null" json:"increment_amount"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (BidIncrementRule) TableName() string {
	return "bid_increment_rule"
}

func (r BidIncrementRule) Unbounded() bool {
	return r.MaxAmount == 0
}

// Contains reports whether amount falls inside the rule's range.
func (r BidIncrementRule) Contains(amount int64) bool {
	return amount >= r.MinAmount && (r.Unbounded() || amount < r.MaxAmount)
}

// SortRules orders rules ascending by MinAmount.
func SortRules(rules []BidIncrementRule) {
	sort.Slice(rules, func(i, j int) bool { return rules[i].MinAmount < rules[j].MinAmount })
}

// ValidRules reports whether the rules, sorted ascending, form a
// non-overlapping set with positive increments. Only the last rule may be
// unbounded.
func ValidRules(rules []BidIncrementRule) bool {
	if len(rules) == 0 {
		return false
	}
	sorted := append([]BidIncrementRule(nil), rules...)
	SortRules(sorted)
	for i, r := range sorted {
		if r.MinAmount < 0 || r.IncrementAmount <= 0 {
			return false
		}
		if !r.Unbounded() && r.MaxAmount <= r.MinAmount {
			return false
		}
		if i == len(sorted)-1 {
			break
		}
		if r.Unbounded() || sorted[i+1].MinAmount < r.MaxAmount {
			return false
		}
	}
	return true
}

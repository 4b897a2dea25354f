package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
	"auctionhouse/pkg/logger"
)

// IncrementService resolves bid increment tiers and manages their configs.
type IncrementService struct {
	store repository.Store
	now   func() time.Time
}

func NewIncrementService(store repository.Store) *IncrementService {
	return &IncrementService{store: store, now: time.Now}
}

// ResolveRule finds the tier containing amount in rules sorted by MinAmount.
func ResolveRule(rules []model.BidIncrementRule, amount int64) (model.BidIncrementRule, bool) {
	// first rule starting above amount; its predecessor is the only candidate
	i := sort.Search(len(rules), func(i int) bool { return rules[i].MinAmount > amount })
	if i == 0 {
		return model.BidIncrementRule{}, false
	}
	rule := rules[i-1]
	if !rule.Contains(amount) {
		return model.BidIncrementRule{}, false
	}
	return rule, true
}

// Resolve returns the tier of configID that contains amount. ok is false when
// no config is attached or no tier matches.
func (s *IncrementService) Resolve(ctx context.Context, amount int64, configID *int64) (rule model.BidIncrementRule, ok bool, err error) {
	return resolveWith(ctx, s.store.Increments(), amount, configID)
}

func resolveWith(ctx context.Context, store repository.IncrementConfigStore, amount int64, configID *int64) (model.BidIncrementRule, bool, error) {
	if configID == nil {
		return model.BidIncrementRule{}, false, nil
	}
	rules, err := store.GetRules(ctx, *configID)
	if err != nil {
		return model.BidIncrementRule{}, false, fmt.Errorf("查询加价阶梯失败: %w", err)
	}
	rule, ok := ResolveRule(rules, amount)
	return rule, ok, nil
}

// NextMinimumBid is currentPrice plus the applicable increment, or
// currentPrice+1 when no tier applies.
func (s *IncrementService) NextMinimumBid(ctx context.Context, currentPrice int64, configID *int64) (int64, error) {
	rule, ok, err := s.Resolve(ctx, currentPrice, configID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return currentPrice + 1, nil
	}
	return currentPrice + rule.IncrementAmount, nil
}

// Validate passes when no config is attached, when no tier covers
// currentPrice, or when bidAmount >= currentPrice + increment.
func (s *IncrementService) Validate(ctx context.Context, currentPrice, bidAmount int64, configID *int64) error {
	return validateWith(ctx, s.store.Increments(), currentPrice, bidAmount, configID)
}

func validateWith(ctx context.Context, store repository.IncrementConfigStore, currentPrice, bidAmount int64, configID *int64) error {
	rule, ok, err := resolveWith(ctx, store, currentPrice, configID)
	if err != nil {
		return err
	}
	if configID == nil {
		return nil
	}
	if !ok {
		// gap in the tier table: any increment is accepted
		logger.Warn("no increment tier covers current price, increment check skipped", map[string]any{
			"config_id":     *configID,
			"current_price": currentPrice,
			"bid_amount":    bidAmount,
		})
		return nil
	}
	if bidAmount < currentPrice+rule.IncrementAmount {
		return fmt.Errorf("%w: minimum next bid is %d", auctionerr.ErrIncrementViolation, currentPrice+rule.IncrementAmount)
	}
	return nil
}

func (s *IncrementService) GetConfig(ctx context.Context, configID int64) (*model.BidIncrementConfig, error) {
	return s.store.Increments().GetConfig(ctx, configID)
}

func (s *IncrementService) CreateConfig(ctx context.Context, name string, rules []model.BidIncrementRule) (*model.BidIncrementConfig, error) {
	if !model.ValidRules(rules) {
		return nil, auctionerr.ErrInvalidRules
	}
	config := &model.BidIncrementConfig{
		Name:    name,
		Enabled: true,
		Rules:   append([]model.BidIncrementRule(nil), rules...),
	}
	model.SortRules(config.Rules)
	if err := s.store.Increments().CreateConfig(ctx, config); err != nil {
		return nil, fmt.Errorf("创建加价阶梯失败: %w", err)
	}
	return config, nil
}

// UpdateRules replaces the whole tier set of a config.
func (s *IncrementService) UpdateRules(ctx context.Context, configID int64, rules []model.BidIncrementRule) error {
	if !model.ValidRules(rules) {
		return auctionerr.ErrInvalidRules
	}
	rules = append([]model.BidIncrementRule(nil), rules...)
	model.SortRules(rules)

	return s.store.Transaction(ctx, func(tx repository.Repos) error {
		if _, err := tx.Increments().GetConfig(ctx, configID); err != nil {
			return err
		}
		if err := s.ensureNotInUse(ctx, tx, configID, false); err != nil {
			return err
		}
		return tx.Increments().ReplaceRules(ctx, configID, rules)
	})
}

func (s *IncrementService) DeleteConfig(ctx context.Context, configID int64) error {
	return s.store.Transaction(ctx, func(tx repository.Repos) error {
		if err := s.ensureNotInUse(ctx, tx, configID, true); err != nil {
			return err
		}
		return tx.Increments().DeleteConfig(ctx, configID)
	})
}

// ensureNotInUse rejects changes while a referencing session is Active.
// With includePending, sessions that have not started yet block too: a
// deleted config would leave them bidding without any increment.
func (s *IncrementService) ensureNotInUse(ctx context.Context, tx repository.Repos, configID int64, includePending bool) error {
	sessions, err := tx.Sessions().ListByBidIncrementConfigID(ctx, configID)
	if err != nil {
		return fmt.Errorf("查询引用该阶梯的拍卖会失败: %w", err)
	}
	now := s.now()
	for _, session := range sessions {
		status := session.StatusAt(now)
		if status == model.SessionStatusActive || (includePending && status == model.SessionStatusPending) {
			return fmt.Errorf("%w: session %d", auctionerr.ErrConfigInUse, session.ID)
		}
	}
	return nil
}

package memory

import (
	"context"
	"sort"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"
)

type itemStore struct{ *repos }

func (r itemStore) Create(ctx context.Context, item *model.AuctionItem) error {
	return r.with(func(st *state) error {
		item.ID = st.nextID("auction_item")
		now := time.Now()
		item.CreatedAt, item.UpdatedAt = now, now
		st.items[item.ID] = *item
		return nil
	})
}

func (r itemStore) GetByID(ctx context.Context, id int64) (*model.AuctionItem, error) {
	var out *model.AuctionItem
	err := r.with(func(st *state) error {
		item, ok := st.items[id]
		if !ok {
			return auctionerr.ErrItemNotFound
		}
		out = &item
		return nil
	})
	return out, err
}

func (r itemStore) GetByIDForUpdate(ctx context.Context, id int64) (*model.AuctionItem, error) {
	return r.GetByID(ctx, id)
}

func (r itemStore) ListBySession(ctx context.Context, sessionID int64) ([]*model.AuctionItem, error) {
	var out []*model.AuctionItem
	err := r.with(func(st *state) error {
		for _, item := range st.items {
			if item.SessionID == sessionID {
				item := item
				out = append(out, &item)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r itemStore) UpdateCurrentPriceAndStatus(ctx context.Context, id int64, price int64, status string) error {
	return r.with(func(st *state) error {
		item, ok := st.items[id]
		if !ok || item.CurrentPrice > price {
			return auctionerr.ErrBidTooLow
		}
		item.CurrentPrice = price
		item.Status = status
		item.UpdatedAt = time.Now()
		st.items[id] = item
		return nil
	})
}

func (r itemStore) UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string) error {
	return r.with(func(st *state) error {
		item, ok := st.items[id]
		if !ok || item.Status != fromStatus {
			return auctionerr.ErrInvalidTransition
		}
		item.Status = toStatus
		item.UpdatedAt = time.Now()
		st.items[id] = item
		return nil
	})
}

type sessionStore struct{ *repos }

func (r sessionStore) Create(ctx context.Context, session *model.AuctionSession) error {
	return r.with(func(st *state) error {
		session.ID = st.nextID("auction_session")
		now := time.Now()
		session.CreatedAt, session.UpdatedAt = now, now
		st.sessions[session.ID] = *session
		return nil
	})
}

func (r sessionStore) GetByID(ctx context.Context, id int64) (*model.AuctionSession, error) {
	var out *model.AuctionSession
	err := r.with(func(st *state) error {
		s, ok := st.sessions[id]
		if !ok || s.Deleted {
			return auctionerr.ErrSessionNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r sessionStore) GetBidIncrementConfigID(ctx context.Context, id int64) (*int64, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.BidIncrementConfigID, nil
}

func (r sessionStore) UpdateEndTime(ctx context.Context, id int64, newEndTime, expectedEnd time.Time, expectedCount int) (bool, error) {
	applied := false
	err := r.with(func(st *state) error {
		s, ok := st.sessions[id]
		if !ok || s.ExtensionCount != expectedCount || !s.EndTime.Equal(expectedEnd) {
			return nil
		}
		s.EndTime = newEndTime
		s.ExtensionCount = expectedCount + 1
		s.UpdatedAt = time.Now()
		st.sessions[id] = s
		applied = true
		return nil
	})
	return applied, err
}

func (r sessionStore) UpdateSchedule(ctx context.Context, id int64, start, end time.Time) error {
	return r.update(id, func(s *model.AuctionSession) {
		s.StartTime = start
		s.EndTime = end
	})
}

func (r sessionStore) MarkCancelled(ctx context.Context, id int64) error {
	return r.update(id, func(s *model.AuctionSession) { s.Cancelled = true })
}

func (r sessionStore) update(id int64, fn func(s *model.AuctionSession)) error {
	return r.with(func(st *state) error {
		s, ok := st.sessions[id]
		if !ok || s.Deleted {
			return auctionerr.ErrSessionNotFound
		}
		fn(&s)
		s.UpdatedAt = time.Now()
		st.sessions[id] = s
		return nil
	})
}

func (r sessionStore) ListByBidIncrementConfigID(ctx context.Context, configID int64) ([]*model.AuctionSession, error) {
	var out []*model.AuctionSession
	err := r.with(func(st *state) error {
		for _, s := range st.sessions {
			if !s.Deleted && s.BidIncrementConfigID != nil && *s.BidIncrementConfigID == configID {
				s := s
				out = append(out, &s)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r sessionStore) ListWithOpenItems(ctx context.Context, now time.Time, limit int) ([]*model.AuctionSession, error) {
	var out []*model.AuctionSession
	err := r.with(func(st *state) error {
		open := make(map[int64]bool)
		for _, item := range st.items {
			if item.Status == model.ItemStatusApproved || item.Status == model.ItemStatusInAuction {
				open[item.SessionID] = true
			}
		}
		for _, s := range st.sessions {
			if s.Deleted || !open[s.ID] {
				continue
			}
			if s.Cancelled || !s.StartTime.After(now) {
				s := s
				out = append(out, &s)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].EndTime.Equal(out[j].EndTime) {
				return out[i].EndTime.Before(out[j].EndTime)
			}
			return out[i].ID < out[j].ID
		})
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

type bidStore struct{ *repos }

func (r bidStore) Insert(ctx context.Context, bid *model.AuctionBid) error {
	return r.with(func(st *state) error {
		bid.ID = st.nextID("auction_bid")
		if bid.CreatedAt.IsZero() {
			bid.CreatedAt = time.Now()
		}
		st.bids = append(st.bids, *bid)
		return nil
	})
}

func (r bidStore) ListValidBidsForItem(ctx context.Context, itemID int64) ([]model.AuctionBid, error) {
	var out []model.AuctionBid
	err := r.with(func(st *state) error {
		for _, b := range st.bids {
			if b.ItemID == itemID && b.Status == model.BidStatusValid {
				out = append(out, b)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].BidTime.Equal(out[j].BidTime) {
				return out[i].BidTime.Before(out[j].BidTime)
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

func (r bidStore) MaxBidForUserOnItem(ctx context.Context, itemID, sessionID, userID int64) (int64, error) {
	var maxAmount int64
	err := r.with(func(st *state) error {
		for _, b := range st.bids {
			if b.ItemID == itemID && b.SessionID == sessionID && b.UserID == userID &&
				b.Status == model.BidStatusValid && b.Amount > maxAmount {
				maxAmount = b.Amount
			}
		}
		return nil
	})
	return maxAmount, err
}

type incrementStore struct{ *repos }

func (r incrementStore) CreateConfig(ctx context.Context, config *model.BidIncrementConfig) error {
	return r.with(func(st *state) error {
		now := time.Now()
		config.ID = st.nextID("bid_increment_config")
		config.CreatedAt, config.UpdatedAt = now, now
		stored := *config
		stored.Rules = nil
		st.configs[config.ID] = stored
		st.rules[config.ID] = insertRules(st, config.ID, config.Rules)
		return nil
	})
}

func insertRules(st *state, configID int64, rules []model.BidIncrementRule) []model.BidIncrementRule {
	out := make([]model.BidIncrementRule, 0, len(rules))
	for i := range rules {
		rules[i].ID = st.nextID("bid_increment_rule")
		rules[i].ConfigID = configID
		rules[i].CreatedAt = time.Now()
		out = append(out, rules[i])
	}
	model.SortRules(out)
	return out
}

func (r incrementStore) GetConfig(ctx context.Context, configID int64) (*model.BidIncrementConfig, error) {
	var out *model.BidIncrementConfig
	err := r.with(func(st *state) error {
		c, ok := st.configs[configID]
		if !ok || c.Deleted {
			return auctionerr.ErrConfigNotFound
		}
		c.Rules = append([]model.BidIncrementRule(nil), st.rules[configID]...)
		out = &c
		return nil
	})
	return out, err
}

func (r incrementStore) GetRules(ctx context.Context, configID int64) ([]model.BidIncrementRule, error) {
	var out []model.BidIncrementRule
	err := r.with(func(st *state) error {
		c, ok := st.configs[configID]
		if !ok || c.Deleted || !c.Enabled {
			return nil
		}
		out = append(out, st.rules[configID]...)
		return nil
	})
	return out, err
}

func (r incrementStore) ReplaceRules(ctx context.Context, configID int64, rules []model.BidIncrementRule) error {
	return r.with(func(st *state) error {
		c, ok := st.configs[configID]
		if !ok || c.Deleted {
			return auctionerr.ErrConfigNotFound
		}
		st.rules[configID] = insertRules(st, configID, rules)
		c.UpdatedAt = time.Now()
		st.configs[configID] = c
		return nil
	})
}

func (r incrementStore) DeleteConfig(ctx context.Context, configID int64) error {
	return r.with(func(st *state) error {
		c, ok := st.configs[configID]
		if !ok || c.Deleted {
			return auctionerr.ErrConfigNotFound
		}
		c.Deleted = true
		st.configs[configID] = c
		delete(st.rules, configID)
		return nil
	})
}

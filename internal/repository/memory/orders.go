package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"auctionhouse/internal/auctionerr"
	"auctionhouse/internal/model"
)

type orderStore struct{ *repos }

func (r orderStore) Create(ctx context.Context, order *model.AuctionOrder) error {
	return r.with(func(st *state) error {
		for _, o := range st.orders {
			if o.OrderNo == order.OrderNo || (o.SessionID == order.SessionID && o.ItemID == order.ItemID) {
				return errors.New("duplicate auction order")
			}
		}
		order.ID = st.nextID("auction_order")
		if order.CreatedAt.IsZero() {
			order.CreatedAt = time.Now()
		}
		order.UpdatedAt = order.CreatedAt
		st.orders[order.ID] = *order
		return nil
	})
}

func (r orderStore) GetByID(ctx context.Context, id int64) (*model.AuctionOrder, error) {
	var out *model.AuctionOrder
	err := r.with(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return auctionerr.ErrOrderNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r orderStore) GetByIDForUpdate(ctx context.Context, id int64) (*model.AuctionOrder, error) {
	return r.GetByID(ctx, id)
}

func (r orderStore) UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return auctionerr.ErrOrderStatusInvalid
	}
	return r.with(func(st *state) error {
		o, ok := st.orders[id]
		if !ok || o.Status != fromStatus {
			return auctionerr.ErrOrderStatusInvalid
		}
		now := time.Now()
		o.Status = toStatus
		if toStatus == model.OrderStatusPaid {
			o.PaidAt = &now
		}
		o.UpdatedAt = now
		st.orders[id] = o
		return nil
	})
}

func (r orderStore) ListOverdue(ctx context.Context, createdBefore time.Time, limit int) ([]*model.AuctionOrder, error) {
	var out []*model.AuctionOrder
	err := r.with(func(st *state) error {
		for _, o := range st.orders {
			if o.Status == model.OrderStatusPendingPayment && o.CreatedAt.Before(createdBefore) {
				o := o
				out = append(out, &o)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r orderStore) ListByBuyer(ctx context.Context, buyerID int64, page, pageSize int) ([]*model.AuctionOrder, int64, error) {
	var (
		out   []*model.AuctionOrder
		total int64
	)
	err := r.with(func(st *state) error {
		var rows []model.AuctionOrder
		for _, o := range st.orders {
			if o.BuyerID == buyerID {
				rows = append(rows, o)
			}
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
		total = int64(len(rows))
		for _, o := range paginate(rows, page, pageSize) {
			o := o
			out = append(out, &o)
		}
		return nil
	})
	return out, total, err
}

type resultStore struct{ *repos }

func (r resultStore) Create(ctx context.Context, result *model.AuctionResult) error {
	return r.with(func(st *state) error {
		key := resultKey{sessionID: result.SessionID, itemID: result.ItemID}
		if _, ok := st.results[key]; ok {
			return auctionerr.ErrAlreadySettled
		}
		result.ID = st.nextID("auction_result")
		if result.CreatedAt.IsZero() {
			result.CreatedAt = time.Now()
		}
		st.results[key] = *result
		return nil
	})
}

func (r resultStore) Get(ctx context.Context, sessionID, itemID int64) (*model.AuctionResult, error) {
	var out *model.AuctionResult
	err := r.with(func(st *state) error {
		if res, ok := st.results[resultKey{sessionID: sessionID, itemID: itemID}]; ok {
			out = &res
		}
		return nil
	})
	return out, err
}

func (r resultStore) Exists(ctx context.Context, sessionID, itemID int64) (bool, error) {
	res, err := r.Get(ctx, sessionID, itemID)
	return res != nil, err
}

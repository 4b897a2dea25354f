// Package memory implements the repository contracts in process. Writes are
// serialised behind one mutex; a transaction works on a copy of the state and
// publishes it only when fn succeeds.
package memory

import (
	"context"
	"sync"

	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

type resultKey struct {
	sessionID int64
	itemID    int64
}

type state struct {
	accounts     map[int64]model.DepositAccount // by user id
	transactions map[int64]model.DepositTransaction
	items        map[int64]model.AuctionItem
	sessions     map[int64]model.AuctionSession
	bids         []model.AuctionBid
	configs      map[int64]model.BidIncrementConfig
	rules        map[int64][]model.BidIncrementRule // by config id
	orders       map[int64]model.AuctionOrder
	results      map[resultKey]model.AuctionResult
	seq          map[string]int64
}

func newState() *state {
	return &state{
		accounts:     make(map[int64]model.DepositAccount),
		transactions: make(map[int64]model.DepositTransaction),
		items:        make(map[int64]model.AuctionItem),
		sessions:     make(map[int64]model.AuctionSession),
		configs:      make(map[int64]model.BidIncrementConfig),
		rules:        make(map[int64][]model.BidIncrementRule),
		orders:       make(map[int64]model.AuctionOrder),
		results:      make(map[resultKey]model.AuctionResult),
		seq:          make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	c.bids = append([]model.AuctionBid(nil), s.bids...)
	for k, v := range s.configs {
		c.configs[k] = v
	}
	for k, v := range s.rules {
		c.rules[k] = append([]model.BidIncrementRule(nil), v...)
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.results {
		c.results[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

func (s *state) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Store is a repository.Store kept entirely in memory.
type Store struct {
	repos
	mu sync.Mutex
	st *state
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	s := &Store{st: newState()}
	s.repos = repos{store: s}
	return s
}

// Transaction holds the store mutex for the whole of fn. fn must only use
// the tx it is handed; calling back into s would deadlock.
func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(&repos{store: s, tx: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// repos binds the entity stores either to the committed state (tx == nil)
// or to a transaction's working copy.
type repos struct {
	store *Store
	tx    *state
}

func (r *repos) with(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.st)
}

func (r *repos) Accounts() repository.AccountStore { return accountStore{r} }
func (r *repos) Transactions() repository.TransactionStore { return transactionStore{r} }
func (r *repos) Items() repository.ItemStore { return itemStore{r} }
func (r *repos) Sessions() repository.SessionStore { return sessionStore{r} }
func (r *repos) Bids() repository.BidStore { return bidStore{r} }
func (r *repos) Increments() repository.IncrementConfigStore { return incrementStore{r} }
func (r *repos) Orders() repository.OrderStore { return orderStore{r} }
func (r *repos) Results() repository.ResultStore { return resultStore{r} }

func paginate[T any](rows []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		return nil
	}
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return nil
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

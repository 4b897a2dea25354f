package repository

import (
	"context"
	"time"

	"auctionhouse/internal/model"
)

// AccountStore persists deposit accounts. Mutating callers must hold the row
// through GetOrCreateForUpdate inside a transaction.
type AccountStore interface {
	GetByUserID(ctx context.Context, userID int64) (*model.DepositAccount, error)
	GetOrCreate(ctx context.Context, userID int64) (*model.DepositAccount, error)
	GetOrCreateForUpdate(ctx context.Context, userID int64) (*model.DepositAccount, error)
	UpdateBalances(ctx context.Context, account *model.DepositAccount) error
	UpdateStatus(ctx context.Context, userID int64, status string) error
}

// TransactionStore is the append-only deposit ledger.
type TransactionStore interface {
	Create(ctx context.Context, trans *model.DepositTransaction) error
	GetByIDForUpdate(ctx context.Context, id int64) (*model.DepositTransaction, error)
	UpdateReview(ctx context.Context, trans *model.DepositTransaction) error
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.DepositTransaction, int64, error)
}

type ItemStore interface {
	Create(ctx context.Context, item *model.AuctionItem) error
	GetByID(ctx context.Context, id int64) (*model.AuctionItem, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.AuctionItem, error)
	ListBySession(ctx context.Context, sessionID int64) ([]*model.AuctionItem, error)
	UpdateCurrentPriceAndStatus(ctx context.Context, id int64, price int64, status string) error
	UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string) error
}

type SessionStore interface {
	Create(ctx context.Context, session *model.AuctionSession) error
	GetByID(ctx context.Context, id int64) (*model.AuctionSession, error)
	GetBidIncrementConfigID(ctx context.Context, id int64) (*int64, error)
	// UpdateEndTime applies an anti-sniping extension only if the session
	// still has expectedEnd and expectedCount. false means another writer
	// extended, ended or rescheduled it first.
	UpdateEndTime(ctx context.Context, id int64, newEndTime, expectedEnd time.Time, expectedCount int) (bool, error)
	UpdateSchedule(ctx context.Context, id int64, start, end time.Time) error
	MarkCancelled(ctx context.Context, id int64) error
	ListByBidIncrementConfigID(ctx context.Context, configID int64) ([]*model.AuctionSession, error)
	// ListWithOpenItems returns sessions that have started (or were cancelled)
	// and still own items in APPROVED or IN_AUCTION status.
	ListWithOpenItems(ctx context.Context, now time.Time, limit int) ([]*model.AuctionSession, error)
}

type BidStore interface {
	Insert(ctx context.Context, bid *model.AuctionBid) error
	ListValidBidsForItem(ctx context.Context, itemID int64) ([]model.AuctionBid, error)
	MaxBidForUserOnItem(ctx context.Context, itemID, sessionID, userID int64) (int64, error)
}

type IncrementConfigStore interface {
	CreateConfig(ctx context.Context, config *model.BidIncrementConfig) error
	GetConfig(ctx context.Context, configID int64) (*model.BidIncrementConfig, error)
	// GetRules returns the config's tiers ordered by MinAmount.
	GetRules(ctx context.Context, configID int64) ([]model.BidIncrementRule, error)
	ReplaceRules(ctx context.Context, configID int64, rules []model.BidIncrementRule) error
	DeleteConfig(ctx context.Context, configID int64) error
}

// OrderStore doubles as the settlement order sink.
type OrderStore interface {
	Create(ctx context.Context, order *model.AuctionOrder) error
	GetByID(ctx context.Context, id int64) (*model.AuctionOrder, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.AuctionOrder, error)
	UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string) error
	ListOverdue(ctx context.Context, createdBefore time.Time, limit int) ([]*model.AuctionOrder, error)
	ListByBuyer(ctx context.Context, buyerID int64, page, pageSize int) ([]*model.AuctionOrder, int64, error)
}

type ResultStore interface {
	Create(ctx context.Context, result *model.AuctionResult) error
	Get(ctx context.Context, sessionID, itemID int64) (*model.AuctionResult, error)
	Exists(ctx context.Context, sessionID, itemID int64) (bool, error)
}

// Repos groups every store bound to the same connection or transaction.
type Repos interface {
	Accounts() AccountStore
	Transactions() TransactionStore
	Items() ItemStore
	Sessions() SessionStore
	Bids() BidStore
	Increments() IncrementConfigStore
	Orders() OrderStore
	Results() ResultStore
}

// Store runs fn as a single unit of work: every write made through tx commits
// together or not at all. Transactions must not be nested.
type Store interface {
	Repos
	Transaction(ctx context.Context, fn func(tx Repos) error) error
}

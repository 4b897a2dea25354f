package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormStore implements Store on a gorm connection; inside Transaction every
// repository shares the same *gorm.DB transaction handle.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}

func (s *GormStore) Accounts() AccountStore { return NewAccountRepository(s.db) }
func (s *GormStore) Transactions() TransactionStore { return NewTransactionRepository(s.db) }
func (s *GormStore) Items() ItemStore { return NewItemRepository(s.db) }
func (s *GormStore) Sessions() SessionStore { return NewSessionRepository(s.db) }
func (s *GormStore) Bids() BidStore { return NewBidRepository(s.db) }
func (s *GormStore) Increments() IncrementConfigStore { return NewIncrementRepository(s.db) }
func (s *GormStore) Orders() OrderStore { return NewOrderRepository(s.db) }
func (s *GormStore) Results() ResultStore { return NewResultRepository(s.db) }

package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auctionhouse/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// 锁抽象
// ============================================================================
//
// RedisLocker：SETNX + 过期时间，释放时用 Lua 校验 owner，多实例部署使用。
// LocalLocker：进程内按 key 互斥，未启用 Redis 时使用。
//
// 锁粒度：出价和结算共用拍品锁，支付和超时没收共用订单锁。

// Locker hands out exclusive, keyed critical sections. release must be
// called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ItemLockKey serialises everything that moves an item's price or settles it:
// bid admission and settlement share it.
func ItemLockKey(itemID int64) string {
	return fmt.Sprintf("auction:lock:item:%d", itemID)
}

// OrderLockKey guards payment against concurrent forfeiture.
func OrderLockKey(orderID int64) string {
	return fmt.Sprintf("auction:lock:order:%d", orderID)
}

type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	maxRetries    int
}

func NewRedisLocker(client *redis.Client, ttl, retryInterval time.Duration, maxRetries int) *RedisLocker {
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	dl := NewDistributedLock(l.client, key, uuid.NewString(), l.ttl)
	if err := dl.Lock(ctx, l.retryInterval, l.maxRetries); err != nil {
		return nil, err
	}
	return func() {
		// the caller's ctx may already be cancelled
		unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := dl.Unlock(unlockCtx); err != nil {
			logger.Warn("failed to release redis lock", map[string]any{"key": key, "error": err.Error()})
		}
	}, nil
}

// LocalLocker is an in-process Locker for single-instance deployments.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key, s)
		})
	}, nil
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

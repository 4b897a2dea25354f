package job

import (
	"context"
	"time"

	"auctionhouse/pkg/logger"
)

type overdueForfeiter interface {
	ForfeitOverdue(ctx context.Context) (int, error)
}

// OrderTimeoutJob forfeits the deposit of winners who did not pay in time.
type OrderTimeoutJob struct {
	orders   overdueForfeiter
	stopCh   chan struct{}
	interval time.Duration
}

func NewOrderTimeoutJob(orders overdueForfeiter, interval time.Duration) *OrderTimeoutJob {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &OrderTimeoutJob{
		orders:   orders,
		stopCh:   make(chan struct{}),
		interval: interval,
	}
}

func (j *OrderTimeoutJob) Start(ctx context.Context) {
	logger.Info("order timeout job started", map[string]any{"interval": j.interval.String()})

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("order timeout job exiting on context cancel", nil)
			return
		case <-j.stopCh:
			logger.Info("order timeout job stopped", nil)
			return
		case <-ticker.C:
			j.forfeitExpired(ctx)
		}
	}
}

func (j *OrderTimeoutJob) Stop() {
	close(j.stopCh)
}

func (j *OrderTimeoutJob) forfeitExpired(ctx context.Context) int {
	n, err := j.orders.ForfeitOverdue(ctx)
	if err != nil {
		logger.Error("failed to forfeit overdue orders", map[string]any{"error": err.Error()})
		return 0
	}
	if n > 0 {
		logger.Info("overdue orders forfeited", map[string]any{"count": n})
	}
	return n
}

package job

import (
	"context"
	"time"

	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
	"auctionhouse/internal/service"
	"auctionhouse/pkg/logger"
)

type sessionStarter interface {
	StartSession(ctx context.Context, sessionID int64) ([]int64, error)
}

type sessionSettler interface {
	SettleSession(ctx context.Context, sessionID int64) ([]service.ItemSettlement, error)
}

// AuctionScheduleJob moves sessions along the clock: it opens approved items
// of sessions that became active and settles sessions that ended or were
// cancelled while items were still open.
type AuctionScheduleJob struct {
	sessions  repository.SessionStore
	starter   sessionStarter
	settler   sessionSettler
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewAuctionScheduleJob(sessions repository.SessionStore, starter sessionStarter, settler sessionSettler, interval time.Duration) *AuctionScheduleJob {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &AuctionScheduleJob{
		sessions:  sessions,
		starter:   starter,
		settler:   settler,
		stopCh:    make(chan struct{}),
		interval:  interval,
		batchSize: 100,
		now:       time.Now,
	}
}

func (j *AuctionScheduleJob) Start(ctx context.Context) {
	logger.Info("auction schedule job started", map[string]any{"interval": j.interval.String()})

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("auction schedule job exiting on context cancel", nil)
			return
		case <-j.stopCh:
			logger.Info("auction schedule job stopped", nil)
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *AuctionScheduleJob) Stop() {
	close(j.stopCh)
}

// runOnce returns how many sessions it opened and settled.
func (j *AuctionScheduleJob) runOnce(ctx context.Context) (opened, settled int) {
	now := j.now()
	sessions, err := j.sessions.ListWithOpenItems(ctx, now, j.batchSize)
	if err != nil {
		logger.Error("failed to list schedulable sessions", map[string]any{"error": err.Error()})
		return 0, 0
	}

	for _, session := range sessions {
		switch status := session.StatusAt(now); status {
		case model.SessionStatusActive:
			started, err := j.starter.StartSession(ctx, session.ID)
			if err != nil {
				logger.Warn("failed to open session items", map[string]any{"session_id": session.ID, "error": err.Error()})
				continue
			}
			if len(started) > 0 {
				opened++
			}
		case model.SessionStatusEnded, model.SessionStatusCancelled:
			items, err := j.settler.SettleSession(ctx, session.ID)
			if err != nil {
				// partial failures are retried on the next tick
				logger.Error("session settlement incomplete", map[string]any{
					"session_id": session.ID,
					"status":     status,
					"settled":    len(items),
					"error":      err.Error(),
				})
			}
			if len(items) > 0 {
				settled++
			}
		}
	}
	return opened, settled
}

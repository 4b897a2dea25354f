package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auctionhouse/internal/config"
	"auctionhouse/internal/event"
	"auctionhouse/internal/handler"
	"auctionhouse/internal/infrastructure/cache"
	"auctionhouse/internal/infrastructure/database"
	"auctionhouse/internal/infrastructure/lock"
	"auctionhouse/internal/infrastructure/mq"
	"auctionhouse/internal/job"
	"auctionhouse/internal/repository"
	"auctionhouse/internal/repository/memory"
	"auctionhouse/internal/service"
	"auctionhouse/pkg/idgen"
	"auctionhouse/pkg/logger"

	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 加载配置
	cfg := config.LoadConfig(*configPath)
	logger.SetLevel(cfg.Log.Level)

	idgen.Init(1)

	// 存储
	var store repository.Store
	switch cfg.Storage.Driver {
	case "mysql":
		db := database.InitMySQL(&cfg.MySQL)
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal("schema migration failed", map[string]any{"error": err.Error()})
		}
		store = repository.NewGormStore(db)
	default:
		logger.Warn("using in-memory storage, state is lost on restart", nil)
		store = memory.New()
	}

	// 锁与计数器
	var (
		locker  lock.Locker
		counter cache.Counter
	)
	if cfg.Redis.Enabled {
		rdb := cache.InitRedis(&cfg.Redis)
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb,
			time.Duration(cfg.Business.LockTTLSeconds)*time.Second,
			time.Duration(cfg.Business.LockRetryIntervalMs)*time.Millisecond,
			cfg.Business.LockMaxRetries,
		)
		counter = cache.NewRedisCounter(rdb)
	} else {
		locker = lock.NewLocalLocker()
		counter = cache.NewMemoryCounter()
	}

	// 事件投递
	publisher, closeEvents := newPublisher(cfg)
	defer closeEvents()

	ledger := service.NewDepositLedger(store)
	increments := service.NewIncrementService(store)
	lifecycle := service.NewLifecycleService(store, counter)
	if ratio, err := decimal.NewFromString(cfg.Business.DefaultDepositRatio); err == nil {
		lifecycle.SetDefaultDepositRatio(ratio)
	} else {
		logger.Warn("ignoring invalid default deposit ratio", map[string]any{"value": cfg.Business.DefaultDepositRatio})
	}
	bids := service.NewBidService(store, ledger, increments, locker, publisher, counter)
	settlement := service.NewSettlementService(store, ledger, locker, publisher)
	orders := service.NewOrderService(store, ledger, locker, publisher,
		time.Duration(cfg.Business.OrderPayTimeoutMinutes)*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动后台任务
	scheduleInterval := time.Duration(cfg.Business.ScheduleIntervalSeconds) * time.Second
	scheduleJob := job.NewAuctionScheduleJob(store.Sessions(), lifecycle, settlement, scheduleInterval)
	go scheduleJob.Start(ctx)

	orderTimeoutJob := job.NewOrderTimeoutJob(orders, scheduleInterval)
	go orderTimeoutJob.Start(ctx)

	router := handler.SetupRouter(handler.NewHandler(handler.Services{
		Ledger:     ledger,
		Increments: increments,
		Bids:       bids,
		Settlement: settlement,
		Lifecycle:  lifecycle,
		Orders:     orders,
	}))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("http server listening", map[string]any{"port": cfg.Server.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", map[string]any{"error": err.Error()})
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down", nil)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", map[string]any{"error": err.Error()})
	}

	logger.Info("server stopped", nil)
}

// newPublisher builds the event publisher selected by events.driver. The
// returned func flushes pending events and closes the broker connection.
func newPublisher(cfg *config.Config) (event.Publisher, func()) {
	var (
		sink    event.Sink
		closeFn = func() {}
	)
	switch cfg.Events.Driver {
	case "kafka":
		producer := mq.InitKafka(&cfg.Kafka)
		sink = event.NewKafkaSink(producer, cfg.Kafka.Topic.AuctionEvents)
		closeFn = mq.CloseKafka
	case "rabbitmq":
		rabbit := mq.InitRabbitMQ(&cfg.RabbitMQ)
		sink = event.NewRabbitSink(rabbit.Channel, cfg.RabbitMQ.Exchange)
		closeFn = rabbit.Close
	case "log":
		sink = event.LogSink{}
	default:
		return event.Nop{}, closeFn
	}

	dispatcher := event.NewDispatcher(sink, cfg.Events.BufferSize)
	dispatcher.Start()
	return dispatcher, func() {
		dispatcher.Close()
		closeFn()
	}
}

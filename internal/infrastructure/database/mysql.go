package database

import (
	"fmt"
	"time"

	"auctionhouse/internal/config"
	"auctionhouse/internal/model"
	applog "auctionhouse/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 连接
func InitMySQL(cfg *config.MySQLConfig) *gorm.DB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	// TranslateError surfaces unique-index violations as gorm.ErrDuplicatedKey,
	// which the result repository relies on.
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		applog.Fatal("failed to connect to mysql", map[string]any{"host": cfg.Host, "error": err.Error()})
	}

	sqlDB, err := db.DB()
	if err != nil {
		applog.Fatal("failed to get sql.DB", map[string]any{"error": err.Error()})
	}

	// 连接池配置
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := AutoMigrate(db); err != nil {
		applog.Fatal("failed to migrate schema", map[string]any{"error": err.Error()})
	}

	DB = db
	applog.Info("mysql connected", map[string]any{"host": cfg.Host, "database": cfg.Database})
	return db
}

// AutoMigrate 自动迁移表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.DepositAccount{},
		&model.DepositTransaction{},
		&model.BidIncrementConfig{},
		&model.BidIncrementRule{},
		&model.AuctionSession{},
		&model.AuctionItem{},
		&model.AuctionBid{},
		&model.AuctionResult{},
		&model.AuctionOrder{},
	)
}

package mysql

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Client 封裝 GORM DB 實例
type Client struct {
	db *gorm.DB
}

// NewClientContext 建立 MySQL 客戶端 (GORM)，連線失敗時依設定重試
//
// 參數:
//
//	ctx: 取消時停止重試
//	cfg: MySQL 連線配置
//
// 回傳值:
//
//	*Client: 封裝後的 MySQL 客戶端
//	error: 重試次數用完仍無法連線
func NewClientContext(ctx context.Context, cfg Config) (*Client, error) {
	gormConfig := &gorm.Config{
		// 帳本寫入一律自行開啟 Transaction，單筆語句不需再包一層
		SkipDefaultTransaction: true,
		Logger:                 newLogger(cfg.LogLevel),
	}

	attempts := max(cfg.MaxRetries, 1)
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := open(ctx, cfg, gormConfig)
		if err == nil {
			return &Client{db: db}, nil
		}
		lastErr = err
		if i == attempts {
			break
		}
		// 資料庫可能比服務晚啟動 (docker compose)
		log.Printf("mysql: connect failed (attempt %d/%d): %v, retrying in %v", i, attempts, err, cfg.RetryInterval)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("mysql connect canceled: %w", ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, fmt.Errorf("failed to connect to mysql after %d attempts: %w", attempts, lastErr)
}

// NewClientFromDB 包裝已開啟的 *gorm.DB (例如測試使用的其他 dialector)
func NewClientFromDB(db *gorm.DB) *Client {
	return &Client{db: db}
}

// open 建立連線、設定連線池並 Ping 一次
func open(ctx context.Context, cfg Config, gormConfig *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.db: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}
	return db, nil
}

// DB 回傳底層的 *gorm.DB 實例，供 adapter 使用
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Ping 健康檢查
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 關閉資料庫連線
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var logLevels = map[string]logger.LogLevel{
	"silent": logger.Silent,
	"error":  logger.Error,
	"warn":   logger.Warn,
	"info":   logger.Info,
}

// newLogger 根據配置建立 GORM Logger，未知等級只記錄錯誤
func newLogger(level string) logger.Interface {
	logLevel, ok := logLevels[level]
	if !ok {
		logLevel = logger.Error
	}
	return logger.Default.LogMode(logLevel)
}

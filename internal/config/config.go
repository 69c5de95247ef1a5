package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // 容器內可能沒有時區資料

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-mem-finance/pkg/mysql"
)

// LedgerType 使用哪種 Ledger 實作
type LedgerType string

const (
	LedgerTypeMySQL LedgerType = "mysql" // Level 0: 每筆指令一個資料庫交易
	LedgerTypeMutex LedgerType = "mutex" // Level 1: 記憶體 + 每帳戶一把鎖
	LedgerTypeLMAX  LedgerType = "lmax"  // Level 2: 記憶體 + 單一核心迴圈
)

type LedgerConfig struct {
	Type LedgerType `yaml:"type"`
	// 事件 outbox 保留筆數
	EventCapacity int `yaml:"event_capacity"`
	// 關閉時把記憶體帳本寫回 MySQL
	CheckpointOnShutdown bool `yaml:"checkpoint_on_shutdown"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type WALConfig struct {
	Path  string `yaml:"path"`
	Fsync bool   `yaml:"fsync"`
}

// PostgresConfig DSN 為空時不啟用事件封存
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// ClockConfig 判斷「本月」使用的時區
type ClockConfig struct {
	Timezone string `yaml:"timezone"`
}

type Config struct {
	Ledger   LedgerConfig   `yaml:"ledger"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	HTTP     HTTPConfig     `yaml:"http"`
	WAL      WALConfig      `yaml:"wal"`
	MySQL    mysql.Config   `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	Clock    ClockConfig    `yaml:"clock"`
}

// Load 讀取 YAML 設定並補全預設值
//
// 參數:
//
//	path: 設定檔路徑
//
// 回傳:
//
//	*Config: 設定
//	error: 讀取或格式錯誤
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 內容
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Ledger.Type == "" {
		c.Ledger.Type = LedgerTypeMutex
	}
	if c.Ledger.EventCapacity == 0 {
		c.Ledger.EventCapacity = 1024
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":50051"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8081"
	}
	if c.WAL.Path == "" {
		c.WAL.Path = "wal.log"
	}
	if c.Clock.Timezone == "" {
		c.Clock.Timezone = "UTC"
	}
	// 補全 MySQL 預設配置 (如果 yaml 沒寫)
	c.MySQL.SetDefaults()
}

func (c *Config) validate() error {
	switch c.Ledger.Type {
	case LedgerTypeMySQL:
		if !c.MySQLEnabled() {
			return fmt.Errorf("ledger type %q requires mysql.host", c.Ledger.Type)
		}
	case LedgerTypeMutex, LedgerTypeLMAX:
	default:
		return fmt.Errorf("invalid ledger type %q", c.Ledger.Type)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// MySQLEnabled 是否設定了 MySQL
func (c *Config) MySQLEnabled() bool {
	return c.MySQL.Host != ""
}

// Location 時區
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Clock.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid clock.timezone %q: %w", c.Clock.Timezone, err)
	}
	return loc, nil
}

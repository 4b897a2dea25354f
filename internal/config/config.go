package config

import (
	"fmt"
	"strings"

	"auctionhouse/pkg/logger"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Events   EventsConfig   `mapstructure:"events"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // mysql | memory
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	AuctionEvents string `mapstructure:"auction_events"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type EventsConfig struct {
	Driver     string `mapstructure:"driver"` // kafka | rabbitmq | log | none
	BufferSize int    `mapstructure:"buffer_size"`
}

type BusinessConfig struct {
	DefaultDepositRatio     string `mapstructure:"default_deposit_ratio"`
	OrderPayTimeoutMinutes  int    `mapstructure:"order_pay_timeout_minutes"`
	ScheduleIntervalSeconds int    `mapstructure:"schedule_interval_seconds"`
	LockTTLSeconds          int    `mapstructure:"lock_ttl_seconds"`
	LockRetryIntervalMs     int    `mapstructure:"lock_retry_interval_ms"`
	LockMaxRetries          int    `mapstructure:"lock_max_retries"`
}

var GlobalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("kafka.topic.auction_events", "auction-events")
	v.SetDefault("rabbitmq.exchange", "auction.events")
	v.SetDefault("events.driver", "log")
	v.SetDefault("events.buffer_size", 1024)
	v.SetDefault("business.default_deposit_ratio", "0.10")
	v.SetDefault("business.order_pay_timeout_minutes", 1440)
	v.SetDefault("business.schedule_interval_seconds", 5)
	v.SetDefault("business.lock_ttl_seconds", 10)
	v.SetDefault("business.lock_retry_interval_ms", 50)
	v.SetDefault("business.lock_max_retries", 40)
}

// Load reads the YAML file at configPath. AUCTION_ prefixed environment
// variables override file values, e.g. AUCTION_MYSQL_HOST.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AUCTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", configPath, err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return config, nil
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	config, err := Load(configPath)
	if err != nil {
		logger.Fatal("failed to load config", map[string]any{"path": configPath, "error": err.Error()})
	}
	GlobalConfig = config
	return config
}

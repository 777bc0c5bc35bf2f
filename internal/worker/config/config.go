package config

import (
	"fmt"

	"dex-arb/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config 定义整个配置的结构
type Config struct {
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Chains        []ChainConfig       `mapstructure:"chains"`
	Solana        SolanaConfig        `mapstructure:"solana"`
	Evm           EvmConfig           `mapstructure:"evm"`
	Okx           OkxConfig           `mapstructure:"okx"`
	Bybit         BybitConfig         `mapstructure:"bybit"`
	Lark          LarkConfig          `mapstructure:"lark"`
	Scanner       ScannerConfig       `mapstructure:"scanner"`
	Executor      ExecutorConfig      `mapstructure:"executor"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Monitor       MonitorConfig       `mapstructure:"monitor"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers             string `mapstructure:"brokers"`
	TopicSwap           string `mapstructure:"topic_swap"`
	StrategyTopicPrefix string `mapstructure:"strategy_topic_prefix"`
	GroupID             string `mapstructure:"group_id"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ElasticsearchConfig struct {
	Addresses      []string `mapstructure:"addresses"`
	Username       string   `mapstructure:"username"`
	Password       string   `mapstructure:"password"`
	SwapsIndexName string   `mapstructure:"swaps_index_name"`
}

// ChainConfig 单条EVM链的接入配置
type ChainConfig struct {
	ChainID        uint64 `mapstructure:"chain_id"`
	WssURL         string `mapstructure:"wss_url"`
	RpcURL         string `mapstructure:"rpc_url"`
	ExplorerURL    string `mapstructure:"explorer_url"`
	NativeSymbol   string `mapstructure:"native_symbol"`
	NativeDecimals uint8  `mapstructure:"native_decimals"`
}

type SolanaConfig struct {
	RpcURL string `mapstructure:"rpc_url"`
	Wallet string `mapstructure:"wallet"`
}

type EvmConfig struct {
	Wallet string `mapstructure:"wallet"`
}

type OkxConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	SecretKey  string `mapstructure:"secret_key"`
	Passphrase string `mapstructure:"passphrase"`
	RateLimit  int    `mapstructure:"rate_limit"`
	Timeout    int    `mapstructure:"timeout"`
}

type BybitConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	RateLimit int    `mapstructure:"rate_limit"`
	Timeout   int    `mapstructure:"timeout"`
}

// LarkConfig Lark 配置
type LarkConfig struct {
	Webhook string `mapstructure:"webhook"`
}

// LogConfig Log 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ScannerConfig struct {
	MinSwapSizeUsd     float64 `mapstructure:"min_swap_size_usd"`
	SpreadThresholdBps int     `mapstructure:"spread_threshold_bps"`
	StrategyTypes      []string `mapstructure:"strategy_types"`
}

type ExecutorConfig struct {
	MaxRetries int    `mapstructure:"max_retries"`
	LegTimeout int    `mapstructure:"leg_timeout"`
	Slippage   string `mapstructure:"slippage"`
}

type WorkerConfig struct {
	WorkerNum int `mapstructure:"worker_num"`
}

type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

func InitConfig() Config {
	var config Config

	viper.SetConfigName("config.worker")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config/")

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	if err := mapstructure.Decode(viper.AllSettings(), &config); err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	applyDefaults(&config)
	return config
}

func applyDefaults(config *Config) {
	if config.Scanner.MinSwapSizeUsd == 0 {
		config.Scanner.MinSwapSizeUsd = 50
	}
	if config.Scanner.SpreadThresholdBps == 0 {
		config.Scanner.SpreadThresholdBps = 20
	}
	if config.Executor.MaxRetries < 1 {
		config.Executor.MaxRetries = 5
	}
	if config.Executor.LegTimeout == 0 {
		config.Executor.LegTimeout = 5
	}
	if config.Executor.Slippage == "" {
		config.Executor.Slippage = "0.01"
	}
	if config.Worker.WorkerNum == 0 {
		config.Worker.WorkerNum = 4
	}
	if config.Kafka.TopicSwap == "" {
		config.Kafka.TopicSwap = "swap-events"
	}
	if config.Kafka.StrategyTopicPrefix == "" {
		config.Kafka.StrategyTopicPrefix = "strategy-"
	}
	if len(config.Scanner.StrategyTypes) == 0 {
		config.Scanner.StrategyTypes = []string{"arbitrage"}
	}
}

func WatchConfig(config *Config) {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := InitConfig()
		*config = newConfig
		logger.SetLogLevel(config.Log.Level)
	})
}

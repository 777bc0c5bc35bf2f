package config

import (
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)

	if cfg.Scanner.MinSwapSizeUsd != 50 {
		t.Errorf("min_swap_size_usd default = %v, want 50", cfg.Scanner.MinSwapSizeUsd)
	}
	if cfg.Scanner.SpreadThresholdBps != 20 {
		t.Errorf("spread_threshold_bps default = %v, want 20", cfg.Scanner.SpreadThresholdBps)
	}
	if cfg.Executor.MaxRetries != 5 {
		t.Errorf("max_retries default = %v, want 5", cfg.Executor.MaxRetries)
	}
	if cfg.Kafka.TopicSwap != "swap-events" {
		t.Errorf("topic_swap default = %v, want swap-events", cfg.Kafka.TopicSwap)
	}
	if cfg.Kafka.StrategyTopicPrefix != "strategy-" {
		t.Errorf("strategy_topic_prefix default = %v, want strategy-", cfg.Kafka.StrategyTopicPrefix)
	}
	if len(cfg.Scanner.StrategyTypes) != 1 || cfg.Scanner.StrategyTypes[0] != "arbitrage" {
		t.Errorf("strategy_types default = %v, want [arbitrage]", cfg.Scanner.StrategyTypes)
	}
}

func TestApplyDefaultsRejectsNegativeRetries(t *testing.T) {
	var cfg Config
	cfg.Executor.MaxRetries = -3
	applyDefaults(&cfg)

	if cfg.Executor.MaxRetries != 5 {
		t.Errorf("max_retries = %v, want 5 for negative config", cfg.Executor.MaxRetries)
	}
}

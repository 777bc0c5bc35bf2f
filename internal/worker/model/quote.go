package model

import "github.com/shopspring/decimal"

// ArbQuote 单个候选池的报价与价差
type ArbQuote struct {
	PoolID        string          `json:"poolId"`
	PoolAddress   string          `json:"poolAddress"`
	ChainID       uint64          `json:"chainId"`
	FromToken     string          `json:"fromToken"`
	ToToken       string          `json:"toToken"`
	FromDecimals  uint8           `json:"fromDecimals"`
	ToDecimals    uint8           `json:"toDecimals"`
	AmountIn      string          `json:"amountIn"`  // 原始整数单位
	AmountOut     string          `json:"amountOut"` // 原始整数单位
	SpreadPercent decimal.Decimal `json:"spreadPercent"`
	SpreadUsd     decimal.Decimal `json:"spreadUsd"`
	Profitable    bool            `json:"profitable"`
}

// 扫描结论
const (
	ScanOutcomeBelowMinSize  = "below_min_size"
	ScanOutcomeUnclassified  = "unclassified"
	ScanOutcomeNoValidQuotes = "no_valid_quotes"
	ScanOutcomeNotProfitable = "not_profitable"
	ScanOutcomeProfitable    = "profitable"
)

// ScanResult 一次价差扫描的结论
type ScanResult struct {
	Outcome         string          `json:"outcome"`
	StrategyID      string          `json:"strategyId,omitempty"`
	TriggerPoolID   string          `json:"triggerPoolId,omitempty"`
	BestQuote       *ArbQuote       `json:"bestQuote,omitempty"`
	ConfirmedSpread decimal.Decimal `json:"confirmedSpread"`
	Quotes          []ArbQuote      `json:"quotes,omitempty"`
}

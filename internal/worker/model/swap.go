package model

// DecodedSwapEvent 由区块日志解码得到的单笔swap。
// 金额为有符号256位整数的十进制字符串，负值表示池子付出该代币。
type DecodedSwapEvent struct {
	ChainID         uint64 `json:"chainId"`
	BlockNumber     uint64 `json:"blockNumber"`
	BlockHash       string `json:"blockHash"`
	BlockTimestamp  int64  `json:"blockTimestamp"`
	Timestamp       int64  `json:"timestamp"` // 解码时刻，毫秒
	PoolAddress     string `json:"poolAddress"`
	SenderAddress   string `json:"senderAddress"`
	Token0Amount    string `json:"token0Amount"`
	Token1Amount    string `json:"token1Amount"`
	Dex             string `json:"dex"`
	SqrtPriceX96    string `json:"sqrtPriceX96,omitempty"`
}

// 交易方向与USD估值分类
const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"

	SizeClassStable       = "stable"       // 稳定币一侧直接计USD
	SizeClassOracle       = "oracle"       // 主流币按现货价计USD
	SizeClassUnclassified = "unclassified" // 无法估值，不参与策略路由
)

// TokenSide 补全后的单边代币信息
type TokenSide struct {
	ID              string `json:"id"`
	Symbol          string `json:"symbol"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	Decimals        uint8  `json:"decimals"`
	Amount          string `json:"amount"`
	AmountFormatted string `json:"amountFormatted"`
	IsStable        bool   `json:"isStable"`
}

// SwapAnalysis USD规模与方向分析
type SwapAnalysis struct {
	SizeClass   string `json:"sizeClass"`
	StableToken string `json:"stableToken,omitempty"`
	PricedToken string `json:"pricedToken,omitempty"`
	TokenPrice  string `json:"tokenPrice,omitempty"`
	OtherToken  string `json:"otherToken,omitempty"`
	SwapSizeUsd string `json:"swapSizeUsd,omitempty"`
	Direction   string `json:"direction,omitempty"`
}

// PoolRef 事件携带的池子摘要
type PoolRef struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	DexName string `json:"dexName"`
	Fee     int    `json:"fee"`
}

// StrategyRef 池子归属的策略
type StrategyRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// EnrichedSwapEvent 目录补全后的swap事件
type EnrichedSwapEvent struct {
	DecodedSwapEvent

	Pool     PoolRef      `json:"pool"`
	Token0   TokenSide    `json:"token0"`
	Token1   TokenSide    `json:"token1"`
	Analysis SwapAnalysis `json:"analysis"`
	Strategy *StrategyRef `json:"strategy,omitempty"`
}

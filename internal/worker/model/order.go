package model

import (
	"time"

	"gorm.io/datatypes"
)

// 订单状态，只允许PENDING一次性写入终态
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusFailed    = "FAILED"
)

// NetworkKind 腿所在网络类型，显式分派，不靠字段探测
type NetworkKind string

const (
	NetworkEVM    NetworkKind = "EVM"
	NetworkSolana NetworkKind = "Solana"
)

// LegParams 单腿兑换参数
type LegParams struct {
	Kind         NetworkKind `json:"kind"`
	ChainID      uint64      `json:"chainId"`
	Wallet       string      `json:"wallet"`
	FromToken    string      `json:"fromToken"`
	ToToken      string      `json:"toToken"`
	FromDecimals uint8       `json:"fromDecimals"`
	ToDecimals   uint8       `json:"toDecimals"`
	Amount       string      `json:"amount"` // 原始整数单位
	Slippage     string      `json:"slippage"`
}

// OrderParams 双腿订单参数
type OrderParams struct {
	Ticker string        `json:"ticker"`
	Legs   [2]LegParams  `json:"legs"`
}

// LegResult 单腿执行结果
type LegResult struct {
	TxID        string            `json:"txId,omitempty"`
	Status      string            `json:"status,omitempty"`
	AmountOut   string            `json:"amountOut,omitempty"`
	Deltas      map[string]string `json:"deltas,omitempty"` // token地址 -> 余额变化
	GasCost     string            `json:"gasCost,omitempty"`
	GasCostUsd  string            `json:"gasCostUsd,omitempty"`
	ElapsedMs   int64             `json:"elapsedMs"`
	ExplorerURL string            `json:"explorerUrl,omitempty"`
	Attempts    int               `json:"attempts"`
	Error       string            `json:"error,omitempty"`
}

// OrderResult 订单执行结果，含两腿各自的实际结果
type OrderResult struct {
	Legs  [2]*LegResult `json:"legs"`
	Error string        `json:"error,omitempty"`
}

type Order struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	Params    datatypes.JSON `gorm:"column:params" json:"params"`
	Status    string         `gorm:"column:status" json:"status"`
	TxHash    string         `gorm:"column:tx_hash" json:"tx_hash"`
	Result    datatypes.JSON `gorm:"column:result" json:"result"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}

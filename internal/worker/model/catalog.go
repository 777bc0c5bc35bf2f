package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// 目录表：代币、代币地址、DEX、策略、池子。由外部控制面维护，worker只读。

type Token struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	Symbol    string         `gorm:"column:symbol" json:"symbol"`
	Name      string         `gorm:"column:name" json:"name"`
	Stable    bool           `gorm:"column:stable" json:"stable"`
	Addresses []TokenAddress `gorm:"foreignKey:TokenID" json:"addresses"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Token) TableName() string {
	return "tokens"
}

// DecimalsOn 返回该代币在指定链上的精度，未登记则按18处理
func (t Token) DecimalsOn(chainID uint64) uint8 {
	for _, addr := range t.Addresses {
		if addr.ChainID == chainID {
			return addr.Decimals
		}
	}
	return 18
}

// AddressOn 返回该代币在指定链上的地址
func (t Token) AddressOn(chainID uint64) string {
	for _, addr := range t.Addresses {
		if addr.ChainID == chainID {
			return addr.Address
		}
	}
	return ""
}

type TokenAddress struct {
	ID       string `gorm:"column:id;primaryKey" json:"id"`
	TokenID  string `gorm:"column:token_id" json:"token_id"`
	Address  string `gorm:"column:address" json:"address"`
	ChainID  uint64 `gorm:"column:chain_id" json:"chain_id"`
	Decimals uint8  `gorm:"column:decimals" json:"decimals"`
}

func (TokenAddress) TableName() string {
	return "token_addresses"
}

type Dex struct {
	ID              string         `gorm:"column:id;primaryKey" json:"id"`
	Name            string         `gorm:"column:name" json:"name"`
	SwapTopic       string         `gorm:"column:swap_topic" json:"swap_topic"`
	LiquidityTopics pq.StringArray `gorm:"column:liquidity_topics;type:text[]" json:"liquidity_topics"`
}

func (Dex) TableName() string {
	return "dexes"
}

type Strategy struct {
	ID   string `gorm:"column:id;primaryKey" json:"id"`
	Type string `gorm:"column:type" json:"type"`
}

func (Strategy) TableName() string {
	return "strategies"
}

type Pool struct {
	ID            string         `gorm:"column:id;primaryKey" json:"id"`
	PoolAddress   string         `gorm:"column:pool_address" json:"pool_address"`
	ChainID       uint64         `gorm:"column:chain_id" json:"chain_id"`
	Token0ID      string         `gorm:"column:token0_id" json:"token0_id"`
	Token0Address string         `gorm:"column:token0_address" json:"token0_address"`
	Token1ID      string         `gorm:"column:token1_id" json:"token1_id"`
	Token1Address string         `gorm:"column:token1_address" json:"token1_address"`
	DexID         string         `gorm:"column:dex_id" json:"dex_id"`
	StrategyID    *string        `gorm:"column:strategy_id" json:"strategy_id"`
	Fee           int            `gorm:"column:fee" json:"fee"`
	Metadata      datatypes.JSON `gorm:"column:metadata" json:"metadata"`

	Token0   Token     `gorm:"foreignKey:Token0ID" json:"token0"`
	Token1   Token     `gorm:"foreignKey:Token1ID" json:"token1"`
	Dex      Dex       `gorm:"foreignKey:DexID" json:"dex"`
	Strategy *Strategy `gorm:"foreignKey:StrategyID" json:"strategy"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Pool) TableName() string {
	return "pools"
}

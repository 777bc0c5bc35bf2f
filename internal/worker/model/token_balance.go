package model

import "time"

// TokenBalance 钱包在某链上的代币余额与授权记录。
// 数值列为numeric(78,0)，以十进制字符串承载。
type TokenBalance struct {
	ID               string    `gorm:"column:id;primaryKey" json:"id"`
	Address          string    `gorm:"column:address" json:"address"`
	ChainID          uint64    `gorm:"column:chain_id" json:"chain_id"`
	Balance          string    `gorm:"column:balance" json:"balance"`
	CurrentAllowance string    `gorm:"column:current_allowance" json:"current_allowance"`
	MinAllowance     string    `gorm:"column:min_allowance" json:"min_allowance"`
	Decimals         uint8     `gorm:"column:decimals" json:"decimals"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (TokenBalance) TableName() string {
	return "token_balances"
}

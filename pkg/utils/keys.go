package utils

import "fmt"

func PoolKey(chainId uint64, poolAddress string) string {
	return fmt.Sprintf("dex_arb:pool:%d:%s", chainId, poolAddress)
}

func StrategyPoolsKey(strategyId string) string {
	return fmt.Sprintf("dex_arb:strategy_pools:%s", strategyId)
}

func SpotPriceKey(symbol string) string {
	return fmt.Sprintf("dex_arb:price:%s_USDT", symbol)
}

func TokenBalanceKey(chainId uint64, tokenAddress string) string {
	return fmt.Sprintf("dex_arb:token_balance:%d:%s", chainId, tokenAddress)
}

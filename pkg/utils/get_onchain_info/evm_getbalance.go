package onchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// 执行订单前置检查与成交后余额刷新需要的链上读取

// ERC20 函数选择器
var (
	balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31} // balanceOf(address)
	allowanceSelector = []byte{0xdd, 0x62, 0xed, 0x3e} // allowance(address,address)
	decimalsSelector  = []byte{0x31, 0x3c, 0xe5, 0x67} // decimals()
)

// GetTokenBalance 查询ERC20代币余额
func GetTokenBalance(ctx context.Context, client *ethclient.Client, tokenAddress, walletAddress string) (*big.Int, error) {
	token := common.HexToAddress(tokenAddress)
	callData := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(common.HexToAddress(walletAddress).Bytes(), 32)...)

	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf failed for %s: %w", tokenAddress, err)
	}
	return parseUint256Result(result)
}

// GetAllowance 查询ERC20授权额度
func GetAllowance(ctx context.Context, client *ethclient.Client, tokenAddress, ownerAddress, spenderAddress string) (*big.Int, error) {
	token := common.HexToAddress(tokenAddress)
	callData := append([]byte{}, allowanceSelector...)
	callData = append(callData, common.LeftPadBytes(common.HexToAddress(ownerAddress).Bytes(), 32)...)
	callData = append(callData, common.LeftPadBytes(common.HexToAddress(spenderAddress).Bytes(), 32)...)

	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call allowance failed for %s: %w", tokenAddress, err)
	}
	return parseUint256Result(result)
}

// GetTokenDecimals 查询ERC20精度
func GetTokenDecimals(ctx context.Context, client *ethclient.Client, tokenAddress string) (uint8, error) {
	token := common.HexToAddress(tokenAddress)

	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: append([]byte{}, decimalsSelector...),
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("call decimals failed for %s: %w", tokenAddress, err)
	}
	v, err := parseUint256Result(result)
	if err != nil {
		return 0, err
	}
	return uint8(v.Uint64()), nil
}

// GetNativeBalance 查询原生代币余额
func GetNativeBalance(ctx context.Context, client *ethclient.Client, walletAddress string) (*big.Int, error) {
	balance, err := client.BalanceAt(ctx, common.HexToAddress(walletAddress), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get native balance: %w", err)
	}
	return balance, nil
}

// parseUint256Result 解析合约调用返回的uint256
func parseUint256Result(data []byte) (*big.Int, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("invalid result data length: %d", len(data))
	}
	// 取最后32字节作为数值
	return new(big.Int).SetBytes(data[len(data)-32:]), nil
}

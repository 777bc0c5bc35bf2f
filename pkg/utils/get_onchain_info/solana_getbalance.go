package onchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// GetSolanaTokenBalance 查询SPL代币余额（按mint聚合所有token account）
func GetSolanaTokenBalance(ctx context.Context, client *rpc.Client, mintAddress, walletAddress string) (*big.Int, uint8, error) {
	ownerPubKey, err := solana.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return nil, 0, fmt.Errorf("无效的钱包地址: %w", err)
	}

	mintPubKey, err := solana.PublicKeyFromBase58(mintAddress)
	if err != nil {
		return nil, 0, fmt.Errorf("无效的mint地址: %w", err)
	}

	tokenAccounts, err := client.GetTokenAccountsByOwner(
		ctx,
		ownerPubKey,
		&rpc.GetTokenAccountsConfig{
			Mint: &mintPubKey,
		},
		&rpc.GetTokenAccountsOpts{
			Encoding: solana.EncodingBase64,
		},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("获取Token账户失败: %w", err)
	}

	total := new(big.Int)
	var decimals uint8
	for _, account := range tokenAccounts.Value {
		balance, err := client.GetTokenAccountBalance(ctx, account.Pubkey, rpc.CommitmentFinalized)
		if err != nil {
			continue
		}
		amount, ok := new(big.Int).SetString(balance.Value.Amount, 10)
		if !ok {
			continue
		}
		total.Add(total, amount)
		decimals = balance.Value.Decimals
	}

	return total, decimals, nil
}

// GetSOLBalance 查询SOL余额（lamports）
func GetSOLBalance(ctx context.Context, client *rpc.Client, walletAddress string) (*big.Int, error) {
	pubKey, err := solana.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return nil, fmt.Errorf("无效的钱包地址: %w", err)
	}

	accountInfo, err := client.GetAccountInfo(ctx, pubKey)
	if err != nil {
		return nil, fmt.Errorf("获取账户信息失败: %w", err)
	}

	return new(big.Int).SetUint64(accountInfo.Value.Lamports), nil
}

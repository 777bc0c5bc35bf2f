package executor

import (
	"context"
	"fmt"
	"math/big"

	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/repository"
	"dex-arb/pkg/okx"
	onchain "dex-arb/pkg/utils/get_onchain_info"
)

// OnchainBalanceReader 直接读链上余额与授权，结算阶段刷新余额记录用。
// Balance读取leg.FromToken在leg.Wallet下的余额。
type OnchainBalanceReader struct {
	repo repository.Repository
}

func NewOnchainBalanceReader(repo repository.Repository) *OnchainBalanceReader {
	return &OnchainBalanceReader{repo: repo}
}

func (r *OnchainBalanceReader) Balance(ctx context.Context, leg model.LegParams) (*big.Int, error) {
	if leg.Kind == model.NetworkSolana {
		balance, _, err := onchain.GetSolanaTokenBalance(ctx, r.repo.GetSolanaClient(), leg.FromToken, leg.Wallet)
		return balance, err
	}

	client, err := r.repo.GetEvmClient(leg.ChainID)
	if err != nil {
		return nil, err
	}
	return onchain.GetTokenBalance(ctx, client, leg.FromToken, leg.Wallet)
}

func (r *OnchainBalanceReader) Allowance(ctx context.Context, leg model.LegParams) (*big.Int, error) {
	// Solana的SPL转账不走授权
	if leg.Kind == model.NetworkSolana {
		return nil, nil
	}

	spender, ok := okx.SpenderAddresses[leg.ChainID]
	if !ok {
		return nil, fmt.Errorf("no aggregator spender known for chain %d", leg.ChainID)
	}

	client, err := r.repo.GetEvmClient(leg.ChainID)
	if err != nil {
		return nil, err
	}
	return onchain.GetAllowance(ctx, client, leg.FromToken, leg.Wallet, spender)
}

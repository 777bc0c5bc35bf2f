package executor

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/dao"
	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/monitor"
	"dex-arb/internal/worker/service"
	"dex-arb/pkg/okx"
	"dex-arb/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Swapper 兑换执行通道，生产实现为OKX聚合器客户端
type Swapper interface {
	ExecuteSwap(ctx context.Context, params okx.SwapParams) (*okx.SwapResult, error)
}

// BalanceReader 链上余额与授权读取，结算阶段刷新记录用。
// Solana腿没有授权概念，Allowance返回(nil, nil)。
type BalanceReader interface {
	Balance(ctx context.Context, leg model.LegParams) (*big.Int, error)
	Allowance(ctx context.Context, leg model.LegParams) (*big.Int, error)
}

// Notifier 成交通知
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// SwapOrchestrator 双腿订单执行器。两腿并发执行、各自有限次重试，
// 一腿失败不回滚另一腿，只如实记录。订单终态只写一次。
type SwapOrchestrator struct {
	cfg        config.ExecutorConfig
	chains     map[uint64]config.ChainConfig
	swapper    Swapper
	balances   BalanceReader
	orderDAO   dao.OrderDAO
	balanceDAO dao.TokenBalanceDAO
	pricer     service.TokenPricer
	notifier   Notifier
	tl         *zap.Logger
}

func NewSwapOrchestrator(
	cfg config.ExecutorConfig,
	chains []config.ChainConfig,
	swapper Swapper,
	balances BalanceReader,
	orderDAO dao.OrderDAO,
	balanceDAO dao.TokenBalanceDAO,
	pricer service.TokenPricer,
	notifier Notifier,
	logger *zap.Logger,
) *SwapOrchestrator {
	chainMap := make(map[uint64]config.ChainConfig, len(chains))
	for _, c := range chains {
		chainMap[c.ChainID] = c
	}
	// 重试次数下限1，否则单腿循环一次都不跑
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &SwapOrchestrator{
		cfg:        cfg,
		chains:     chainMap,
		swapper:    swapper,
		balances:   balances,
		orderDAO:   orderDAO,
		balanceDAO: balanceDAO,
		pricer:     pricer,
		notifier:   notifier,
		tl:         logger,
	}
}

// Execute 执行一张双腿订单，返回完整执行结果
func (o *SwapOrchestrator) Execute(ctx context.Context, params model.OrderParams) (*model.OrderResult, error) {
	paramsJSON, err := sonic.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal order params: %w", err)
	}

	order := &model.Order{
		ID:        uuid.NewString(),
		Params:    paramsJSON,
		Status:    model.OrderStatusPending,
		CreatedAt: time.Now(),
	}
	if err := o.orderDAO.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// 预检：任一腿余额或授权不足就整单放弃，不发任何兑换请求
	if err := o.preflight(ctx, params); err != nil {
		result := &model.OrderResult{Error: err.Error()}
		o.finalize(ctx, order, params, result, model.OrderStatusFailed)
		o.report(ctx, order.ID, params, result, model.OrderStatusFailed)
		o.tl.Warn("❌ order preflight failed", zap.String("order_id", order.ID), zap.Error(err))
		return result, nil
	}

	// 两腿并发执行
	result := &model.OrderResult{}
	var wg conc.WaitGroup
	for i := range params.Legs {
		idx := i
		wg.Go(func() {
			result.Legs[idx] = o.executeLeg(ctx, params.Legs[idx])
		})
	}
	wg.Wait()

	status := model.OrderStatusCompleted
	for i, leg := range result.Legs {
		if leg.Error != "" {
			status = model.OrderStatusFailed
			if result.Error == "" {
				result.Error = fmt.Sprintf("leg%d failed: %s", i+1, leg.Error)
			}
		}
	}

	o.settle(ctx, params, result)
	o.finalize(ctx, order, params, result, status)
	o.report(ctx, order.ID, params, result, status)

	return result, nil
}

// preflight 逐腿核对余额与授权记录，不满足立即整单失败，不碰链。
// 记录由结算阶段维护，缺记录视同余额不足。
func (o *SwapOrchestrator) preflight(ctx context.Context, params model.OrderParams) error {
	for _, leg := range params.Legs {
		amount, ok := new(big.Int).SetString(leg.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("leg on chain %d has bad amount %q", leg.ChainID, leg.Amount)
		}

		record, err := o.balanceDAO.Find(ctx, leg.ChainID, leg.FromToken)
		if err != nil {
			return fmt.Errorf("read balance record on chain %d: %w", leg.ChainID, err)
		}
		if record == nil {
			return fmt.Errorf("no balance record for token %s on chain %d", leg.FromToken, leg.ChainID)
		}

		balance, ok := new(big.Int).SetString(record.Balance, 10)
		if !ok {
			return fmt.Errorf("bad balance record %q for token %s", record.Balance, leg.FromToken)
		}
		if balance.Cmp(amount) < 0 {
			return fmt.Errorf("insufficient balance on chain %d: have %s, need %s", leg.ChainID, balance, amount)
		}

		// Solana的SPL转账不走授权
		if leg.Kind == model.NetworkSolana {
			continue
		}
		allowance, ok := new(big.Int).SetString(record.CurrentAllowance, 10)
		if !ok {
			return fmt.Errorf("bad allowance record %q for token %s", record.CurrentAllowance, leg.FromToken)
		}
		if allowance.Cmp(amount) < 0 {
			return fmt.Errorf("insufficient allowance on chain %d: have %s, need %s", leg.ChainID, allowance, amount)
		}
	}
	return nil
}

// executeLeg 单腿执行，固定次数重试，不做退避
func (o *SwapOrchestrator) executeLeg(ctx context.Context, leg model.LegParams) *model.LegResult {
	start := time.Now()
	result := &model.LegResult{}

	swapParams := okx.SwapParams{
		ChainID:   leg.ChainID,
		FromToken: leg.FromToken,
		ToToken:   leg.ToToken,
		Amount:    leg.Amount,
		Slippage:  leg.Slippage,
		Wallet:    leg.Wallet,
	}

	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		result.Attempts = attempt

		legCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.LegTimeout)*time.Second)
		swapResult, err := o.swapper.ExecuteSwap(legCtx, swapParams)
		cancel()

		if err != nil {
			lastErr = err
			monitor.LegRetries.WithLabelValues(string(leg.Kind)).Inc()
			o.tl.Warn("⚠️ swap leg attempt failed",
				zap.String("kind", string(leg.Kind)),
				zap.Uint64("chain_id", leg.ChainID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		result.TxID = swapResult.TxID
		result.Status = swapResult.Status
		result.AmountOut = swapResult.AmountOut
		result.GasCost = swapResult.GasUsed
		result.ElapsedMs = time.Since(start).Milliseconds()
		result.ExplorerURL = o.explorerLink(leg, swapResult.TxID)
		return result
	}

	result.Error = lastErr.Error()
	result.ElapsedMs = time.Since(start).Milliseconds()
	return result
}

// settle 成交后结算：刷新余额记录、换算gas成本
func (o *SwapOrchestrator) settle(ctx context.Context, params model.OrderParams, result *model.OrderResult) {
	for i, leg := range params.Legs {
		legResult := result.Legs[i]
		if legResult == nil || legResult.Error != "" {
			continue
		}

		legResult.Deltas = o.refreshBalances(ctx, leg)
		legResult.GasCostUsd = o.gasCostUsd(ctx, leg, legResult.GasCost)
	}
}

// refreshBalances 重新读两侧代币余额并更新记录，返回变化量
func (o *SwapOrchestrator) refreshBalances(ctx context.Context, leg model.LegParams) map[string]string {
	deltas := make(map[string]string)

	for _, token := range []struct {
		address  string
		decimals uint8
	}{
		{leg.FromToken, leg.FromDecimals},
		{leg.ToToken, leg.ToDecimals},
	} {
		tokenLeg := leg
		tokenLeg.FromToken = token.address

		balance, err := o.balances.Balance(ctx, tokenLeg)
		if err != nil {
			o.tl.Warn("⚠️ balance refresh failed",
				zap.Uint64("chain_id", leg.ChainID),
				zap.String("token", token.address),
				zap.Error(err))
			continue
		}

		previous, err := o.balanceDAO.Find(ctx, leg.ChainID, token.address)
		if err == nil && previous != nil {
			if prev, ok := new(big.Int).SetString(previous.Balance, 10); ok {
				deltas[token.address] = new(big.Int).Sub(balance, prev).String()
			}
		}

		// 授权一并刷新，下一单预检读的就是这条记录
		allowanceStr := ""
		if allowance, err := o.balances.Allowance(ctx, tokenLeg); err == nil && allowance != nil {
			allowanceStr = allowance.String()
		} else if previous != nil {
			allowanceStr = previous.CurrentAllowance
		}

		record := &model.TokenBalance{
			ID:               fmt.Sprintf("%d_%s", leg.ChainID, strings.ToLower(token.address)),
			Address:          token.address,
			ChainID:          leg.ChainID,
			Balance:          balance.String(),
			CurrentAllowance: allowanceStr,
			Decimals:         token.decimals,
		}
		if err := o.balanceDAO.Upsert(ctx, record); err != nil {
			o.tl.Warn("⚠️ balance record update failed",
				zap.Uint64("chain_id", leg.ChainID),
				zap.String("token", token.address),
				zap.Error(err))
		}
	}
	return deltas
}

// gasCostUsd gas成本按原生币现货价折算USD
func (o *SwapOrchestrator) gasCostUsd(ctx context.Context, leg model.LegParams, gasCost string) string {
	if gasCost == "" || o.pricer == nil {
		return ""
	}
	chain, ok := o.chains[leg.ChainID]
	if !ok || chain.NativeSymbol == "" {
		return ""
	}

	gas, ok := new(big.Int).SetString(gasCost, 10)
	if !ok {
		return ""
	}

	price, err := o.pricer.GetTokenPrice(ctx, chain.NativeSymbol)
	if err != nil {
		return ""
	}

	return utils.AdjustDecimals(gas, chain.NativeDecimals).Mul(price).String()
}

// finalize 订单终态只写一次
func (o *SwapOrchestrator) finalize(ctx context.Context, order *model.Order, params model.OrderParams, result *model.OrderResult, status string) {
	resultJSON, err := sonic.Marshal(result)
	if err != nil {
		o.tl.Error("❌ marshal order result failed", zap.String("order_id", order.ID), zap.Error(err))
	} else {
		order.Result = resultJSON
	}

	order.Status = status
	for _, leg := range result.Legs {
		if leg != nil && leg.TxID != "" {
			order.TxHash = leg.TxID
			break
		}
	}

	if err := o.orderDAO.Update(ctx, order); err != nil {
		o.tl.Error("❌ write order terminal status failed", zap.String("order_id", order.ID), zap.Error(err))
	}
	monitor.OrdersTotal.WithLabelValues(status).Inc()
}

// report 结算通知，尽力送达
func (o *SwapOrchestrator) report(ctx context.Context, orderID string, params model.OrderParams, result *model.OrderResult, status string) {
	if o.notifier == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] order %s %s\n", params.Ticker, orderID, status)
	for i, leg := range result.Legs {
		if leg == nil {
			continue
		}
		if leg.Error != "" {
			fmt.Fprintf(&sb, "leg%d chain=%d FAILED after %d attempts: %s\n",
				i+1, params.Legs[i].ChainID, leg.Attempts, leg.Error)
			continue
		}

		amountOut := leg.AmountOut
		if out, ok := new(big.Int).SetString(leg.AmountOut, 10); ok {
			amountOut = utils.FormatAmount(out, params.Legs[i].ToDecimals)
		}
		fmt.Fprintf(&sb, "leg%d chain=%d out=%s gas_usd=%s elapsed=%dms %s\n",
			i+1, params.Legs[i].ChainID, amountOut, leg.GasCostUsd, leg.ElapsedMs, leg.ExplorerURL)
	}

	o.notifier.Notify(ctx, sb.String())
}

func (o *SwapOrchestrator) explorerLink(leg model.LegParams, txID string) string {
	if txID == "" {
		return ""
	}
	if chain, ok := o.chains[leg.ChainID]; ok && chain.ExplorerURL != "" {
		return strings.TrimRight(chain.ExplorerURL, "/") + "/tx/" + txID
	}
	if leg.Kind == model.NetworkSolana {
		return "https://solscan.io/tx/" + txID
	}
	return ""
}

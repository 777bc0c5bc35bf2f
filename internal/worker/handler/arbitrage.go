package handler

import (
	"context"
	"fmt"
	"math/big"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/executor"
	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/scanner"
	"dex-arb/pkg/utils"

	"go.uber.org/zap"
)

// OKX聚合器里Solana的链标识
const solanaChainID = 501

// ArbitrageHandler 策略队列的下游：扫描价差，确认有利可图后下双腿订单。
// 买腿在报价最优的池子所在链成交，卖腿在触发池所在链反向平掉。
type ArbitrageHandler struct {
	scanner      *scanner.SpreadScanner
	orchestrator *executor.SwapOrchestrator
	evmWallet    string
	solanaWallet string
	slippage     string
	tl           *zap.Logger
}

func NewArbitrageHandler(cfg config.Config, s *scanner.SpreadScanner, o *executor.SwapOrchestrator, logger *zap.Logger) *ArbitrageHandler {
	return &ArbitrageHandler{
		scanner:      s,
		orchestrator: o,
		evmWallet:    cfg.Evm.Wallet,
		solanaWallet: cfg.Solana.Wallet,
		slippage:     cfg.Executor.Slippage,
		tl:           logger,
	}
}

// HandleEnriched 实现 consumer.EnrichedHandler
func (h *ArbitrageHandler) HandleEnriched(ctx context.Context, event *model.EnrichedSwapEvent) error {
	result, err := h.scanner.Scan(ctx, event)
	if err != nil {
		return err
	}
	if result.Outcome != model.ScanOutcomeProfitable {
		return nil
	}

	params, err := h.buildOrder(event, result)
	if err != nil {
		// 目录配置问题，重试也不会好
		h.tl.Error("❌ cannot build order from scan result",
			zap.String("pool", event.PoolAddress),
			zap.Error(err))
		return nil
	}

	if _, err := h.orchestrator.Execute(ctx, params); err != nil {
		return err
	}
	return nil
}

// buildOrder 由扫描结论组装双腿订单。
// 买腿复刻触发方向吃掉候选池的价差，卖腿在触发链把换到的token出掉。
func (h *ArbitrageHandler) buildOrder(event *model.EnrichedSwapEvent, result *model.ScanResult) (model.OrderParams, error) {
	var params model.OrderParams
	best := result.BestQuote
	if best == nil {
		return params, fmt.Errorf("scan result has no best quote")
	}

	// 触发事件里正的一侧流入池子，负的一侧流出
	inSide, outSide := event.Token0, event.Token1
	amount0, ok := new(big.Int).SetString(event.Token0.Amount, 10)
	if !ok {
		return params, fmt.Errorf("bad token0 amount %q", event.Token0.Amount)
	}
	if amount0.Sign() < 0 {
		inSide, outSide = event.Token1, event.Token0
	}

	bestOut, ok := new(big.Int).SetString(best.AmountOut, 10)
	if !ok || bestOut.Sign() <= 0 {
		return params, fmt.Errorf("bad quote amount out %q", best.AmountOut)
	}

	buyWallet, err := h.walletFor(best.ChainID)
	if err != nil {
		return params, err
	}
	sellWallet, err := h.walletFor(event.ChainID)
	if err != nil {
		return params, err
	}

	buyLeg := model.LegParams{
		Kind:         kindFor(best.ChainID),
		ChainID:      best.ChainID,
		Wallet:       buyWallet,
		FromToken:    best.FromToken,
		ToToken:      best.ToToken,
		FromDecimals: best.FromDecimals,
		ToDecimals:   best.ToDecimals,
		Amount:       best.AmountIn,
		Slippage:     h.slippage,
	}

	sellAmount := utils.RescaleAmount(bestOut, best.ToDecimals, outSide.Decimals)
	sellLeg := model.LegParams{
		Kind:         kindFor(event.ChainID),
		ChainID:      event.ChainID,
		Wallet:       sellWallet,
		FromToken:    outSide.Address,
		ToToken:      inSide.Address,
		FromDecimals: outSide.Decimals,
		ToDecimals:   inSide.Decimals,
		Amount:       sellAmount.String(),
		Slippage:     h.slippage,
	}

	params.Ticker = outSide.Symbol + "/" + inSide.Symbol
	params.Legs = [2]model.LegParams{buyLeg, sellLeg}
	return params, nil
}

func (h *ArbitrageHandler) walletFor(chainID uint64) (string, error) {
	if chainID == solanaChainID {
		if h.solanaWallet == "" {
			return "", fmt.Errorf("no solana wallet configured")
		}
		return h.solanaWallet, nil
	}
	if h.evmWallet == "" {
		return "", fmt.Errorf("no evm wallet configured")
	}
	return h.evmWallet, nil
}

func kindFor(chainID uint64) model.NetworkKind {
	if chainID == solanaChainID {
		return model.NetworkSolana
	}
	return model.NetworkEVM
}

package service

import (
	"context"
	"fmt"
	"math/big"

	"dex-arb/internal/worker/dao"
	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/monitor"
	"dex-arb/pkg/utils"

	"go.uber.org/zap"
)

// EventEnricher 把解码事件补全成带目录信息与USD估值的完整事件。
// 未登记的池子直接丢弃，估值失败降级为unclassified而不是丢事件。
type EventEnricher struct {
	poolDAO dao.PoolDAO
	pricer  TokenPricer
	tl      *zap.Logger
}

func NewEventEnricher(poolDAO dao.PoolDAO, pricer TokenPricer, logger *zap.Logger) *EventEnricher {
	return &EventEnricher{
		poolDAO: poolDAO,
		pricer:  pricer,
		tl:      logger,
	}
}

// Enrich 返回补全后的事件。池子未登记时返回(nil, nil)。
func (e *EventEnricher) Enrich(ctx context.Context, event *model.DecodedSwapEvent) (*model.EnrichedSwapEvent, error) {
	pool, err := e.poolDAO.FindPoolByAddress(ctx, event.ChainID, event.PoolAddress)
	if err != nil {
		return nil, fmt.Errorf("lookup pool %s: %w", event.PoolAddress, err)
	}
	if pool == nil {
		monitor.EventsEnriched.WithLabelValues("unknown_pool").Inc()
		return nil, nil
	}

	amount0, ok := new(big.Int).SetString(event.Token0Amount, 10)
	if !ok {
		return nil, fmt.Errorf("bad token0 amount %q", event.Token0Amount)
	}
	amount1, ok := new(big.Int).SetString(event.Token1Amount, 10)
	if !ok {
		return nil, fmt.Errorf("bad token1 amount %q", event.Token1Amount)
	}

	side0 := buildTokenSide(pool.Token0, pool.Token0Address, event.ChainID, amount0)
	side1 := buildTokenSide(pool.Token1, pool.Token1Address, event.ChainID, amount1)

	analysis := e.analyze(ctx, side0, side1, amount0, amount1)

	enriched := &model.EnrichedSwapEvent{
		DecodedSwapEvent: *event,
		Pool: model.PoolRef{
			ID:      pool.ID,
			Address: pool.PoolAddress,
			DexName: pool.Dex.Name,
			Fee:     pool.Fee,
		},
		Token0:   side0,
		Token1:   side1,
		Analysis: analysis,
	}
	if pool.Strategy != nil {
		enriched.Strategy = &model.StrategyRef{
			ID:   pool.Strategy.ID,
			Type: pool.Strategy.Type,
		}
	}

	monitor.EventsEnriched.WithLabelValues(analysis.SizeClass).Inc()
	return enriched, nil
}

func buildTokenSide(token model.Token, address string, chainID uint64, amount *big.Int) model.TokenSide {
	decimals := token.DecimalsOn(chainID)
	return model.TokenSide{
		ID:              token.ID,
		Symbol:          token.Symbol,
		Name:            token.Name,
		Address:         address,
		Decimals:        decimals,
		Amount:          amount.String(),
		AmountFormatted: utils.FormatAmount(amount, decimals),
		IsStable:        token.Stable,
	}
}

// analyze 规模与方向判定。优先走稳定币一侧，其次主流币现货价，都不行归为unclassified。
// 方向看非计价一侧的符号：池子付出该代币(负)即为买入。
func (e *EventEnricher) analyze(ctx context.Context, side0, side1 model.TokenSide, amount0, amount1 *big.Int) model.SwapAnalysis {
	// 稳定币一侧直接计USD
	if side0.IsStable || side1.IsStable {
		ref, other := side0, side1
		refAmount, otherAmount := amount0, amount1
		if !side0.IsStable {
			ref, other = side1, side0
			refAmount, otherAmount = amount1, amount0
		}

		sizeUsd := utils.AdjustDecimals(refAmount, ref.Decimals).Abs()
		return model.SwapAnalysis{
			SizeClass:   model.SizeClassStable,
			StableToken: ref.Symbol,
			OtherToken:  other.Symbol,
			SwapSizeUsd: sizeUsd.String(),
			Direction:   direction(otherAmount),
		}
	}

	// 主流币按现货价计USD
	for _, pair := range [][2]int{{0, 1}, {1, 0}} {
		sides := [2]model.TokenSide{side0, side1}
		amounts := [2]*big.Int{amount0, amount1}
		ref, other := sides[pair[0]], sides[pair[1]]
		refAmount, otherAmount := amounts[pair[0]], amounts[pair[1]]

		if _, ok := OracleSymbol(ref.Symbol); !ok {
			continue
		}

		price, err := e.pricer.GetTokenPrice(ctx, ref.Symbol)
		if err != nil {
			e.tl.Warn("⚠️ spot price unavailable, swap left unclassified",
				zap.String("symbol", ref.Symbol),
				zap.Error(err))
			break
		}

		sizeUsd := utils.AdjustDecimals(refAmount, ref.Decimals).Abs().Mul(price)
		return model.SwapAnalysis{
			SizeClass:   model.SizeClassOracle,
			PricedToken: ref.Symbol,
			TokenPrice:  price.String(),
			OtherToken:  other.Symbol,
			SwapSizeUsd: sizeUsd.String(),
			Direction:   direction(otherAmount),
		}
	}

	return model.SwapAnalysis{SizeClass: model.SizeClassUnclassified}
}

func direction(otherAmount *big.Int) string {
	if otherAmount.Sign() < 0 {
		return model.DirectionBuy
	}
	return model.DirectionSell
}

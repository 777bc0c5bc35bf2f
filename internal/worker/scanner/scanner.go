package scanner

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/dao"
	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/monitor"
	"dex-arb/pkg/okx"
	"dex-arb/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Aggregator 报价来源，生产实现为OKX聚合器
type Aggregator interface {
	GetQuote(ctx context.Context, chainID uint64, fromToken, toToken, amount string) (*okx.Quote, error)
}

// SpreadScanner 价差扫描器。收到一笔足够大的swap后，对同策略下
// 全部候选池并发请求同方向报价，挑出价差最大的池子并复查确认。
type SpreadScanner struct {
	cfg       config.ScannerConfig
	poolDAO   dao.PoolDAO
	agg       Aggregator
	tl        *zap.Logger
	threshold decimal.Decimal
}

func NewSpreadScanner(cfg config.ScannerConfig, poolDAO dao.PoolDAO, agg Aggregator, logger *zap.Logger) *SpreadScanner {
	return &SpreadScanner{
		cfg:       cfg,
		poolDAO:   poolDAO,
		agg:       agg,
		tl:        logger,
		threshold: decimal.NewFromInt(int64(cfg.SpreadThresholdBps)).Div(decimal.NewFromInt(10000)),
	}
}

// Scan 对触发事件做一轮价差扫描，返回结论。扫描本身不下单。
func (s *SpreadScanner) Scan(ctx context.Context, event *model.EnrichedSwapEvent) (*model.ScanResult, error) {
	if event.Analysis.SizeClass == model.SizeClassUnclassified {
		monitor.ScansTotal.WithLabelValues(model.ScanOutcomeUnclassified).Inc()
		return &model.ScanResult{Outcome: model.ScanOutcomeUnclassified}, nil
	}

	sizeUsd, err := decimal.NewFromString(event.Analysis.SwapSizeUsd)
	if err != nil {
		return nil, fmt.Errorf("bad swap size %q: %w", event.Analysis.SwapSizeUsd, err)
	}
	if sizeUsd.LessThan(decimal.NewFromFloat(s.cfg.MinSwapSizeUsd)) {
		monitor.ScansTotal.WithLabelValues(model.ScanOutcomeBelowMinSize).Inc()
		return &model.ScanResult{Outcome: model.ScanOutcomeBelowMinSize}, nil
	}

	if event.Strategy == nil {
		return nil, fmt.Errorf("event on pool %s has no strategy", event.PoolAddress)
	}

	// 复刻触发交易的方向：正的一侧是流入池子的token
	from, to, amountIn, err := tradeSides(event)
	if err != nil {
		return nil, err
	}

	pools, err := s.poolDAO.FindPoolsByStrategy(ctx, event.Strategy.ID)
	if err != nil {
		return nil, fmt.Errorf("load strategy pools: %w", err)
	}

	quotes := s.quoteAll(ctx, event, pools, from, to, amountIn, sizeUsd)
	if len(quotes) == 0 {
		monitor.ScansTotal.WithLabelValues(model.ScanOutcomeNoValidQuotes).Inc()
		return &model.ScanResult{
			Outcome:       model.ScanOutcomeNoValidQuotes,
			StrategyID:    event.Strategy.ID,
			TriggerPoolID: event.Pool.ID,
		}, nil
	}

	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.SpreadPercent.GreaterThan(best.SpreadPercent) {
			best = q
		}
	}

	result := &model.ScanResult{
		StrategyID:    event.Strategy.ID,
		TriggerPoolID: event.Pool.ID,
		Quotes:        dereference(quotes),
	}

	if !best.Profitable {
		monitor.ScansTotal.WithLabelValues(model.ScanOutcomeNotProfitable).Inc()
		result.Outcome = model.ScanOutcomeNotProfitable
		result.BestQuote = best
		result.ConfirmedSpread = best.SpreadPercent
		return result, nil
	}

	// 赢家复查：重新报价确认价差还在，挡掉已经被别人吃掉的机会
	confirmed, err := s.quotePool(ctx, best, sizeUsd)
	if err != nil {
		s.tl.Warn("⚠️ confirmation quote failed", zap.String("pool", best.PoolAddress), zap.Error(err))
		monitor.ScansTotal.WithLabelValues(model.ScanOutcomeNoValidQuotes).Inc()
		result.Outcome = model.ScanOutcomeNoValidQuotes
		return result, nil
	}

	result.BestQuote = confirmed
	result.ConfirmedSpread = confirmed.SpreadPercent
	if !confirmed.Profitable {
		monitor.ScansTotal.WithLabelValues(model.ScanOutcomeNotProfitable).Inc()
		result.Outcome = model.ScanOutcomeNotProfitable
		return result, nil
	}

	monitor.ScansTotal.WithLabelValues(model.ScanOutcomeProfitable).Inc()
	s.tl.Info("✅ profitable spread found",
		zap.String("pool", confirmed.PoolAddress),
		zap.String("spread", confirmed.SpreadPercent.String()),
		zap.String("spread_usd", confirmed.SpreadUsd.String()))
	result.Outcome = model.ScanOutcomeProfitable
	return result, nil
}

// quoteAll 并发请求全部候选池的报价，失败的池子直接略过
func (s *SpreadScanner) quoteAll(ctx context.Context, event *model.EnrichedSwapEvent, pools []*model.Pool, from, to model.TokenSide, amountIn *big.Int, sizeUsd decimal.Decimal) []*model.ArbQuote {
	var mu sync.Mutex
	var quotes []*model.ArbQuote

	p := pool.New().WithMaxGoroutines(8)
	for _, candidate := range pools {
		c := candidate
		p.Go(func() {
			candidateQuote, ok := s.buildCandidate(c, event, from, to, amountIn)
			if !ok {
				return
			}
			quoted, err := s.quotePool(ctx, candidateQuote, sizeUsd)
			if err != nil {
				s.tl.Debug("quote failed", zap.String("pool", c.PoolAddress), zap.Error(err))
				return
			}
			mu.Lock()
			quotes = append(quotes, quoted)
			mu.Unlock()
		})
	}
	p.Wait()

	return quotes
}

// buildCandidate 把触发交易映射到候选池：token按目录ID对齐，
// 金额按两边精度换算，跨链时精度可能不同
func (s *SpreadScanner) buildCandidate(candidate *model.Pool, event *model.EnrichedSwapEvent, from, to model.TokenSide, amountIn *big.Int) (*model.ArbQuote, bool) {
	var fromAddr, toAddr string
	var fromDec, toDec uint8

	switch {
	case candidate.Token0ID == from.ID && candidate.Token1ID == to.ID:
		fromAddr, toAddr = candidate.Token0Address, candidate.Token1Address
		fromDec = candidate.Token0.DecimalsOn(candidate.ChainID)
		toDec = candidate.Token1.DecimalsOn(candidate.ChainID)
	case candidate.Token1ID == from.ID && candidate.Token0ID == to.ID:
		fromAddr, toAddr = candidate.Token1Address, candidate.Token0Address
		fromDec = candidate.Token1.DecimalsOn(candidate.ChainID)
		toDec = candidate.Token0.DecimalsOn(candidate.ChainID)
	default:
		// 策略配错了池子，不参与扫描
		return nil, false
	}

	amount := utils.RescaleAmount(amountIn, from.Decimals, fromDec)
	if amount.Sign() <= 0 {
		return nil, false
	}

	return &model.ArbQuote{
		PoolID:       candidate.ID,
		PoolAddress:  candidate.PoolAddress,
		ChainID:      candidate.ChainID,
		FromToken:    fromAddr,
		ToToken:      toAddr,
		FromDecimals: fromDec,
		ToDecimals:   toDec,
		AmountIn:     amount.String(),
	}, true
}

// quotePool 请求单个池子的报价并计算价差
func (s *SpreadScanner) quotePool(ctx context.Context, q *model.ArbQuote, sizeUsd decimal.Decimal) (*model.ArbQuote, error) {
	quote, err := s.agg.GetQuote(ctx, q.ChainID, q.FromToken, q.ToToken, q.AmountIn)
	if err != nil {
		monitor.QuoteRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	monitor.QuoteRequests.WithLabelValues("ok").Inc()

	amountIn, ok := new(big.Int).SetString(q.AmountIn, 10)
	if !ok || amountIn.Sign() == 0 {
		return nil, fmt.Errorf("bad amount in %q", q.AmountIn)
	}
	amountOut, ok := new(big.Int).SetString(quote.AmountOut, 10)
	if !ok {
		return nil, fmt.Errorf("bad amount out %q", quote.AmountOut)
	}

	inHuman := utils.AdjustDecimals(amountIn, q.FromDecimals)
	outHuman := utils.AdjustDecimals(amountOut, q.ToDecimals)
	if inHuman.IsZero() {
		return nil, fmt.Errorf("zero amount in after scaling")
	}

	spread := outHuman.Div(inHuman).Sub(decimal.NewFromInt(1))

	result := *q
	result.AmountOut = quote.AmountOut
	result.SpreadPercent = spread
	result.SpreadUsd = spread.Mul(sizeUsd)
	result.Profitable = spread.GreaterThanOrEqual(s.threshold)
	return &result, nil
}

// tradeSides 从触发事件还原交易方向与入金额
func tradeSides(event *model.EnrichedSwapEvent) (from, to model.TokenSide, amountIn *big.Int, err error) {
	amount0, ok := new(big.Int).SetString(event.Token0.Amount, 10)
	if !ok {
		return from, to, nil, fmt.Errorf("bad token0 amount %q", event.Token0.Amount)
	}
	amount1, ok := new(big.Int).SetString(event.Token1.Amount, 10)
	if !ok {
		return from, to, nil, fmt.Errorf("bad token1 amount %q", event.Token1.Amount)
	}

	if amount0.Sign() > 0 {
		return event.Token0, event.Token1, amount0, nil
	}
	if amount1.Sign() > 0 {
		return event.Token1, event.Token0, amount1, nil
	}
	return from, to, nil, fmt.Errorf("no positive inflow in swap on pool %s", event.PoolAddress)
}

func dereference(quotes []*model.ArbQuote) []model.ArbQuote {
	out := make([]model.ArbQuote, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, *q)
	}
	return out
}

package scanner

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/model"
	"dex-arb/pkg/okx"
	"dex-arb/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakePoolDAO struct {
	pools []*model.Pool
}

func (f *fakePoolDAO) FindPoolByAddress(ctx context.Context, chainID uint64, poolAddress string) (*model.Pool, error) {
	return nil, nil
}

func (f *fakePoolDAO) FindPoolsByStrategy(ctx context.Context, strategyID string) ([]*model.Pool, error) {
	return f.pools, nil
}

func (f *fakePoolDAO) ListDexes(ctx context.Context) ([]*model.Dex, error) {
	return nil, nil
}

// fakeAgg 按fromToken返回预设的amountOut序列，复查会消费第二个
type fakeAgg struct {
	mu        sync.Mutex
	responses map[string][]string
}

func (f *fakeAgg) GetQuote(ctx context.Context, chainID uint64, fromToken, toToken, amount string) (*okx.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seq := f.responses[fromToken]
	if len(seq) == 0 {
		return nil, errors.New("no quote")
	}
	out := seq[0]
	if len(seq) > 1 {
		f.responses[fromToken] = seq[1:]
	}
	return &okx.Quote{
		FromToken: fromToken,
		ToToken:   toToken,
		AmountIn:  amount,
		AmountOut: out,
	}, nil
}

func usdcToken(id string, chainID uint64, address string) model.Token {
	return model.Token{
		ID: id, Symbol: "USDC", Stable: true,
		Addresses: []model.TokenAddress{{ChainID: chainID, Address: address, Decimals: 6}},
	}
}

func abcToken(id string, chainID uint64, address string) model.Token {
	return model.Token{
		ID: id, Symbol: "ABC",
		Addresses: []model.TokenAddress{{ChainID: chainID, Address: address, Decimals: 18}},
	}
}

func candidatePool(id string, chainID uint64, usdcAddr, abcAddr string) *model.Pool {
	return &model.Pool{
		ID:            id,
		PoolAddress:   "0xpool_" + id,
		ChainID:       chainID,
		Token0ID:      "t-usdc",
		Token0Address: usdcAddr,
		Token1ID:      "t-abc",
		Token1Address: abcAddr,
		Token0:        usdcToken("t-usdc", chainID, usdcAddr),
		Token1:        abcToken("t-abc", chainID, abcAddr),
	}
}

// 触发事件：100 USDC流入池子，ABC流出，规模$100
func triggerEvent() *model.EnrichedSwapEvent {
	return &model.EnrichedSwapEvent{
		DecodedSwapEvent: model.DecodedSwapEvent{
			ChainID:     1,
			PoolAddress: "0xtrigger",
		},
		Pool: model.PoolRef{ID: "pool-trigger"},
		Token0: model.TokenSide{
			ID: "t-usdc", Symbol: "USDC", Decimals: 6, IsStable: true,
			Amount: "100000000",
		},
		Token1: model.TokenSide{
			ID: "t-abc", Symbol: "ABC", Decimals: 18,
			Amount: "-99000000000000000000",
		},
		Analysis: model.SwapAnalysis{
			SizeClass:   model.SizeClassStable,
			SwapSizeUsd: "100",
			Direction:   model.DirectionBuy,
		},
		Strategy: &model.StrategyRef{ID: "strat-1", Type: "arbitrage"},
	}
}

func newTestScanner(pools []*model.Pool, agg Aggregator) *SpreadScanner {
	return NewSpreadScanner(config.ScannerConfig{
		MinSwapSizeUsd:     50,
		SpreadThresholdBps: 20,
	}, &fakePoolDAO{pools: pools}, agg, zap.NewNop())
}

func TestScanPicksBestAndConfirmationRejects(t *testing.T) {
	pools := []*model.Pool{
		candidatePool("pool-a", 1, "0xusdc1", "0xabc1"),
		candidatePool("pool-b", 56, "0xusdc56", "0xabc56"),
	}

	// pool-a: 10bps；pool-b: 25bps，复查掉到15bps
	agg := &fakeAgg{responses: map[string][]string{
		"0xusdc1":  {"100100000000000000000"},
		"0xusdc56": {"100250000000000000000", "100150000000000000000"},
	}}

	s := newTestScanner(pools, agg)
	result, err := s.Scan(context.Background(), triggerEvent())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if result.Outcome != model.ScanOutcomeNotProfitable {
		t.Errorf("outcome = %s, want not_profitable", result.Outcome)
	}
	if result.BestQuote == nil || result.BestQuote.PoolID != "pool-b" {
		t.Fatalf("best quote = %+v, want pool-b", result.BestQuote)
	}
	if !result.ConfirmedSpread.Equal(decimal.NewFromFloat(0.0015)) {
		t.Errorf("confirmed spread = %s, want 0.0015", result.ConfirmedSpread)
	}
}

func TestScanProfitable(t *testing.T) {
	pools := []*model.Pool{candidatePool("pool-b", 56, "0xusdc56", "0xabc56")}

	// 首查30bps，复查25bps，仍高于20bps阈值
	agg := &fakeAgg{responses: map[string][]string{
		"0xusdc56": {"100300000000000000000", "100250000000000000000"},
	}}

	s := newTestScanner(pools, agg)
	result, err := s.Scan(context.Background(), triggerEvent())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if result.Outcome != model.ScanOutcomeProfitable {
		t.Errorf("outcome = %s, want profitable", result.Outcome)
	}
	if !result.ConfirmedSpread.Equal(decimal.NewFromFloat(0.0025)) {
		t.Errorf("confirmed spread = %s, want 0.0025", result.ConfirmedSpread)
	}
	if result.BestQuote.SpreadUsd.Equal(decimal.Zero) {
		t.Error("expected non-zero spread usd")
	}
}

func TestScanBelowMinSize(t *testing.T) {
	s := newTestScanner(nil, &fakeAgg{})

	event := triggerEvent()
	event.Analysis.SwapSizeUsd = "49.99"

	result, err := s.Scan(context.Background(), event)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if result.Outcome != model.ScanOutcomeBelowMinSize {
		t.Errorf("outcome = %s, want below_min_size", result.Outcome)
	}
}

func TestScanUnclassified(t *testing.T) {
	s := newTestScanner(nil, &fakeAgg{})

	event := triggerEvent()
	event.Analysis.SizeClass = model.SizeClassUnclassified
	event.Analysis.SwapSizeUsd = ""

	result, err := s.Scan(context.Background(), event)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if result.Outcome != model.ScanOutcomeUnclassified {
		t.Errorf("outcome = %s, want unclassified", result.Outcome)
	}
}

func TestScanNoValidQuotes(t *testing.T) {
	pools := []*model.Pool{candidatePool("pool-a", 1, "0xusdc1", "0xabc1")}
	s := newTestScanner(pools, &fakeAgg{responses: map[string][]string{}})

	result, err := s.Scan(context.Background(), triggerEvent())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if result.Outcome != model.ScanOutcomeNoValidQuotes {
		t.Errorf("outcome = %s, want no_valid_quotes", result.Outcome)
	}
}

func TestRescaleAmount(t *testing.T) {
	cases := []struct {
		in       string
		fromDec  uint8
		toDec    uint8
		expected string
	}{
		{"100000000", 6, 6, "100000000"},
		{"100000000", 6, 18, "100000000000000000000"},
		{"100000000000000000000", 18, 6, "100000000"},
	}

	for _, c := range cases {
		in, _ := new(big.Int).SetString(c.in, 10)
		got := utils.RescaleAmount(in, c.fromDec, c.toDec)
		if got.String() != c.expected {
			t.Errorf("rescale(%s, %d->%d) = %s, want %s", c.in, c.fromDec, c.toDec, got, c.expected)
		}
	}
}

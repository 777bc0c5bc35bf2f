package service

import (
	"context"
	"errors"
	"testing"

	"dex-arb/internal/worker/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakePoolDAO struct {
	pools map[string]*model.Pool
}

func (f *fakePoolDAO) FindPoolByAddress(ctx context.Context, chainID uint64, poolAddress string) (*model.Pool, error) {
	return f.pools[poolAddress], nil
}

func (f *fakePoolDAO) FindPoolsByStrategy(ctx context.Context, strategyID string) ([]*model.Pool, error) {
	return nil, nil
}

func (f *fakePoolDAO) ListDexes(ctx context.Context) ([]*model.Dex, error) {
	return nil, nil
}

type fakePricer struct {
	prices map[string]decimal.Decimal
}

func (f *fakePricer) GetTokenPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if price, ok := f.prices[symbol]; ok {
		return price, nil
	}
	return decimal.Zero, errors.New("no price")
}

func stablePool() *model.Pool {
	strategyID := "strat-1"
	return &model.Pool{
		ID:            "pool-1",
		PoolAddress:   "0xpool1",
		ChainID:       1,
		Token0Address: "0xusdc",
		Token1Address: "0xabc",
		Fee:           500,
		Token0: model.Token{
			ID: "t-usdc", Symbol: "USDC", Name: "USD Coin", Stable: true,
			Addresses: []model.TokenAddress{{ChainID: 1, Address: "0xusdc", Decimals: 6}},
		},
		Token1: model.Token{
			ID: "t-abc", Symbol: "ABC", Name: "Abc Token",
			Addresses: []model.TokenAddress{{ChainID: 1, Address: "0xabc", Decimals: 18}},
		},
		Dex:        model.Dex{ID: "d-1", Name: "uniswapV3"},
		StrategyID: &strategyID,
		Strategy:   &model.Strategy{ID: "strat-1", Type: "arbitrage"},
	}
}

func newTestEnricher(pools map[string]*model.Pool, prices map[string]decimal.Decimal) *EventEnricher {
	return NewEventEnricher(
		&fakePoolDAO{pools: pools},
		&fakePricer{prices: prices},
		zap.NewNop(),
	)
}

func TestEnrichStableSizing(t *testing.T) {
	e := newTestEnricher(map[string]*model.Pool{"0xpool1": stablePool()}, nil)

	// 池子付出1 USDC，收入0.5 ABC：交易者卖出ABC
	event := &model.DecodedSwapEvent{
		ChainID:      1,
		PoolAddress:  "0xpool1",
		Token0Amount: "-1000000",
		Token1Amount: "500000000000000000",
		Dex:          "uniswapV3",
	}

	enriched, err := e.Enrich(context.Background(), event)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if enriched == nil {
		t.Fatal("expected enriched event")
	}

	if enriched.Analysis.SizeClass != model.SizeClassStable {
		t.Errorf("size class = %s, want stable", enriched.Analysis.SizeClass)
	}
	if enriched.Analysis.SwapSizeUsd != "1" {
		t.Errorf("swap size usd = %s, want 1", enriched.Analysis.SwapSizeUsd)
	}
	if enriched.Analysis.Direction != model.DirectionSell {
		t.Errorf("direction = %s, want SELL", enriched.Analysis.Direction)
	}
	if enriched.Token1.AmountFormatted != "0.5" {
		t.Errorf("token1 formatted = %s, want 0.5", enriched.Token1.AmountFormatted)
	}
	if enriched.Strategy == nil || enriched.Strategy.Type != "arbitrage" {
		t.Error("expected strategy ref on enriched event")
	}
}

func TestEnrichBuyDirection(t *testing.T) {
	e := newTestEnricher(map[string]*model.Pool{"0xpool1": stablePool()}, nil)

	// 池子收入250 USDC，付出ABC：交易者买入ABC
	event := &model.DecodedSwapEvent{
		ChainID:      1,
		PoolAddress:  "0xpool1",
		Token0Amount: "250000000",
		Token1Amount: "-120000000000000000000",
	}

	enriched, err := e.Enrich(context.Background(), event)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if enriched.Analysis.Direction != model.DirectionBuy {
		t.Errorf("direction = %s, want BUY", enriched.Analysis.Direction)
	}
	if enriched.Analysis.SwapSizeUsd != "250" {
		t.Errorf("swap size usd = %s, want 250", enriched.Analysis.SwapSizeUsd)
	}
}

func TestEnrichOracleSizing(t *testing.T) {
	pool := stablePool()
	pool.Token0 = model.Token{
		ID: "t-weth", Symbol: "WETH", Name: "Wrapped Ether",
		Addresses: []model.TokenAddress{{ChainID: 1, Address: "0xweth", Decimals: 18}},
	}
	pool.Token0Address = "0xweth"

	e := newTestEnricher(
		map[string]*model.Pool{"0xpool1": pool},
		map[string]decimal.Decimal{"WETH": decimal.NewFromInt(2000)},
	)

	// 池子收入2 WETH，付出ABC
	event := &model.DecodedSwapEvent{
		ChainID:      1,
		PoolAddress:  "0xpool1",
		Token0Amount: "2000000000000000000",
		Token1Amount: "-7000000000000000000000",
	}

	enriched, err := e.Enrich(context.Background(), event)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if enriched.Analysis.SizeClass != model.SizeClassOracle {
		t.Errorf("size class = %s, want oracle", enriched.Analysis.SizeClass)
	}
	if enriched.Analysis.SwapSizeUsd != "4000" {
		t.Errorf("swap size usd = %s, want 4000", enriched.Analysis.SwapSizeUsd)
	}
	if enriched.Analysis.Direction != model.DirectionBuy {
		t.Errorf("direction = %s, want BUY", enriched.Analysis.Direction)
	}
}

func TestEnrichUnclassified(t *testing.T) {
	pool := stablePool()
	pool.Token0 = model.Token{
		ID: "t-xyz", Symbol: "XYZ", Name: "Xyz",
		Addresses: []model.TokenAddress{{ChainID: 1, Address: "0xxyz", Decimals: 18}},
	}
	pool.Token0Address = "0xxyz"

	e := newTestEnricher(map[string]*model.Pool{"0xpool1": pool}, nil)

	event := &model.DecodedSwapEvent{
		ChainID:      1,
		PoolAddress:  "0xpool1",
		Token0Amount: "100",
		Token1Amount: "-100",
	}

	enriched, err := e.Enrich(context.Background(), event)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if enriched.Analysis.SizeClass != model.SizeClassUnclassified {
		t.Errorf("size class = %s, want unclassified", enriched.Analysis.SizeClass)
	}
	if enriched.Analysis.Direction != "" {
		t.Errorf("direction = %s, want empty", enriched.Analysis.Direction)
	}
}

func TestEnrichUnknownPoolSkipped(t *testing.T) {
	e := newTestEnricher(map[string]*model.Pool{}, nil)

	event := &model.DecodedSwapEvent{
		ChainID:      1,
		PoolAddress:  "0xunknown",
		Token0Amount: "1",
		Token1Amount: "-1",
	}

	enriched, err := e.Enrich(context.Background(), event)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if enriched != nil {
		t.Error("expected unknown pool to be dropped")
	}
}

func TestEnrichIdempotent(t *testing.T) {
	e := newTestEnricher(map[string]*model.Pool{"0xpool1": stablePool()}, nil)

	event := &model.DecodedSwapEvent{
		ChainID:      1,
		PoolAddress:  "0xpool1",
		Token0Amount: "-1000000",
		Token1Amount: "500000000000000000",
	}

	first, err := e.Enrich(context.Background(), event)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	second, err := e.Enrich(context.Background(), event)
	if err != nil {
		t.Fatalf("enrich again: %v", err)
	}

	if first.Analysis != second.Analysis {
		t.Errorf("re-processing changed analysis: %+v vs %+v", first.Analysis, second.Analysis)
	}
}

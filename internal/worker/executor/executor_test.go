package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/model"
	"dex-arb/pkg/okx"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeSwapper struct {
	mu        sync.Mutex
	calls     int
	failures  int    // 前N次调用返回错误
	failChain uint64 // 该链上的调用永远失败
}

func (f *fakeSwapper) ExecuteSwap(ctx context.Context, params okx.SwapParams) (*okx.SwapResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failChain != 0 && params.ChainID == f.failChain {
		return nil, errors.New("aggregator unavailable")
	}
	if f.calls <= f.failures {
		return nil, errors.New("aggregator unavailable")
	}
	return &okx.SwapResult{
		TxID:      "0xtx",
		Status:    "confirmed",
		AmountOut: "1000000",
		GasUsed:   "21000000000000",
	}, nil
}

func (f *fakeSwapper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBalances struct {
	balance   *big.Int
	allowance *big.Int
}

func (f *fakeBalances) Balance(ctx context.Context, leg model.LegParams) (*big.Int, error) {
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeBalances) Allowance(ctx context.Context, leg model.LegParams) (*big.Int, error) {
	if leg.Kind == model.NetworkSolana {
		return nil, nil
	}
	return new(big.Int).Set(f.allowance), nil
}

type fakeOrderDAO struct {
	mu      sync.Mutex
	created int
	updates []string
}

func (f *fakeOrderDAO) Create(ctx context.Context, order *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return nil
}

func (f *fakeOrderDAO) Update(ctx context.Context, order *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, order.Status)
	return nil
}

type fakeBalanceDAO struct {
	mu      sync.Mutex
	records map[string]*model.TokenBalance
	upserts []*model.TokenBalance
}

func balanceKey(chainID uint64, tokenAddress string) string {
	return fmt.Sprintf("%d_%s", chainID, tokenAddress)
}

func (f *fakeBalanceDAO) Find(ctx context.Context, chainID uint64, tokenAddress string) (*model.TokenBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[balanceKey(chainID, tokenAddress)], nil
}

func (f *fakeBalanceDAO) Upsert(ctx context.Context, balance *model.TokenBalance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, balance)
	return nil
}

// 两腿from代币都有足额余额与授权的记录
func fundedBalanceDAO() *fakeBalanceDAO {
	return &fakeBalanceDAO{records: map[string]*model.TokenBalance{
		balanceKey(1, "0xusdc"):     {Balance: "1000", CurrentAllowance: "1000"},
		balanceKey(501, "mint_abc"): {Balance: "1000"},
	}}
}

type fakePricer struct{}

func (fakePricer) GetTokenPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.NewFromInt(2000), nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(ctx context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
}

func testOrderParams() model.OrderParams {
	return model.OrderParams{
		Ticker: "ABC/USDC",
		Legs: [2]model.LegParams{
			{
				Kind: model.NetworkEVM, ChainID: 1, Wallet: "0xwallet",
				FromToken: "0xusdc", ToToken: "0xabc",
				FromDecimals: 6, ToDecimals: 18, Amount: "100",
			},
			{
				Kind: model.NetworkSolana, ChainID: 501, Wallet: "sol_wallet",
				FromToken: "mint_abc", ToToken: "mint_usdc",
				FromDecimals: 9, ToDecimals: 6, Amount: "100",
			},
		},
	}
}

func newTestOrchestrator(swapper Swapper, balanceDAO *fakeBalanceDAO, orderDAO *fakeOrderDAO, notifier Notifier) *SwapOrchestrator {
	return NewSwapOrchestrator(
		config.ExecutorConfig{MaxRetries: 5, LegTimeout: 5},
		[]config.ChainConfig{{ChainID: 1, ExplorerURL: "https://etherscan.io", NativeSymbol: "ETH", NativeDecimals: 18}},
		swapper,
		&fakeBalances{balance: big.NewInt(1000), allowance: big.NewInt(1000)},
		orderDAO,
		balanceDAO,
		fakePricer{},
		notifier,
		zap.NewNop(),
	)
}

func TestExecutePreflightFailureMakesNoSwapCalls(t *testing.T) {
	swapper := &fakeSwapper{}
	orderDAO := &fakeOrderDAO{}
	notifier := &fakeNotifier{}
	// EVM腿的余额记录不足额
	balanceDAO := &fakeBalanceDAO{records: map[string]*model.TokenBalance{
		balanceKey(1, "0xusdc"):     {Balance: "50", CurrentAllowance: "1000"},
		balanceKey(501, "mint_abc"): {Balance: "1000"},
	}}

	o := newTestOrchestrator(swapper, balanceDAO, orderDAO, notifier)

	result, err := o.Execute(context.Background(), testOrderParams())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.Error == "" {
		t.Error("expected preflight error in result")
	}
	if swapper.callCount() != 0 {
		t.Errorf("swap calls = %d, want 0", swapper.callCount())
	}
	if len(orderDAO.updates) != 1 || orderDAO.updates[0] != model.OrderStatusFailed {
		t.Errorf("terminal writes = %v, want single FAILED", orderDAO.updates)
	}
	// 预检失败同样要通知，不能静默吞单
	if len(notifier.messages) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.messages))
	}
	if !strings.Contains(notifier.messages[0], model.OrderStatusFailed) {
		t.Errorf("notification = %q, want FAILED status mentioned", notifier.messages[0])
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	// 两腿共用计数器，前4次失败后全部成功；每腿失败数不会超过重试上限
	swapper := &fakeSwapper{failures: 4}
	orderDAO := &fakeOrderDAO{}

	o := newTestOrchestrator(swapper, fundedBalanceDAO(), orderDAO, &fakeNotifier{})

	params := testOrderParams()
	result, err := o.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	for i, leg := range result.Legs {
		if leg.Error != "" {
			t.Errorf("leg %d failed: %s", i, leg.Error)
		}
		if leg.TxID != "0xtx" {
			t.Errorf("leg %d txid = %s", i, leg.TxID)
		}
	}
	if len(orderDAO.updates) != 1 || orderDAO.updates[0] != model.OrderStatusCompleted {
		t.Errorf("terminal writes = %v, want single COMPLETED", orderDAO.updates)
	}
}

func TestExecutePartialFailureRecorded(t *testing.T) {
	// Solana腿永远失败，EVM腿成功：单腿失败不回滚成功腿，整单记FAILED
	swapper := &fakeSwapper{failChain: 501}
	orderDAO := &fakeOrderDAO{}
	notifier := &fakeNotifier{}

	o := newTestOrchestrator(swapper, fundedBalanceDAO(), orderDAO, notifier)

	result, err := o.Execute(context.Background(), testOrderParams())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.Error == "" {
		t.Error("expected order-level error")
	}

	evmLeg := result.Legs[0]
	if evmLeg.Error != "" || evmLeg.TxID != "0xtx" {
		t.Errorf("evm leg = %+v, want success recorded", evmLeg)
	}

	solLeg := result.Legs[1]
	if solLeg.Error == "" {
		t.Error("expected solana leg failure")
	}
	if solLeg.Attempts != 5 {
		t.Errorf("solana leg attempts = %d, want 5", solLeg.Attempts)
	}

	// 订单级错误带上失败腿的原因，而不是一句笼统的失败
	if !strings.Contains(result.Error, "aggregator unavailable") {
		t.Errorf("order error = %q, want failing leg reason surfaced", result.Error)
	}

	if len(orderDAO.updates) != 1 || orderDAO.updates[0] != model.OrderStatusFailed {
		t.Errorf("terminal writes = %v, want single FAILED", orderDAO.updates)
	}
	if len(notifier.messages) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifier.messages))
	}
}

func TestExecuteZeroRetryConfigStillAttempts(t *testing.T) {
	// 配置绕过默认值给出0次重试时按1次执行，不能一腿都不跑
	swapper := &fakeSwapper{failures: 1 << 30}
	orderDAO := &fakeOrderDAO{}

	o := NewSwapOrchestrator(
		config.ExecutorConfig{MaxRetries: 0, LegTimeout: 5},
		[]config.ChainConfig{{ChainID: 1}},
		swapper,
		&fakeBalances{balance: big.NewInt(1000), allowance: big.NewInt(1000)},
		orderDAO, fundedBalanceDAO(), fakePricer{}, &fakeNotifier{}, zap.NewNop(),
	)

	result, err := o.Execute(context.Background(), testOrderParams())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	for i, leg := range result.Legs {
		if leg.Error == "" {
			t.Errorf("leg %d error empty, want failure recorded", i)
		}
		if leg.Attempts != 1 {
			t.Errorf("leg %d attempts = %d, want 1", i, leg.Attempts)
		}
	}
	if len(orderDAO.updates) != 1 || orderDAO.updates[0] != model.OrderStatusFailed {
		t.Errorf("terminal writes = %v, want single FAILED", orderDAO.updates)
	}
}

func TestExecuteSettlementUpdatesBalances(t *testing.T) {
	swapper := &fakeSwapper{}
	orderDAO := &fakeOrderDAO{}
	balanceDAO := fundedBalanceDAO()
	balances := &fakeBalances{balance: big.NewInt(1200), allowance: big.NewInt(1000)}

	o := NewSwapOrchestrator(
		config.ExecutorConfig{MaxRetries: 5, LegTimeout: 5},
		[]config.ChainConfig{{ChainID: 1, ExplorerURL: "https://etherscan.io", NativeSymbol: "ETH", NativeDecimals: 18}},
		swapper, balances, orderDAO, balanceDAO, fakePricer{}, &fakeNotifier{}, zap.NewNop(),
	)

	result, err := o.Execute(context.Background(), testOrderParams())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	// 两腿各刷新from/to两个代币
	balanceDAO.mu.Lock()
	upserts := len(balanceDAO.upserts)
	balanceDAO.mu.Unlock()
	if upserts != 4 {
		t.Errorf("balance upserts = %d, want 4", upserts)
	}

	evmLeg := result.Legs[0]
	// 记录1000，链上读到1200
	if evmLeg.Deltas["0xusdc"] != "200" {
		t.Errorf("usdc delta = %q, want 200", evmLeg.Deltas["0xusdc"])
	}
	if evmLeg.ExplorerURL != "https://etherscan.io/tx/0xtx" {
		t.Errorf("explorer url = %s", evmLeg.ExplorerURL)
	}
	// gas 21000000000000 wei * $2000 / 1e18
	if evmLeg.GasCostUsd != "0.042" {
		t.Errorf("gas cost usd = %s, want 0.042", evmLeg.GasCostUsd)
	}

	solLeg := result.Legs[1]
	if solLeg.ExplorerURL != "https://solscan.io/tx/0xtx" {
		t.Errorf("solana explorer url = %s", solLeg.ExplorerURL)
	}
}

package watcher

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/decoder"
	"dex-arb/internal/worker/model"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu    sync.Mutex
	waits int
}

func (c *fakeClock) Now() time.Time { return time.Unix(0, 0) }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits++
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Unix(0, 0)
	return ch
}

func (c *fakeClock) waitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waits
}

type fakeSub struct {
	errCh chan error
}

func (s *fakeSub) Unsubscribe()      {}
func (s *fakeSub) Err() <-chan error { return s.errCh }

type fakeClient struct {
	mu      sync.Mutex
	heads   chan<- *types.Header
	sub     *fakeSub
	logs    []types.Log
	filters int
}

func (c *fakeClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heads = ch
	c.sub = &fakeSub{errCh: make(chan error, 1)}
	return c.sub, nil
}

func (c *fakeClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters++
	return c.logs, nil
}

func (c *fakeClient) Close() {}

type captureSink struct {
	mu     sync.Mutex
	events []*model.DecodedSwapEvent
}

func (s *captureSink) Publish(ctx context.Context, event *model.DecodedSwapEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func newTestWatcher(sink EventSink, dial DialFunc) *ChainWatcher {
	w := NewChainWatcher(config.ChainConfig{
		ChainID: 1,
		WssURL:  "ws://localhost:8546",
	}, zap.NewNop(), decoder.NewDecoder(zap.NewNop()), sink)
	w.clock = &fakeClock{}
	w.dial = dial
	return w
}

func TestWatcherStopsAfterMaxReconnects(t *testing.T) {
	dialErr := errors.New("connection refused")
	dials := 0
	var mu sync.Mutex

	w := newTestWatcher(&captureSink{}, func(ctx context.Context, rawurl string) (ChainClient, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, dialErr
	})

	w.Start(context.Background())
	waitFor(t, func() bool { return w.State() == StateStopped })

	mu.Lock()
	got := dials
	mu.Unlock()
	if got != maxReconnects {
		t.Errorf("dial attempts = %d, want %d", got, maxReconnects)
	}
}

func TestWatcherDecodesBlockLogs(t *testing.T) {
	topic0 := common.HexToHash("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67")
	data := make([]byte, 96)
	data[31] = 100 // amount0 = 100
	data[63] = 50  // amount1 = 50

	client := &fakeClient{
		logs: []types.Log{{
			Address: common.HexToAddress("0xaaaa"),
			Topics:  []common.Hash{topic0, {}, {}},
			Data:    data,
		}},
	}

	sink := &captureSink{}
	w := newTestWatcher(sink, func(ctx context.Context, rawurl string) (ChainClient, error) {
		return client, nil
	})

	w.Start(context.Background())
	defer w.Stop()
	waitFor(t, func() bool { return w.State() == StateActive })

	client.mu.Lock()
	heads := client.heads
	client.mu.Unlock()
	heads <- &types.Header{Number: big.NewInt(100), Time: 1700000000}

	waitFor(t, func() bool { return sink.count() == 1 })

	sink.mu.Lock()
	ev := sink.events[0]
	sink.mu.Unlock()
	if ev.Token0Amount != "100" || ev.Token1Amount != "50" {
		t.Errorf("amounts = %s/%s, want 100/50", ev.Token0Amount, ev.Token1Amount)
	}
	if ev.ChainID != 1 {
		t.Errorf("chain id = %d, want 1", ev.ChainID)
	}
}

func TestWatcherSecondStartIgnored(t *testing.T) {
	dials := 0
	var mu sync.Mutex

	w := newTestWatcher(&captureSink{}, func(ctx context.Context, rawurl string) (ChainClient, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return &fakeClient{}, nil
	})

	// 连续两次Start只允许一条监听循环
	w.Start(context.Background())
	w.Start(context.Background())
	waitFor(t, func() bool { return w.State() == StateActive })

	mu.Lock()
	got := dials
	mu.Unlock()
	if got != 1 {
		t.Errorf("dial attempts = %d, want 1", got)
	}

	// Stop后可重新启动
	w.Stop()
	w.Start(context.Background())
	defer w.Stop()
	waitFor(t, func() bool { return w.State() == StateActive })

	mu.Lock()
	got = dials
	mu.Unlock()
	if got != 2 {
		t.Errorf("dial attempts after restart = %d, want 2", got)
	}
}

func TestWatcherReconnectsOnSubscriptionError(t *testing.T) {
	client := &fakeClient{}
	sink := &captureSink{}
	w := newTestWatcher(sink, func(ctx context.Context, rawurl string) (ChainClient, error) {
		return client, nil
	})

	w.Start(context.Background())
	defer w.Stop()
	waitFor(t, func() bool { return w.State() == StateActive })

	client.mu.Lock()
	sub := client.sub
	client.mu.Unlock()
	sub.errCh <- errors.New("websocket closed")

	// 断开后应重连回Active
	waitFor(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.sub != sub && w.State() == StateActive
	})
}

func TestManagerRejectsNonWebsocketURL(t *testing.T) {
	m := NewManager(zap.NewNop(), decoder.NewDecoder(zap.NewNop()), &captureSink{})
	err := m.AddChain(context.Background(), config.ChainConfig{
		ChainID: 1,
		WssURL:  "https://rpc.example.com",
	})
	if err == nil {
		t.Fatal("expected error for non-websocket url")
	}
}

func TestManagerAddRemove(t *testing.T) {
	m := NewManager(zap.NewNop(), decoder.NewDecoder(zap.NewNop()), &captureSink{})

	// AddChain会启动真实监听循环，这里用会失败的端点验证注册簿行为
	cfg := config.ChainConfig{ChainID: 56, WssURL: "ws://127.0.0.1:1"}
	if err := m.AddChain(context.Background(), cfg); err != nil {
		t.Fatalf("add chain: %v", err)
	}
	if err := m.AddChain(context.Background(), cfg); err == nil {
		t.Error("expected duplicate add to fail")
	}

	status := m.Status()
	if _, ok := status[56]; !ok {
		t.Error("expected chain 56 in status")
	}

	if err := m.RemoveChain(56); err != nil {
		t.Fatalf("remove chain: %v", err)
	}
	if err := m.RemoveChain(56); err == nil {
		t.Error("expected second remove to fail")
	}
}

package watcher

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/decoder"

	"go.uber.org/zap"
)

// Manager 管理多条链的监听器，支持运行时增删与重启
type Manager struct {
	tl   *zap.Logger
	dec  *decoder.Decoder
	sink EventSink

	mu       sync.Mutex
	watchers map[uint64]*ChainWatcher
}

func NewManager(logger *zap.Logger, dec *decoder.Decoder, sink EventSink) *Manager {
	return &Manager{
		tl:       logger,
		dec:      dec,
		sink:     sink,
		watchers: make(map[uint64]*ChainWatcher),
	}
}

// AddChain 注册并启动一条链的监听。重复添加或端点非websocket时报错。
func (m *Manager) AddChain(ctx context.Context, cfg config.ChainConfig) error {
	if !strings.HasPrefix(cfg.WssURL, "ws://") && !strings.HasPrefix(cfg.WssURL, "wss://") {
		return fmt.Errorf("chain %d: wss_url must be a websocket endpoint, got %q", cfg.ChainID, cfg.WssURL)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.watchers[cfg.ChainID]; exists {
		return fmt.Errorf("chain %d already registered", cfg.ChainID)
	}

	w := NewChainWatcher(cfg, m.tl, m.dec, m.sink)
	m.watchers[cfg.ChainID] = w
	w.Start(ctx)

	m.tl.Info("✅ chain registered", zap.Uint64("chain_id", cfg.ChainID))
	return nil
}

// RemoveChain 停止并移除一条链的监听
func (m *Manager) RemoveChain(chainID uint64) error {
	m.mu.Lock()
	w, ok := m.watchers[chainID]
	delete(m.watchers, chainID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("chain %d not registered", chainID)
	}

	w.Stop()
	m.tl.Info("chain removed", zap.Uint64("chain_id", chainID))
	return nil
}

// RestartChain 对已停止或异常的链重建监听器
func (m *Manager) RestartChain(ctx context.Context, chainID uint64) error {
	m.mu.Lock()
	old, ok := m.watchers[chainID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("chain %d not registered", chainID)
	}

	old.Stop()

	m.mu.Lock()
	w := NewChainWatcher(old.cfg, m.tl, m.dec, m.sink)
	m.watchers[chainID] = w
	m.mu.Unlock()

	w.Start(ctx)
	m.tl.Info("chain restarted", zap.Uint64("chain_id", chainID))
	return nil
}

// Status 各链当前状态快照
func (m *Manager) Status() map[uint64]State {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := make(map[uint64]State, len(m.watchers))
	for chainID, w := range m.watchers {
		status[chainID] = w.State()
	}
	return status
}

// StopAll 停止全部监听器
func (m *Manager) StopAll() {
	m.mu.Lock()
	watchers := make([]*ChainWatcher, 0, len(m.watchers))
	for _, w := range m.watchers {
		watchers = append(watchers, w)
	}
	m.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
}

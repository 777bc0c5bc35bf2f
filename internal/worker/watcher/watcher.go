package watcher

import (
	"context"
	"strconv"
	"sync"
	"time"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/decoder"
	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/monitor"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// 监听器状态机
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateActive       State = "active"
	StateReconnecting State = "reconnecting"
	StateStopped      State = "stopped"
)

const (
	reconnectDelay = 5 * time.Second
	maxReconnects  = 5
)

// ChainClient 链上订阅与查询能力，生产实现为ethclient
type ChainClient interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	Close()
}

// DialFunc 建立websocket连接
type DialFunc func(ctx context.Context, rawurl string) (ChainClient, error)

func defaultDial(ctx context.Context, rawurl string) (ChainClient, error) {
	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// EventSink 解码后事件的去处
type EventSink interface {
	Publish(ctx context.Context, event *model.DecodedSwapEvent) error
}

// KafkaSink 把解码事件写入swap事件topic，按池地址分区
type KafkaSink struct {
	mq    *kafka.Writer
	topic string
}

func NewKafkaSink(mq *kafka.Writer, topic string) *KafkaSink {
	return &KafkaSink{mq: mq, topic: topic}
}

func (s *KafkaSink) Publish(ctx context.Context, event *model.DecodedSwapEvent) error {
	data, err := sonic.Marshal(event)
	if err != nil {
		return err
	}
	return s.mq.WriteMessages(ctx, kafka.Message{
		Topic: s.topic,
		Key:   []byte(event.PoolAddress),
		Value: data,
	})
}

// ChainWatcher 单链监听器。订阅新区块头，逐块拉取swap日志并解码投递。
// 断线后固定间隔重连，连续失败次数到上限即停止并告警。
type ChainWatcher struct {
	cfg   config.ChainConfig
	tl    *zap.Logger
	dec   *decoder.Decoder
	sink  EventSink
	clock Clock
	dial  DialFunc

	mu      sync.RWMutex
	state   State
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewChainWatcher(cfg config.ChainConfig, logger *zap.Logger, dec *decoder.Decoder, sink EventSink) *ChainWatcher {
	return &ChainWatcher{
		cfg:   cfg,
		tl:    logger.With(zap.Uint64("chain_id", cfg.ChainID)),
		dec:   dec,
		sink:  sink,
		clock: NewRealClock(),
		dial:  defaultDial,
		state: StateDisconnected,
	}
}

func (w *ChainWatcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *ChainWatcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Start 启动监听循环。已在运行时为无害操作，只记一条告警。
func (w *ChainWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		w.tl.Warn("⚠️ chain watcher already running, start ignored")
		return
	}
	w.started = true
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.run(runCtx)
}

// Stop 停止监听，幂等
func (w *ChainWatcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.started = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (w *ChainWatcher) run(ctx context.Context) {
	defer close(w.done)

	attempts := 0
	for {
		if ctx.Err() != nil {
			w.setState(StateStopped)
			return
		}

		w.setState(StateConnecting)
		activated, err := w.watch(ctx)
		if ctx.Err() != nil {
			w.setState(StateStopped)
			w.tl.Info("chain watcher stopped")
			return
		}

		// 连上过就清零，只数连续失败
		if activated {
			attempts = 0
		}
		attempts++
		monitor.WatcherReconnects.WithLabelValues(strconv.FormatUint(w.cfg.ChainID, 10)).Inc()
		if attempts >= maxReconnects {
			w.setState(StateStopped)
			w.tl.Error("❌ chain watcher gave up after max reconnect attempts",
				zap.Int("attempts", attempts),
				zap.Error(err))
			return
		}

		w.setState(StateReconnecting)
		w.tl.Warn("⌛ chain connection lost, reconnecting",
			zap.Int("attempt", attempts),
			zap.Error(err))

		select {
		case <-ctx.Done():
			w.setState(StateStopped)
			return
		case <-w.clock.After(reconnectDelay):
		}
	}
}

// watch 单次连接生命周期：建连、订阅、逐块处理，返回导致退出的错误
func (w *ChainWatcher) watch(ctx context.Context) (bool, error) {
	client, err := w.dial(ctx, w.cfg.WssURL)
	if err != nil {
		return false, err
	}
	defer client.Close()

	heads := make(chan *types.Header, 16)
	sub, err := client.SubscribeNewHead(ctx, heads)
	if err != nil {
		return false, err
	}
	defer sub.Unsubscribe()

	w.setState(StateActive)
	w.tl.Info("✅ chain watcher connected", zap.String("wss", w.cfg.WssURL))

	chainLabel := strconv.FormatUint(w.cfg.ChainID, 10)
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case err := <-sub.Err():
			return true, err
		case head := <-heads:
			monitor.BlocksReceived.WithLabelValues(chainLabel).Inc()
			w.processBlock(ctx, client, head)
		}
	}
}

// processBlock 拉取该区块内全部可识别的swap日志并逐条解码投递。
// 单块失败只记日志，不中断订阅。
func (w *ChainWatcher) processBlock(ctx context.Context, client ChainClient, head *types.Header) {
	blockHash := head.Hash()
	logs, err := client.FilterLogs(ctx, ethereum.FilterQuery{
		BlockHash: &blockHash,
		Topics:    [][]common.Hash{w.dec.Topics()},
	})
	if err != nil {
		w.tl.Warn("⚠️ filter logs failed, block skipped",
			zap.Uint64("block", head.Number.Uint64()),
			zap.Error(err))
		return
	}

	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		event, ok := w.dec.Decode(w.cfg.ChainID, head.Time, lg)
		if !ok {
			continue
		}

		if err := w.sink.Publish(ctx, event); err != nil {
			w.tl.Error("❌ publish swap event failed",
				zap.String("pool", event.PoolAddress),
				zap.Error(err))
			continue
		}
		monitor.SwapsDecoded.WithLabelValues(event.Dex).Inc()
	}
}

package router

import (
	"context"
	"strings"
	"sync"
	"time"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/monitor"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventRouter 把补全后的swap事件按策略类型投递到对应队列。
// 每种策略类型一个topic，writer首次使用时创建并复用。
type EventRouter struct {
	cfg    config.KafkaConfig
	tl     *zap.Logger
	mu     sync.Mutex
	queues map[string]*kafka.Writer
}

func NewEventRouter(cfg config.KafkaConfig, logger *zap.Logger) *EventRouter {
	return &EventRouter{
		cfg:    cfg,
		tl:     logger,
		queues: make(map[string]*kafka.Writer),
	}
}

// Route 投递事件到策略队列。事件未关联策略时直接丢弃。
func (r *EventRouter) Route(ctx context.Context, event *model.EnrichedSwapEvent) error {
	if event.Strategy == nil || event.Strategy.Type == "" {
		return nil
	}

	writer := r.writerFor(event.Strategy.Type)

	data, err := sonic.Marshal(event)
	if err != nil {
		return err
	}

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PoolAddress),
		Value: data,
	})
	if err != nil {
		r.tl.Error("❌ route swap event failed",
			zap.String("strategy_type", event.Strategy.Type),
			zap.Error(err))
		return err
	}

	monitor.EventsRouted.WithLabelValues(event.Strategy.Type).Inc()
	return nil
}

// writerFor 返回该策略类型的writer，不存在则新建
func (r *EventRouter) writerFor(strategyType string) *kafka.Writer {
	topic := r.cfg.StrategyTopicPrefix + strategyType

	r.mu.Lock()
	defer r.mu.Unlock()

	if writer, ok := r.queues[topic]; ok {
		return writer
	}

	brokers := strings.Split(r.cfg.Brokers, ",")
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  5,
		WriteTimeout: 500 * time.Millisecond,
	}
	r.queues[topic] = writer
	r.tl.Info("✅ strategy queue created", zap.String("topic", topic))
	return writer
}

// CloseAll 关闭全部策略队列writer
func (r *EventRouter) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for topic, writer := range r.queues {
		if err := writer.Close(); err != nil {
			r.tl.Warn("close strategy queue failed", zap.String("topic", topic), zap.Error(err))
		}
	}
	r.queues = make(map[string]*kafka.Writer)
}

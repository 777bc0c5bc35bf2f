package consumer

import (
	"context"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/monitor"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const strategyMaxAttempts = 3

// EnrichedHandler 策略事件的下游处理（扫描与执行管线）
type EnrichedHandler interface {
	HandleEnriched(ctx context.Context, event *model.EnrichedSwapEvent) error
}

// StrategyConsumer 消费单一策略类型的队列。处理失败做有限次重试，
// 重试耗尽只记日志与指标，不回队，避免坏消息堵死整条队列。
type StrategyConsumer struct {
	*Consumer
	id           string
	strategyType string
	handler      EnrichedHandler
	ctx          context.Context
}

// NewStrategyConsumer 创建 StrategyConsumer 实例
func NewStrategyConsumer(conf config.Config, logger *zap.Logger, strategyType string, h EnrichedHandler) *StrategyConsumer {
	topic := conf.Kafka.StrategyTopicPrefix + strategyType
	return &StrategyConsumer{
		id:           "strategy_consumer_" + strategyType,
		strategyType: strategyType,
		Consumer:     NewConsumer(conf.Kafka, logger, topic),
		handler:      h,
	}
}

// Run 启动策略消费者
func (stc *StrategyConsumer) Run(ctx context.Context) {
	stc.ctx = ctx
	stc.Consumer.Start(ctx, stc)
}

// HandleMessage 实现 MessageHandler 接口。
// 策略事件串行处理，同一队列里前一单没出结果不开下一单。
func (stc *StrategyConsumer) HandleMessage(msg kafka.Message) {
	monitor.KafkaMessagesReceived.WithLabelValues("strategy_" + stc.strategyType).Inc()

	var event model.EnrichedSwapEvent
	if err := sonic.Unmarshal(msg.Value, &event); err != nil {
		stc.logger.Warn("❌ JSON Parse Error", zap.String("consumerID", stc.id), zap.Error(err), zap.String("raw", string(msg.Value)))
		return
	}

	ctx := stc.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 1; attempt <= strategyMaxAttempts; attempt++ {
		if err := stc.handler.HandleEnriched(ctx, &event); err != nil {
			lastErr = err
			stc.logger.Warn("⚠️ strategy event handling failed",
				zap.String("consumerID", stc.id),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		return
	}

	monitor.ScansTotal.WithLabelValues("handler_exhausted").Inc()
	stc.logger.Error("❌ strategy event dropped after retries",
		zap.String("consumerID", stc.id),
		zap.String("pool", event.PoolAddress),
		zap.Error(lastErr))
}

func (stc *StrategyConsumer) ID() string {
	return stc.id
}

package consumer

import (
	"context"
	"hash/crc32"
	"strconv"
	"time"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/handler"
	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/monitor"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// SwapConsumer 消费解码后的swap事件。按池地址hash分发，
// 同一池子的事件始终落在同一个worker上，保持处理顺序。
type SwapConsumer struct {
	*Consumer
	id          string
	workerSize  int
	buffers     []chan model.DecodedSwapEvent
	swapHandler *handler.SwapHandler
}

// NewSwapConsumer 创建 SwapConsumer 实例
func NewSwapConsumer(conf config.Config, logger *zap.Logger, swapHandler *handler.SwapHandler) *SwapConsumer {
	newConsumer := NewConsumer(conf.Kafka, logger, conf.Kafka.TopicSwap)

	workerSize := conf.Worker.WorkerNum
	buffers := make([]chan model.DecodedSwapEvent, workerSize)
	for i := 0; i < workerSize; i++ {
		buffers[i] = make(chan model.DecodedSwapEvent, 2000)
	}

	return &SwapConsumer{
		id:          "swap_consumer",
		workerSize:  workerSize,
		Consumer:    newConsumer,
		buffers:     buffers,
		swapHandler: swapHandler,
	}
}

// Run 启动swap消费者
func (sc *SwapConsumer) Run(ctx context.Context) {
	for i := 0; i < sc.workerSize; i++ {
		idx := i
		go func() {
			workerID := strconv.Itoa(idx)
			for {
				select {
				case event, ok := <-sc.buffers[idx]:
					if !ok {
						sc.logger.Warn("❌ buffer is closed", zap.String("consumerID", sc.id), zap.Int("idx", idx))
						return
					}
					startTime := time.Now()
					sc.swapHandler.HandleSwap(event)

					// 统计消息处理次数与耗时
					elapsed := time.Since(startTime).Seconds()
					monitor.KafkaWorkerMessagesProcessed.WithLabelValues(workerID).Inc()
					monitor.KafkaWorkerProcessDuration.WithLabelValues(workerID).Observe(elapsed)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// 启动消费者
	time.Sleep(time.Second * 5) // 等待前面的组件准备完成
	sc.Consumer.Start(ctx, sc)
}

// HandleMessage 实现 MessageHandler 接口
func (sc *SwapConsumer) HandleMessage(msg kafka.Message) {
	monitor.KafkaMessagesReceived.WithLabelValues("swap").Inc()

	var event model.DecodedSwapEvent
	if err := sonic.Unmarshal(msg.Value, &event); err != nil {
		sc.logger.Warn("❌ JSON Parse Error", zap.String("consumerID", sc.id), zap.Error(err), zap.String("raw", string(msg.Value)))
		return
	}

	if event.PoolAddress == "" {
		return
	}

	sc.dispatch(event)
}

func (sc *SwapConsumer) ID() string {
	return sc.id
}

// Stop 停止swap消费者
func (sc *SwapConsumer) Stop() error {
	if err := sc.Consumer.Stop(); err != nil {
		return err
	}

	for i := 0; i < sc.workerSize; i++ {
		close(sc.buffers[i])
	}

	sc.swapHandler.Stop()
	return nil
}

// dispatch 按 chain:pool 分组，保证单池有序
func (sc *SwapConsumer) dispatch(event model.DecodedSwapEvent) {
	idx := sc.hashBy(strconv.FormatUint(event.ChainID, 10) + ":" + event.PoolAddress)

	// 检测 buffer 是否接近满载，触发短暂休眠
	if len(sc.buffers[idx]) > cap(sc.buffers[idx])*8/10 {
		time.Sleep(100 * time.Millisecond)
	}

	select {
	case sc.buffers[idx] <- event:
		monitor.KafkaWorkerMessagesDispatched.WithLabelValues(strconv.Itoa(int(idx))).Inc()
	default:
		sc.logger.Warn("❌ buffers is full", zap.String("consumerID", sc.id), zap.Any("idx", idx))
	}
}

func (sc *SwapConsumer) hashBy(key string) uint32 {
	return crc32.ChecksumIEEE([]byte(key)) % uint32(sc.workerSize)
}

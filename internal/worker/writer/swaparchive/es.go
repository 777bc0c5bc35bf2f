package swaparchive

import (
	"context"
	"fmt"
	"time"

	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/writer"
	"dex-arb/pkg/elasticsearch"

	"go.uber.org/zap"
)

// ESSwapWriter 把补全后的swap事件归档到Elasticsearch，供离线回放与排查
type ESSwapWriter struct {
	esClient *elasticsearch.Client
	logger   *zap.Logger
	index    string
}

func NewESSwapWriter(esClient *elasticsearch.Client, logger *zap.Logger, index string) writer.BatchWriter[model.EnrichedSwapEvent] {
	return &ESSwapWriter{
		esClient: esClient,
		logger:   logger,
		index:    index,
	}
}

func (w *ESSwapWriter) BWrite(ctx context.Context, events []model.EnrichedSwapEvent) error {
	if len(events) == 0 {
		return nil
	}

	operations := make([]elasticsearch.BulkOperation, 0, len(events))
	for _, event := range events {
		operations = append(operations, elasticsearch.BulkOperation{
			Action:   "index",
			Index:    w.index,
			ID:       w.generateDocID(&event),
			Document: w.convertToESDoc(&event),
		})
	}

	if err := w.esClient.BulkWrite(ctx, operations); err != nil {
		w.logger.Error("❌ archive swap events failed", zap.Int("count", len(events)), zap.Error(err))
		return err
	}
	return nil
}

func (w *ESSwapWriter) Close() error {
	return nil
}

// generateDocID 同一区块内同一池子的重复投递会覆盖写，归档天然幂等
func (w *ESSwapWriter) generateDocID(event *model.EnrichedSwapEvent) string {
	return fmt.Sprintf("%d_%d_%s_%s", event.ChainID, event.BlockNumber, event.PoolAddress, event.Token0Amount)
}

func (w *ESSwapWriter) convertToESDoc(event *model.EnrichedSwapEvent) map[string]interface{} {
	doc := map[string]interface{}{
		"chain_id":       event.ChainID,
		"block_number":   event.BlockNumber,
		"block_hash":     event.BlockHash,
		"pool_address":   event.PoolAddress,
		"sender_address": event.SenderAddress,
		"dex":            event.Pool.DexName,
		"fee":            event.Pool.Fee,

		"token0_symbol":    event.Token0.Symbol,
		"token0_amount":    event.Token0.Amount,
		"token0_formatted": event.Token0.AmountFormatted,
		"token1_symbol":    event.Token1.Symbol,
		"token1_amount":    event.Token1.Amount,
		"token1_formatted": event.Token1.AmountFormatted,

		"size_class":    event.Analysis.SizeClass,
		"swap_size_usd": event.Analysis.SwapSizeUsd,
		"direction":     event.Analysis.Direction,
	}

	if event.SqrtPriceX96 != "" {
		doc["sqrt_price_x96"] = event.SqrtPriceX96
	}
	if event.Strategy != nil {
		doc["strategy_id"] = event.Strategy.ID
		doc["strategy_type"] = event.Strategy.Type
	}
	if event.BlockTimestamp > 0 {
		doc["block_time"] = time.Unix(event.BlockTimestamp, 0)
	}
	doc["decoded_at"] = time.UnixMilli(event.Timestamp)

	return doc
}

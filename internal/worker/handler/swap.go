package handler

import (
	"context"

	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/router"
	"dex-arb/internal/worker/service"
	"dex-arb/internal/worker/writer"

	"go.uber.org/zap"
)

// SwapHandler 解码事件的处理管线：补全、归档、路由到策略队列
type SwapHandler struct {
	enricher *service.EventEnricher
	router   *router.EventRouter
	archive  *writer.AsyncBatchWriter[model.EnrichedSwapEvent]
	tl       *zap.Logger
}

// NewSwapHandler archive可为nil，未配置ES时跳过归档
func NewSwapHandler(enricher *service.EventEnricher, eventRouter *router.EventRouter, archive *writer.AsyncBatchWriter[model.EnrichedSwapEvent], logger *zap.Logger) *SwapHandler {
	return &SwapHandler{
		enricher: enricher,
		router:   eventRouter,
		archive:  archive,
		tl:       logger,
	}
}

func (h *SwapHandler) HandleSwap(event model.DecodedSwapEvent) {
	ctx := context.Background()

	enriched, err := h.enricher.Enrich(ctx, &event)
	if err != nil {
		h.tl.Error("❌ enrich swap event failed",
			zap.String("pool", event.PoolAddress),
			zap.Uint64("chain_id", event.ChainID),
			zap.Error(err))
		return
	}
	if enriched == nil {
		// 未登记的池子
		return
	}

	if h.archive != nil {
		h.archive.Submit(*enriched)
	}

	// 路由失败只记日志，归档已完成，事件不重放
	_ = h.router.Route(ctx, enriched)
}

func (h *SwapHandler) Stop() {
	if h.archive != nil {
		h.archive.Close()
	}
	h.router.CloseAll()
}

package job

import (
	"context"
	"time"

	"dex-arb/internal/worker/service"
)

// PriceRefreshInterval 现货价格预热周期
const PriceRefreshInterval = 30 * time.Second

// NewPriceRefreshJob 周期刷新主流币现货价，避免USD估值走冷路径
func NewPriceRefreshJob(prices *service.PriceService) JobFunc {
	return func(ctx context.Context) error {
		prices.Refresh(ctx)
		return nil
	}
}

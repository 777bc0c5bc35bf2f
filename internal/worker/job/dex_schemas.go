package job

import (
	"context"
	"strings"

	"dex-arb/internal/worker/dao"
	"dex-arb/internal/worker/decoder"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// NewDexSchemaLoadJob 启动时把dex目录里的swap topic补进解码表。
// 同族分叉盘（V2四金额、V3有符号对、V4池子在topic里）共用事件布局，
// 按名字后缀推断即可，推断不了的跳过并告警。
func NewDexSchemaLoadJob(poolDAO dao.PoolDAO, dec *decoder.Decoder, logger *zap.Logger) JobFunc {
	return func(ctx context.Context) error {
		dexes, err := poolDAO.ListDexes(ctx)
		if err != nil {
			return err
		}

		for _, dex := range dexes {
			if dex.SwapTopic == "" {
				continue
			}

			schema, ok := schemaForDex(dex.Name)
			if !ok {
				logger.Warn("⚠️ dex has unknown event layout, skipped",
					zap.String("dex", dex.Name),
					zap.String("topic", dex.SwapTopic))
				continue
			}

			dec.Register(common.HexToHash(dex.SwapTopic), schema)
			logger.Info("✅ dex swap layout registered",
				zap.String("dex", dex.Name),
				zap.String("topic", dex.SwapTopic))
		}
		return nil
	}
}

func schemaForDex(name string) (decoder.Schema, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, "v2"):
		return decoder.Schema{Dex: name, FourAmount: true, PoolTopic: -1, SenderTopic: 1, SqrtPriceWord: -1}, true
	case strings.HasSuffix(lower, "v3"):
		return decoder.Schema{Dex: name, PoolTopic: -1, SenderTopic: 1, SqrtPriceWord: 2}, true
	case strings.HasSuffix(lower, "v4"):
		return decoder.Schema{Dex: name, PoolTopic: 1, SenderTopic: 2, SqrtPriceWord: 2}, true
	default:
		return decoder.Schema{}, false
	}
}

package dao

import (
	"context"

	"dex-arb/internal/worker/model"
)

// PoolDAO 池子目录访问接口
type PoolDAO interface {
	// FindPoolByAddress 按链与池地址查池子，未登记返回nil
	FindPoolByAddress(ctx context.Context, chainID uint64, poolAddress string) (*model.Pool, error)

	// FindPoolsByStrategy 查同一策略下的全部池子
	FindPoolsByStrategy(ctx context.Context, strategyID string) ([]*model.Pool, error)

	// ListDexes 加载dex目录，用于补充解码布局
	ListDexes(ctx context.Context) ([]*model.Dex, error)
}

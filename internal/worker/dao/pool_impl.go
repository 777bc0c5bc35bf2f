package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"dex-arb/internal/worker/model"
	"dex-arb/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// poolDAO 实现PoolDAO接口
type poolDAO struct {
	db         *gorm.DB
	rds        *redis.Client
	localCache *cache.Cache
}

// NewPoolDAO 创建PoolDAO实例
func NewPoolDAO(db *gorm.DB, rds *redis.Client) PoolDAO {
	localCache := cache.New(10*time.Minute, time.Minute)
	return &poolDAO{
		db:         db,
		rds:        rds,
		localCache: localCache,
	}
}

// FindPoolByAddress 按链与池地址查池子，未登记返回nil。
// 空结果也缓存，避免未知池子反复打库。
func (p *poolDAO) FindPoolByAddress(ctx context.Context, chainID uint64, poolAddress string) (*model.Pool, error) {
	poolAddress = strings.ToLower(poolAddress)
	cacheKey := utils.PoolKey(chainID, poolAddress)

	// 先查本地缓存
	if cached, found := p.localCache.Get(cacheKey); found {
		if pool, ok := cached.(*model.Pool); ok {
			return pool, nil
		}
	}

	// 再查Redis缓存
	cached, err := p.rds.Get(ctx, cacheKey).Result()
	if err == nil {
		if cached == "null" {
			return nil, nil
		}

		var pool model.Pool
		if sonic.Unmarshal([]byte(cached), &pool) == nil {
			p.localCache.Set(cacheKey, &pool, cache.DefaultExpiration)
			return &pool, nil
		}
	}

	// 查数据库
	var pool model.Pool
	err = p.db.WithContext(ctx).
		Preload("Token0.Addresses").
		Preload("Token1.Addresses").
		Preload("Dex").
		Preload("Strategy").
		Where("chain_id = ? AND lower(pool_address) = ?", chainID, poolAddress).
		First(&pool).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 缓存空结果，避免缓存穿透
			p.localCache.Set(cacheKey, (*model.Pool)(nil), 1*time.Minute)
			p.rds.Set(ctx, cacheKey, "null", 1*time.Minute)
			return nil, nil
		}
		return nil, err
	}

	p.localCache.Set(cacheKey, &pool, cache.DefaultExpiration)
	if data, err := sonic.Marshal(&pool); err == nil {
		p.rds.Set(ctx, cacheKey, string(data), 30*time.Minute)
	}
	return &pool, nil
}

// FindPoolsByStrategy 查同一策略下的全部池子
func (p *poolDAO) FindPoolsByStrategy(ctx context.Context, strategyID string) ([]*model.Pool, error) {
	cacheKey := utils.StrategyPoolsKey(strategyID)

	if cached, found := p.localCache.Get(cacheKey); found {
		if pools, ok := cached.([]*model.Pool); ok {
			return pools, nil
		}
	}

	var pools []*model.Pool
	err := p.db.WithContext(ctx).
		Preload("Token0.Addresses").
		Preload("Token1.Addresses").
		Preload("Dex").
		Preload("Strategy").
		Where("strategy_id = ?", strategyID).
		Find(&pools).Error

	if err != nil {
		return nil, err
	}

	// 策略池子集合会被执行路径当场复查报价，缓存时间给短一些
	p.localCache.Set(cacheKey, pools, time.Minute)
	return pools, nil
}

// ListDexes 加载dex目录
func (p *poolDAO) ListDexes(ctx context.Context) ([]*model.Dex, error) {
	var dexes []*model.Dex
	err := p.db.WithContext(ctx).Find(&dexes).Error
	if err != nil {
		return nil, err
	}
	return dexes, nil
}

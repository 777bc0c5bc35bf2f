package service

import (
	"context"
	"fmt"
	"time"

	"dex-arb/pkg/bybit"
	"dex-arb/pkg/utils"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 主流币符号归一到交易所现货交易对
var oracleSymbols = map[string]string{
	"ETH":  "ETH",
	"WETH": "ETH",
	"BTC":  "BTC",
	"WBTC": "BTC",
	"BNB":  "BNB",
	"WBNB": "BNB",
	"SOL":  "SOL",
	"WSOL": "SOL",
}

// TokenPricer USD估值用的价格源
type TokenPricer interface {
	// GetTokenPrice 返回代币对USDT的现货价，不支持的符号报错
	GetTokenPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PriceService 现货价格服务。本地缓存优先，miss时打Bybit并回写Redis共享。
type PriceService struct {
	bybit      *bybit.Client
	rds        *redis.Client
	localCache *cache.Cache
	tl         *zap.Logger
}

func NewPriceService(bybitClient *bybit.Client, rds *redis.Client, logger *zap.Logger) *PriceService {
	return &PriceService{
		bybit:      bybitClient,
		rds:        rds,
		localCache: cache.New(time.Minute, 10*time.Second),
		tl:         logger,
	}
}

// OracleSymbol 返回该符号对应的现货交易对基础符号，不支持返回false
func OracleSymbol(symbol string) (string, bool) {
	base, ok := oracleSymbols[symbol]
	return base, ok
}

func (p *PriceService) GetTokenPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	base, ok := oracleSymbols[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no spot market for symbol %s", symbol)
	}

	if cached, found := p.localCache.Get(base); found {
		if price, ok := cached.(decimal.Decimal); ok {
			return price, nil
		}
	}

	// Redis里可能有别的实例刚刷过
	if p.rds != nil {
		if cached, err := p.rds.Get(ctx, utils.SpotPriceKey(base)).Result(); err == nil {
			if price, err := decimal.NewFromString(cached); err == nil {
				p.localCache.Set(base, price, cache.DefaultExpiration)
				return price, nil
			}
		}
	}

	raw, err := p.bybit.GetPrice(ctx, base)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q for %s: %w", raw, base, err)
	}

	p.store(ctx, base, price)
	return price, nil
}

// Refresh 预热全部主流币价格，由定时任务驱动
func (p *PriceService) Refresh(ctx context.Context) {
	seen := make(map[string]bool)
	for _, base := range oracleSymbols {
		if seen[base] {
			continue
		}
		seen[base] = true

		raw, err := p.bybit.GetPrice(ctx, base)
		if err != nil {
			p.tl.Warn("⚠️ refresh spot price failed", zap.String("symbol", base), zap.Error(err))
			continue
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			p.tl.Warn("⚠️ bad spot price payload", zap.String("symbol", base), zap.String("raw", raw))
			continue
		}
		p.store(ctx, base, price)
	}
}

func (p *PriceService) store(ctx context.Context, base string, price decimal.Decimal) {
	p.localCache.Set(base, price, cache.DefaultExpiration)
	if p.rds != nil {
		p.rds.Set(ctx, utils.SpotPriceKey(base), price.String(), 2*time.Minute)
	}
}

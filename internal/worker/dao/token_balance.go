package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"dex-arb/internal/worker/model"
	"dex-arb/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenBalanceDAO 钱包余额与授权记录访问接口
type TokenBalanceDAO interface {
	// Find 查某链某代币的余额记录，未记录返回nil
	Find(ctx context.Context, chainID uint64, tokenAddress string) (*model.TokenBalance, error)

	// Upsert 按(chain_id, address)更新余额与授权
	Upsert(ctx context.Context, balance *model.TokenBalance) error
}

type tokenBalanceDAO struct {
	db  *gorm.DB
	rds *redis.Client
}

func NewTokenBalanceDAO(db *gorm.DB, rds *redis.Client) TokenBalanceDAO {
	return &tokenBalanceDAO{db: db, rds: rds}
}

func (t *tokenBalanceDAO) Find(ctx context.Context, chainID uint64, tokenAddress string) (*model.TokenBalance, error) {
	tokenAddress = strings.ToLower(tokenAddress)
	cacheKey := utils.TokenBalanceKey(chainID, tokenAddress)

	cached, err := t.rds.Get(ctx, cacheKey).Result()
	if err == nil {
		var balance model.TokenBalance
		if sonic.Unmarshal([]byte(cached), &balance) == nil {
			return &balance, nil
		}
	}

	var balance model.TokenBalance
	err = t.db.WithContext(ctx).
		Where("chain_id = ? AND lower(address) = ?", chainID, tokenAddress).
		First(&balance).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if data, err := sonic.Marshal(&balance); err == nil {
		t.rds.Set(ctx, cacheKey, string(data), 5*time.Minute)
	}
	return &balance, nil
}

func (t *tokenBalanceDAO) Upsert(ctx context.Context, balance *model.TokenBalance) error {
	balance.UpdatedAt = time.Now()
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain_id"}, {Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "current_allowance", "decimals", "updated_at"}),
	}).Create(balance).Error
	if err != nil {
		return err
	}

	// 同步刷新缓存，执行路径的预检读这里
	cacheKey := utils.TokenBalanceKey(balance.ChainID, strings.ToLower(balance.Address))
	if data, err := sonic.Marshal(balance); err == nil {
		t.rds.Set(ctx, cacheKey, string(data), 5*time.Minute)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"dex-arb/internal/worker/config"
	"dex-arb/pkg/database"
	"dex-arb/pkg/elasticsearch"
	"dex-arb/pkg/evm_client"
	"dex-arb/pkg/solana_client"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var once sync.Once
var r *repositoryImpl

func New(cfg config.Config, logger *zap.Logger) Repository {
	once.Do(func() {
		r = &repositoryImpl{
			cfg:    cfg,
			logger: logger,
		}
		r.init()
	})
	return r
}

type repositoryImpl struct {
	cfg          config.Config
	logger       *zap.Logger
	db           *gorm.DB
	mainRdb      *redis.Client
	mq           *kafka.Writer
	es           *elasticsearch.Client
	solanaClient *rpc.Client

	evmMu      sync.RWMutex
	evmClients map[uint64]*ethclient.Client
	rpcURLs    map[uint64]string
}

func (r *repositoryImpl) init() {
	var err error
	r.db, err = database.InitPG(r.cfg.Postgres.DSN)

	if err != nil {
		panic(err)
	}

	// 初始化 Main RDB
	r.mainRdb = redis.NewClient(&redis.Options{
		Addr:     r.cfg.Redis.Address,
		Password: r.cfg.Redis.Password,
		DB:       r.cfg.Redis.DB,
		PoolSize: 20,
	})

	if err := r.mainRdb.Ping(context.Background()).Err(); err != nil {
		r.logger.Warn("failed to connect to redis, continue", zap.Error(err))
	}

	brokers := strings.Split(r.cfg.Kafka.Brokers, ",")
	r.mq = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    1000,
		BatchBytes:   1024 * 1024, // 1MB
		Async:        true,
		RequiredAcks: kafka.RequireNone,
		Compression:  kafka.Snappy,
		// 添加连接控制
		MaxAttempts:  5,
		WriteTimeout: 500 * time.Millisecond,
	}

	// ES（可选，地址为空则跳过）
	if len(r.cfg.Elasticsearch.Addresses) > 0 {
		r.es, err = elasticsearch.NewClient(elasticsearch.Config{
			Addresses: r.cfg.Elasticsearch.Addresses,
			Username:  r.cfg.Elasticsearch.Username,
			Password:  r.cfg.Elasticsearch.Password,
		}, r.logger)
		if err != nil {
			r.logger.Warn("failed to connect to elasticsearch, continue without it", zap.Error(err))
		}
	} else {
		r.logger.Info("elasticsearch addresses empty, skip es initialization")
	}

	// EVM客户端按chain_id懒加载，先记录各链的HTTP RPC端点
	r.evmClients = make(map[uint64]*ethclient.Client)
	r.rpcURLs = make(map[uint64]string)
	for _, chain := range r.cfg.Chains {
		r.rpcURLs[chain.ChainID] = chain.RpcURL
	}

	r.solanaClient = solana_client.Init(r.cfg.Solana.RpcURL)
}

func (r *repositoryImpl) GetMainRDB() *redis.Client {
	return r.mainRdb
}

func (r *repositoryImpl) GetDB() *gorm.DB {
	return r.db
}

func (r *repositoryImpl) GetMQ() MQClient {
	return r.mq
}

func (r *repositoryImpl) GetES() *elasticsearch.Client {
	return r.es
}

func (r *repositoryImpl) GetEvmClient(chainID uint64) (*ethclient.Client, error) {
	r.evmMu.RLock()
	client, ok := r.evmClients[chainID]
	r.evmMu.RUnlock()
	if ok {
		return client, nil
	}

	r.evmMu.Lock()
	defer r.evmMu.Unlock()
	if client, ok := r.evmClients[chainID]; ok {
		return client, nil
	}

	rawurl, ok := r.rpcURLs[chainID]
	if !ok || rawurl == "" {
		return nil, fmt.Errorf("no rpc url configured for chain %d", chainID)
	}

	client, err := evm_client.Dial(context.Background(), rawurl)
	if err != nil {
		return nil, err
	}
	r.evmClients[chainID] = client
	return client, nil
}

func (r *repositoryImpl) GetSolanaClient() *rpc.Client {
	return r.solanaClient
}

func (r *repositoryImpl) Close() error {
	if r.db != nil {
		sqlDB, _ := r.db.DB()
		sqlDB.Close()
	}
	if r.mainRdb != nil {
		r.mainRdb.Close()
	}
	if r.mq != nil {
		r.mq.Close()
	}
	r.evmMu.Lock()
	for _, client := range r.evmClients {
		client.Close()
	}
	r.evmMu.Unlock()
	return nil
}

package repository

import (
	"dex-arb/pkg/elasticsearch"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

type RedisClient = *redis.Client
type DBClient = *gorm.DB
type MQClient = *kafka.Writer

type Repository interface {
	//DB
	GetMainRDB() RedisClient
	GetDB() DBClient
	GetMQ() MQClient
	GetES() *elasticsearch.Client
	// GetEvmClient 按chain_id返回HTTP RPC客户端，未配置的链报错
	GetEvmClient(chainID uint64) (*ethclient.Client, error)
	GetSolanaClient() *rpc.Client
	Close() error
}

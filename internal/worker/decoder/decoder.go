package decoder

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"dex-arb/internal/worker/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Schema 描述一种DEX的Swap事件布局，按topic0查表解码
type Schema struct {
	Dex           string
	FourAmount    bool // V2系: data为 amount0In/amount1In/amount0Out/amount1Out 四个无符号量
	PoolTopic     int  // 池地址所在topic下标，-1表示取log.Address
	SenderTopic   int  // 发起方所在topic下标
	SqrtPriceWord int  // sqrtPriceX96所在data字下标，-1表示无
}

var builtinSchemas = map[common.Hash]Schema{
	// UniswapV2 / PancakeV2: Swap(address,uint256,uint256,uint256,uint256,address)
	common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822"): {
		Dex:           "uniswapV2",
		FourAmount:    true,
		PoolTopic:     -1,
		SenderTopic:   1,
		SqrtPriceWord: -1,
	},
	// UniswapV3: Swap(address,address,int256,int256,uint160,uint128,int24)
	common.HexToHash("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67"): {
		Dex:           "uniswapV3",
		PoolTopic:     -1,
		SenderTopic:   1,
		SqrtPriceWord: 2,
	},
	// PancakeV3: Swap(address,address,int256,int256,uint160,uint128,int24,uint128,uint128)
	common.HexToHash("0x19b47279256b2a23a1665c810c8d55a1758940ee09377d4f8d26497a3577dc83"): {
		Dex:           "pancakeV3",
		PoolTopic:     -1,
		SenderTopic:   1,
		SqrtPriceWord: 2,
	},
	// UniswapV4: Swap(bytes32 indexed id, address indexed sender, int128, int128, uint160, uint128, int24, uint24)
	common.HexToHash("0x40e9cecb9f5f1f1c5b9c97dec2917b7ee92e57ba5563708daca94dd84ad7112f"): {
		Dex:           "uniswapV4",
		PoolTopic:     1,
		SenderTopic:   2,
		SqrtPriceWord: 2,
	},
}

var (
	signBoundary = new(big.Int).Lsh(big.NewInt(1), 255)
	twoPow256    = new(big.Int).Lsh(big.NewInt(1), 256)
)

// DecodeInt256 按补码解释32字节字，u >= 2^255 时视为负数
func DecodeInt256(word []byte) *big.Int {
	u := new(big.Int).SetBytes(word)
	if u.Cmp(signBoundary) >= 0 {
		u.Sub(u, twoPow256)
	}
	return u
}

// Decoder 解码表。Register与监听路径的Topics/Decode并发使用，读写锁保护。
type Decoder struct {
	tl *zap.Logger

	mu      sync.RWMutex
	schemas map[common.Hash]Schema
}

func NewDecoder(logger *zap.Logger) *Decoder {
	schemas := make(map[common.Hash]Schema, len(builtinSchemas))
	for topic, s := range builtinSchemas {
		schemas[topic] = s
	}
	return &Decoder{tl: logger, schemas: schemas}
}

// Register 允许从dex目录表补充新布局，同topic0覆盖
func (d *Decoder) Register(topic common.Hash, schema Schema) {
	d.mu.Lock()
	d.schemas[topic] = schema
	d.mu.Unlock()
}

// Topics 返回全部可识别的topic0，用于构造FilterLogs查询
func (d *Decoder) Topics() []common.Hash {
	d.mu.RLock()
	defer d.mu.RUnlock()

	topics := make([]common.Hash, 0, len(d.schemas))
	for topic := range d.schemas {
		topics = append(topics, topic)
	}
	return topics
}

// Decode 解析单条日志，无法识别或格式不符时返回false并跳过。
// 金额统一为池子视角的有符号数，正为流入池子，负为池子付出。
func (d *Decoder) Decode(chainID uint64, blockTime uint64, lg types.Log) (*model.DecodedSwapEvent, bool) {
	if len(lg.Topics) == 0 {
		return nil, false
	}

	d.mu.RLock()
	schema, ok := d.schemas[lg.Topics[0]]
	d.mu.RUnlock()
	if !ok {
		return nil, false
	}

	var token0, token1 *big.Int
	sqrtPrice := ""

	if schema.FourAmount {
		if len(lg.Data) < 4*32 {
			d.tl.Warn("⚠️ swap log data too short, skipped",
				zap.String("dex", schema.Dex),
				zap.String("tx", lg.TxHash.Hex()))
			return nil, false
		}
		amount0In := new(big.Int).SetBytes(lg.Data[0:32])
		amount1In := new(big.Int).SetBytes(lg.Data[32:64])
		amount0Out := new(big.Int).SetBytes(lg.Data[64:96])
		amount1Out := new(big.Int).SetBytes(lg.Data[96:128])

		// 四个量里每个方向只有一个非零，差值即有符号金额
		token0 = new(big.Int).Sub(amount0In, amount0Out)
		token1 = new(big.Int).Sub(amount1In, amount1Out)
	} else {
		need := 2 * 32
		if schema.SqrtPriceWord >= 0 {
			need = (schema.SqrtPriceWord + 1) * 32
		}
		if len(lg.Data) < need {
			d.tl.Warn("⚠️ swap log data too short, skipped",
				zap.String("dex", schema.Dex),
				zap.String("tx", lg.TxHash.Hex()))
			return nil, false
		}
		token0 = DecodeInt256(lg.Data[0:32])
		token1 = DecodeInt256(lg.Data[32:64])
		if schema.SqrtPriceWord >= 0 {
			off := schema.SqrtPriceWord * 32
			sqrtPrice = new(big.Int).SetBytes(lg.Data[off : off+32]).String()
		}
	}

	pool := strings.ToLower(lg.Address.Hex())
	if schema.PoolTopic >= 0 {
		if len(lg.Topics) <= schema.PoolTopic {
			return nil, false
		}
		pool = strings.ToLower(lg.Topics[schema.PoolTopic].Hex())
	}

	sender := ""
	if schema.SenderTopic >= 0 && len(lg.Topics) > schema.SenderTopic {
		sender = strings.ToLower(common.BytesToAddress(lg.Topics[schema.SenderTopic].Bytes()).Hex())
	}

	return &model.DecodedSwapEvent{
		ChainID:        chainID,
		BlockNumber:    lg.BlockNumber,
		BlockHash:      lg.BlockHash.Hex(),
		BlockTimestamp: int64(blockTime),
		Timestamp:      time.Now().UnixMilli(),
		PoolAddress:    pool,
		SenderAddress:  sender,
		Token0Amount:   token0.String(),
		Token1Amount:   token1.String(),
		Dex:            schema.Dex,
		SqrtPriceX96:   sqrtPrice,
	}, true
}

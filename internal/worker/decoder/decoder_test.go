package decoder

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

func word(v *big.Int) []byte {
	b := make([]byte, 32)
	raw := new(big.Int).And(v, new(big.Int).Sub(twoPow256, big.NewInt(1))).Bytes()
	copy(b[32-len(raw):], raw)
	return b
}

func TestDecodeInt256(t *testing.T) {
	cases := []struct {
		name string
		in   *big.Int
		want string
	}{
		{"zero", big.NewInt(0), "0"},
		{"positive", big.NewInt(12345), "12345"},
		{"minus one", big.NewInt(-1), "-1"},
		{"max positive", new(big.Int).Sub(signBoundary, big.NewInt(1)), new(big.Int).Sub(signBoundary, big.NewInt(1)).String()},
		{"min negative", new(big.Int).Neg(signBoundary), new(big.Int).Neg(signBoundary).String()},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := DecodeInt256(word(c.in))
			if got.String() != c.want {
				t.Errorf("DecodeInt256(%s) = %s, want %s", c.in, got, c.want)
			}
		})
	}
}

func TestDecodeV2FourAmount(t *testing.T) {
	d := NewDecoder(zap.NewNop())

	topic0 := common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	pool := common.HexToAddress("0x2222222222222222222222222222222222222222")

	// amount0In=100, amount1Out=95
	data := append(word(big.NewInt(100)), word(big.NewInt(0))...)
	data = append(data, word(big.NewInt(0))...)
	data = append(data, word(big.NewInt(95))...)

	lg := types.Log{
		Address:     pool,
		Topics:      []common.Hash{topic0, common.BytesToHash(sender.Bytes())},
		Data:        data,
		BlockNumber: 123,
		BlockHash:   common.HexToHash("0xabc"),
	}

	ev, ok := d.Decode(1, 1700000000, lg)
	if !ok {
		t.Fatal("expected decode success")
	}
	if ev.Token0Amount != "100" {
		t.Errorf("token0 = %s, want 100", ev.Token0Amount)
	}
	if ev.Token1Amount != "-95" {
		t.Errorf("token1 = %s, want -95", ev.Token1Amount)
	}
	if ev.Dex != "uniswapV2" {
		t.Errorf("dex = %s, want uniswapV2", ev.Dex)
	}
	if ev.PoolAddress != "0x2222222222222222222222222222222222222222" {
		t.Errorf("pool = %s", ev.PoolAddress)
	}
	if ev.SenderAddress != "0x1111111111111111111111111111111111111111" {
		t.Errorf("sender = %s", ev.SenderAddress)
	}
}

func TestDecodeV3SignedPair(t *testing.T) {
	d := NewDecoder(zap.NewNop())

	topic0 := common.HexToHash("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67")
	sender := common.HexToAddress("0x3333333333333333333333333333333333333333")
	pool := common.HexToAddress("0x4444444444444444444444444444444444444444")

	// amount0=-1000000, amount1=500000000000000000, sqrtPriceX96=79228162514264337593543950336
	sqrt, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	data := append(word(big.NewInt(-1000000)), word(big.NewInt(500000000000000000))...)
	data = append(data, word(sqrt)...)

	lg := types.Log{
		Address:     pool,
		Topics:      []common.Hash{topic0, common.BytesToHash(sender.Bytes()), common.BytesToHash(sender.Bytes())},
		Data:        data,
		BlockNumber: 456,
		BlockHash:   common.HexToHash("0xdef"),
	}

	ev, ok := d.Decode(8453, 1700000001, lg)
	if !ok {
		t.Fatal("expected decode success")
	}
	if ev.Token0Amount != "-1000000" {
		t.Errorf("token0 = %s, want -1000000", ev.Token0Amount)
	}
	if ev.Token1Amount != "500000000000000000" {
		t.Errorf("token1 = %s, want 500000000000000000", ev.Token1Amount)
	}
	if ev.SqrtPriceX96 != sqrt.String() {
		t.Errorf("sqrtPriceX96 = %s, want %s", ev.SqrtPriceX96, sqrt)
	}
}

func TestDecodeV4PoolFromTopic(t *testing.T) {
	d := NewDecoder(zap.NewNop())

	topic0 := common.HexToHash("0x40e9cecb9f5f1f1c5b9c97dec2917b7ee92e57ba5563708daca94dd84ad7112f")
	poolID := common.HexToHash("0x5555555555555555555555555555555555555555555555555555555555555555")
	sender := common.HexToAddress("0x6666666666666666666666666666666666666666")
	manager := common.HexToAddress("0x7777777777777777777777777777777777777777")

	sqrt, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	data := append(word(big.NewInt(-42)), word(big.NewInt(41))...)
	data = append(data, word(sqrt)...)

	lg := types.Log{
		Address: manager,
		Topics:  []common.Hash{topic0, poolID, common.BytesToHash(sender.Bytes())},
		Data:    data,
	}

	ev, ok := d.Decode(1, 0, lg)
	if !ok {
		t.Fatal("expected decode success")
	}
	if ev.PoolAddress != poolID.Hex() {
		t.Errorf("pool = %s, want topic1 pool id", ev.PoolAddress)
	}
	if ev.SenderAddress != "0x6666666666666666666666666666666666666666" {
		t.Errorf("sender = %s", ev.SenderAddress)
	}
	if ev.Dex != "uniswapV4" {
		t.Errorf("dex = %s, want uniswapV4", ev.Dex)
	}
}

// 目录加载任务在监听器运行后才补注册布局，注册与解码必须能并发
func TestRegisterWhileDecoding(t *testing.T) {
	d := NewDecoder(zap.NewNop())

	topic0 := common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	data := append(word(big.NewInt(100)), word(big.NewInt(0))...)
	data = append(data, word(big.NewInt(0))...)
	data = append(data, word(big.NewInt(95))...)
	lg := types.Log{
		Address: common.HexToAddress("0xaaaa"),
		Topics:  []common.Hash{topic0, {}},
		Data:    data,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			topic := common.HexToHash(fmt.Sprintf("0x%064x", i+1))
			d.Register(topic, Schema{Dex: "forkV2", FourAmount: true, PoolTopic: -1, SenderTopic: 1, SqrtPriceWord: -1})
		}
	}()

	for i := 0; i < 500; i++ {
		if len(d.Topics()) < len(builtinSchemas) {
			t.Fatal("builtin schemas missing from topic list")
		}
		if _, ok := d.Decode(1, 0, lg); !ok {
			t.Fatal("expected decode success during registration")
		}
	}
	<-done

	if got := len(d.Topics()); got != len(builtinSchemas)+500 {
		t.Errorf("registered topics = %d, want %d", got, len(builtinSchemas)+500)
	}
}

func TestDecodeUnknownTopic(t *testing.T) {
	d := NewDecoder(zap.NewNop())

	lg := types.Log{
		Topics: []common.Hash{common.HexToHash("0x01")},
		Data:   make([]byte, 128),
	}
	if _, ok := d.Decode(1, 0, lg); ok {
		t.Error("expected unknown topic to be skipped")
	}
}

func TestDecodeShortData(t *testing.T) {
	d := NewDecoder(zap.NewNop())

	topic0 := common.HexToHash("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67")
	lg := types.Log{
		Topics: []common.Hash{topic0, {}, {}},
		Data:   make([]byte, 32),
	}
	if _, ok := d.Decode(1, 0, lg); ok {
		t.Error("expected short data to be skipped")
	}
}

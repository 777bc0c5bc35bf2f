package utils

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// IsUnixSeconds 检查时间戳是否为秒级
func IsUnixSeconds(ts int64) bool {
	// 定义时间戳范围：1970-01-01 到 2100-01-01
	const maxUnix = 4_102_444_800 // 2100-01-01 00:00:00 UTC
	return ts >= 0 && ts < maxUnix
}

// ChecksumAddress 将 EVM 地址转换为 EIP-55 Checksum 格式，非 EVM 地址原样返回
func ChecksumAddress(addr string) string {
	if addr == "" {
		return ""
	}
	addr = strings.TrimSpace(addr)
	if !strings.HasPrefix(strings.ToLower(addr), "0x") {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}

// AdjustDecimals 调整精度显示
func AdjustDecimals(value *big.Int, decimals uint8) decimal.Decimal {
	decimalValue := decimal.NewFromBigInt(value, 0)
	divisor := decimal.New(1, int32(decimals))
	return decimalValue.Div(divisor)
}

// FormatUnits 格式化单位转换
func FormatUnits(amount *big.Int, decimals uint8) string {
	decimalAmount := decimal.NewFromBigInt(amount, 0)
	divisor := decimal.New(1, int32(decimals))
	result := decimalAmount.Div(divisor)
	return result.StringFixed(int32(decimals))
}

// RescaleAmount 按精度差换算整数金额，降精度时截断
func RescaleAmount(amount *big.Int, fromDecimals, toDecimals uint8) *big.Int {
	result := new(big.Int).Set(amount)
	if fromDecimals == toDecimals {
		return result
	}
	if toDecimals > fromDecimals {
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(toDecimals-fromDecimals)), nil)
		return result.Mul(result, factor)
	}
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(fromDecimals-toDecimals)), nil)
	return result.Div(result, factor)
}

// FormatAmount 展示用金额格式化：按精度缩放，小数截断到6位并去掉尾随0。
// 仅用于日志与通知，所有计算仍使用原始整数金额。
func FormatAmount(amount *big.Int, decimals uint8) string {
	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	intPart := new(big.Int).Div(abs, divisor)
	fracPart := new(big.Int).Mod(abs, divisor)

	frac := fracPart.String()
	for len(frac) < int(decimals) {
		frac = "0" + frac
	}
	if len(frac) > 6 {
		frac = frac[:6]
	}
	frac = strings.TrimRight(frac, "0")

	sign := ""
	if neg {
		sign = "-"
	}
	if frac == "" {
		return sign + intPart.String()
	}
	return sign + intPart.String() + "." + frac
}

package okx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"dex-arb/internal/worker/config"
	"dex-arb/pkg/httpclient"

	"go.uber.org/zap"
)

// OKX DEX聚合器客户端，报价与兑换走同一套签名请求

const defaultSlippage = "0.03"

// OKX各链的授权spender地址
var SpenderAddresses = map[uint64]string{
	1:     "0x40aA958dd87FC8305b97f2BA922CDdCa374bcD7f",
	56:    "0x2c34A2Fb1d0b4f55de51E1d0bDEfaDDce6b7cDD6",
	8453:  "0x57df6092665eb6058DE53939612413ff4B09114E",
	42161: "0x70cBb871E8f30Fc8Ce23609E9E0Ea87B6b222F58",
}

// Broadcaster 签名并广播聚合器返回的交易。钱包密钥与底层链客户端
// 由集成方持有，本仓库只定义接口。
type Broadcaster interface {
	SignAndBroadcast(ctx context.Context, chainID uint64, tx TxData) (*SwapResult, error)
}

type Client struct {
	baseURL     string
	apiKey      string
	secretKey   string
	passphrase  string
	httpClient  *httpclient.HTTPClient
	broadcaster Broadcaster
	logger      *zap.Logger
}

func NewClient(cfg config.OkxConfig, logger *zap.Logger, broadcaster Broadcaster) *Client {
	httpCfg := httpclient.HTTPClientConfig{
		Timeout:    time.Duration(cfg.Timeout) * time.Second,
		RateLimit:  cfg.RateLimit,
		MaxRetries: 0, // 重试由上层控制
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		secretKey:   cfg.SecretKey,
		passphrase:  cfg.Passphrase,
		httpClient:  httpclient.NewHTTPClient(httpCfg, logger),
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// GetQuote 请求一次兑换报价
func (c *Client) GetQuote(ctx context.Context, chainID uint64, fromToken, toToken, amount string) (*Quote, error) {
	params := map[string]string{
		"chainId":          strconv.FormatUint(chainID, 10),
		"fromTokenAddress": fromToken,
		"toTokenAddress":   toToken,
		"amount":           amount,
	}

	var resp QuoteResp
	if err := c.get(ctx, "/api/v5/dex/aggregator/quote", params, &resp); err != nil {
		return nil, fmt.Errorf("okx quote request failed: %w", err)
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("okx quote error: %s", resp.Msg)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("okx quote returned no route")
	}

	data := resp.Data[0]
	return &Quote{
		FromToken: fromToken,
		ToToken:   toToken,
		AmountIn:  data.FromAmount,
		AmountOut: data.ToAmount,
		Route:     data.DexRouterList,
	}, nil
}

// ExecuteSwap 获取兑换交易并交给broadcaster签名广播
func (c *Client) ExecuteSwap(ctx context.Context, params SwapParams) (*SwapResult, error) {
	if c.broadcaster == nil {
		return nil, fmt.Errorf("okx client has no broadcaster configured")
	}
	if params.Slippage == "" {
		params.Slippage = defaultSlippage
	}

	query := map[string]string{
		"chainId":           strconv.FormatUint(params.ChainID, 10),
		"fromTokenAddress":  params.FromToken,
		"toTokenAddress":    params.ToToken,
		"amount":            params.Amount,
		"slippage":          params.Slippage,
		"userWalletAddress": params.Wallet,
	}

	var resp SwapResp
	if err := c.get(ctx, "/api/v5/dex/aggregator/swap", query, &resp); err != nil {
		return nil, fmt.Errorf("okx swap request failed: %w", err)
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("okx swap error: %s", resp.Msg)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("okx swap returned no tx data")
	}

	result, err := c.broadcaster.SignAndBroadcast(ctx, params.ChainID, resp.Data[0].Tx)
	if err != nil {
		return nil, fmt.Errorf("broadcast swap tx failed: %w", err)
	}
	if result.AmountOut == "" {
		result.AmountOut = resp.Data[0].RouterResult.ToAmount
	}
	return result, nil
}

// get 发起签名GET请求
func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	requestPath := path + "?" + values.Encode()

	return c.httpClient.Get(ctx, c.baseURL+requestPath, nil, c.signedHeaders("GET", requestPath), out)
}

// signedHeaders 构造OKX要求的HMAC-SHA256签名头
func (c *Client) signedHeaders(method, requestPath string) map[string]string {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(ts + method + requestPath))
	sign := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"Content-Type":         "application/json",
		"OK-ACCESS-KEY":        c.apiKey,
		"OK-ACCESS-SIGN":       sign,
		"OK-ACCESS-TIMESTAMP":  ts,
		"OK-ACCESS-PASSPHRASE": c.passphrase,
	}
}

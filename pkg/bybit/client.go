package bybit

import (
	"context"
	"fmt"
	"time"

	"dex-arb/internal/worker/config"
	"dex-arb/pkg/httpclient"

	"go.uber.org/zap"
)

// Bybit现货行情客户端，用作USD估值的价格预言机

type PriceResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	} `json:"result"`
}

type Client struct {
	baseURL    string
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
}

func NewClient(cfg config.BybitConfig, logger *zap.Logger) *Client {
	httpCfg := httpclient.HTTPClientConfig{
		Timeout:    time.Duration(cfg.Timeout) * time.Second,
		RateLimit:  cfg.RateLimit,
		MaxRetries: 2,
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		logger:     logger,
	}
}

// GetPrice 获取symbol对USDT的现货最新价，返回十进制字符串
func (c *Client) GetPrice(ctx context.Context, symbol string) (string, error) {
	// 稳定币直接按1计
	if symbol == "USDC" || symbol == "USDT" {
		return "1", nil
	}

	params := map[string]string{
		"category": "spot",
		"symbol":   symbol + "USDT",
	}

	var resp PriceResp
	if err := c.httpClient.Get(ctx, c.baseURL+"/v5/market/tickers", params, nil, &resp); err != nil {
		return "", fmt.Errorf("fetch price for %s failed: %w", symbol, err)
	}
	if resp.RetCode != 0 {
		return "", fmt.Errorf("bybit api error: %s", resp.RetMsg)
	}
	if len(resp.Result.List) == 0 {
		return "", fmt.Errorf("bybit returned no ticker for %s", symbol)
	}

	return resp.Result.List[0].LastPrice, nil
}

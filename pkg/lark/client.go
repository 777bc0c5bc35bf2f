package lark

import (
	"context"

	"dex-arb/pkg/httpclient"

	"go.uber.org/zap"
)

// Lark webhook通知客户端。发送失败只记录日志，绝不影响调用方流程。

type Client struct {
	webhook    string
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
}

type message struct {
	MsgType string  `json:"msg_type"`
	Content content `json:"content"`
}

type content struct {
	Text string `json:"text"`
}

func NewClient(webhook string, logger *zap.Logger) *Client {
	return &Client{
		webhook:    webhook,
		httpClient: httpclient.NewHTTPClient(httpclient.HTTPClientConfig{}, logger),
		logger:     logger,
	}
}

// Notify 尽力送达的文本通知
func (c *Client) Notify(ctx context.Context, text string) {
	if c.webhook == "" {
		return
	}

	body := message{
		MsgType: "text",
		Content: content{Text: text},
	}

	var resp map[string]interface{}
	if err := c.httpClient.PostJSON(ctx, c.webhook, body, nil, &resp); err != nil {
		c.logger.Warn("❌ Lark notify failed", zap.Error(err))
	}
}

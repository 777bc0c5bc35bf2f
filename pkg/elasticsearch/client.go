package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

type Client struct {
	es     *elasticsearch.Client
	logger *zap.Logger
}

type Config struct {
	Addresses []string
	Username  string
	Password  string
}

// BulkOperation 批量操作的结构
type BulkOperation struct {
	Action   string                 `json:"action"`   // index, create, update, delete
	Index    string                 `json:"index"`    // 索引名
	ID       string                 `json:"id"`       // 文档ID
	Document map[string]interface{} `json:"document"` // 文档内容
}

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &Client{
		es:     es,
		logger: log,
	}, nil
}

// CreateIndex 创建索引（已存在则忽略）
func (c *Client) CreateIndex(ctx context.Context, indexName string, mapping map[string]interface{}) error {
	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal index mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("create index failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("create index error: %s", res.String())
	}
	return nil
}

// BulkWrite 批量操作 - 简化接口，只负责执行
func (c *Client) BulkWrite(ctx context.Context, operations []BulkOperation) error {
	if len(operations) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, op := range operations {
		actionLine := map[string]interface{}{
			op.Action: map[string]interface{}{
				"_index": op.Index,
				"_id":    op.ID,
			},
		}

		actionBytes, _ := json.Marshal(actionLine)
		buf.Write(actionBytes)
		buf.WriteByte('\n')

		if op.Action == "index" || op.Action == "create" || op.Action == "update" {
			if op.Document != nil {
				docBytes, _ := json.Marshal(op.Document)
				buf.Write(docBytes)
				buf.WriteByte('\n')
			}
		}
	}

	req := esapi.BulkRequest{
		Body: &buf,
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("bulk operation failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk operation error: %s", res.String())
	}

	c.logger.Debug("Bulk write operation completed",
		zap.Int("operations", len(operations)))
	return nil
}

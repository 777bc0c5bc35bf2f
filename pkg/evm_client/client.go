package evm_client

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Dial evm client（http 或 websocket 端点均可）
func Dial(ctx context.Context, rawurl string) (*ethclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("dial evm client %s: %w", rawurl, err)
	}
	return client, nil
}

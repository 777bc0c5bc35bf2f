package main

import (
	"context"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	worker "dex-arb/internal/worker"
	"dex-arb/internal/worker/config"
	"dex-arb/pkg/logger"
)

func main() {
	// 初始化配置文件
	cfg := config.InitConfig()

	// 初始化 trace provider
	logger.InitTrace("dex-arb", "worker")
	// 启动主 span
	ctx, span := logger.StartSpan(context.Background(), "main", "main")
	defer span.End()

	// 创建 root logger 并注入 trace 上下文
	rootLogger := logger.NewLogger("worker")
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)

	// 启动配置热加载监听
	go config.WatchConfig(&cfg)

	// 初始化worker。交易签名广播器由部署方集成，这里未注入，
	// 注入前订单执行会在兑换请求阶段如实失败落库。
	core := worker.New(cfg, tl, nil)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 启动 worker
	go func() {
		tl.Info("Starting dex-arb worker...")
		core.Start(ctx)
	}()

	// 监听操作系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	tl.Info("Received shutdown signal, starting graceful shutdown...")

	// 关闭资源
	core.Stop(ctx)

	tl.Info("Shutting down all cores...")
}

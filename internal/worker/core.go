package worker

import (
	"context"
	"time"

	"dex-arb/internal/worker/config"
	"dex-arb/internal/worker/consumer"
	"dex-arb/internal/worker/dao"
	"dex-arb/internal/worker/decoder"
	"dex-arb/internal/worker/executor"
	"dex-arb/internal/worker/handler"
	"dex-arb/internal/worker/job"
	"dex-arb/internal/worker/model"
	"dex-arb/internal/worker/monitor"
	"dex-arb/internal/worker/repository"
	"dex-arb/internal/worker/router"
	"dex-arb/internal/worker/scanner"
	"dex-arb/internal/worker/service"
	"dex-arb/internal/worker/watcher"
	"dex-arb/internal/worker/writer"
	"dex-arb/internal/worker/writer/swaparchive"
	"dex-arb/pkg/bybit"
	"dex-arb/pkg/lark"
	"dex-arb/pkg/okx"

	"go.uber.org/zap"
)

type Core struct {
	cfg       config.Config
	tl        *zap.Logger
	repo      repository.Repository
	scheduler *job.Scheduler
	consumers []consumer.KafkaConsumer
	chains    *watcher.Manager
	archive   *writer.AsyncBatchWriter[model.EnrichedSwapEvent]
	metrics   *monitor.MetricsServer
}

// New 组装worker。broadcaster由集成方注入，传nil时订单执行会在
// 兑换请求阶段失败并如实落库，监听、补全、扫描不受影响。
func New(cfg config.Config, logger *zap.Logger, broadcaster okx.Broadcaster) *Core {
	scheduler := job.NewScheduler(logger)

	// 初始化repo与DAO
	repo := repository.New(cfg, logger)
	daos := dao.NewDAOManager(repo.GetDB(), repo.GetMainRDB())

	// 解码表：内置布局 + 启动时从dex目录补充
	dec := decoder.NewDecoder(logger)
	scheduler.RegisterOnceJob("dex_schema_load", job.NewDexSchemaLoadJob(daos.PoolDAO, dec, logger))

	// 现货价格服务与预热任务
	prices := service.NewPriceService(bybit.NewClient(cfg.Bybit, logger), repo.GetMainRDB(), logger)
	scheduler.RegisterJob("price_refresh", job.PriceRefreshInterval, job.NewPriceRefreshJob(prices))

	// swap事件处理管线：补全 -> 归档 -> 路由
	enricher := service.NewEventEnricher(daos.PoolDAO, prices, logger)
	eventRouter := router.NewEventRouter(cfg.Kafka, logger)

	var archive *writer.AsyncBatchWriter[model.EnrichedSwapEvent]
	if repo.GetES() != nil {
		esWriter := swaparchive.NewESSwapWriter(repo.GetES(), logger, cfg.Elasticsearch.SwapsIndexName)
		archive = writer.NewAsyncBatchWriter(logger, esWriter, 200, 2*time.Second, "swap_archive", 2)
	}
	swapHandler := handler.NewSwapHandler(enricher, eventRouter, archive, logger)

	// 策略管线：扫描价差 -> 下双腿订单
	okxClient := okx.NewClient(cfg.Okx, logger, broadcaster)
	spreadScanner := scanner.NewSpreadScanner(cfg.Scanner, daos.PoolDAO, okxClient, logger)
	orchestrator := executor.NewSwapOrchestrator(
		cfg.Executor,
		cfg.Chains,
		okxClient,
		executor.NewOnchainBalanceReader(repo),
		daos.OrderDAO,
		daos.TokenBalanceDAO,
		prices,
		lark.NewClient(cfg.Lark.Webhook, logger),
		logger,
	)
	arbHandler := handler.NewArbitrageHandler(cfg, spreadScanner, orchestrator, logger)

	// 消费者：swap事件 + 每种策略类型一个队列
	consumers := []consumer.KafkaConsumer{
		consumer.NewSwapConsumer(cfg, logger, swapHandler),
	}
	for _, strategyType := range cfg.Scanner.StrategyTypes {
		consumers = append(consumers, consumer.NewStrategyConsumer(cfg, logger, strategyType, arbHandler))
	}

	// 链监听器，解码结果进swap事件topic
	sink := watcher.NewKafkaSink(repo.GetMQ(), cfg.Kafka.TopicSwap)
	chains := watcher.NewManager(logger, dec, sink)

	return &Core{
		cfg:       cfg,
		tl:        logger,
		repo:      repo,
		scheduler: scheduler,
		consumers: consumers,
		chains:    chains,
		archive:   archive,
		metrics:   monitor.NewMetricsServer(cfg.Monitor),
	}
}

func (c *Core) Start(ctx context.Context) {
	c.tl.Info("Starting worker core...")

	// 启动监控服务
	if c.metrics != nil {
		c.metrics.Run()
	}

	if c.archive != nil {
		c.archive.Start(ctx)
	}

	// 启动消费者
	for _, cons := range c.consumers {
		go cons.Run(ctx)
	}

	// 启动调度器
	c.scheduler.Start(ctx)

	// 接入配置里的所有链
	for _, chain := range c.cfg.Chains {
		if err := c.chains.AddChain(ctx, chain); err != nil {
			c.tl.Error("❌ failed to add chain", zap.Uint64("chain_id", chain.ChainID), zap.Error(err))
		}
	}

	c.tl.Info("Worker started successfully")

	// 等待外部关闭信号
	<-ctx.Done()
	c.tl.Info("Shutting down worker due to context cancellation...")
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping worker core...")

	// 先停监听，不再产生新事件
	c.chains.StopAll()

	// 停止消费者
	for _, cons := range c.consumers {
		cons.Stop()
	}

	// 停止调度器
	if c.scheduler != nil {
		c.scheduler.Stop(ctx)
	}

	// 停止 Prometheus 监控服务
	if c.metrics != nil {
		_ = c.metrics.Stop(ctx)
	}

	c.repo.Close()

	c.tl.Info("Worker core stopped.")
}

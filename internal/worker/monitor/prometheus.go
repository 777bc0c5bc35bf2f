package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	// 链监听相关
	BlocksReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_blocks_received_total",
			Help: "Total number of new block heads received per chain.",
		},
		[]string{"chain_id"},
	)
	SwapsDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_swaps_decoded_total",
			Help: "Total number of swap events decoded per dex.",
		},
		[]string{"dex"},
	)
	WatcherReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_watcher_reconnects_total",
			Help: "Total number of reconnect attempts per chain.",
		},
		[]string{"chain_id"},
	)

	// KafkaMessagesReceived Kafka 消费相关
	KafkaMessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_received_total",
			Help: "Total number of messages received from Kafka.",
		},
		[]string{"topic"},
	)
	KafkaWorkerMessagesDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_consumer_worker_dispatch_count_total",
			Help: "Number of tasks assigned to each swap worker.",
		},
		[]string{"worker_id"},
	)
	KafkaWorkerMessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_consumer_worker_processed_total",
			Help: "Number of messages processed by each swap worker.",
		},
		[]string{"worker_id"},
	)
	KafkaWorkerProcessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swap_consumer_worker_process_duration_seconds",
			Help:    "Time taken to process one message.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"worker_id"},
	)

	// 补全与路由
	EventsEnriched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_events_enriched_total",
			Help: "Enrichment outcomes for decoded swap events.",
		},
		[]string{"result"},
	)
	EventsRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_events_routed_total",
			Help: "Enriched events routed to strategy queues.",
		},
		[]string{"strategy_type"},
	)

	// 价差扫描
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spread_scans_total",
			Help: "Spread scan outcomes.",
		},
		[]string{"outcome"},
	)
	QuoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_quote_requests_total",
			Help: "Aggregator quote request results.",
		},
		[]string{"result"},
	)

	// 订单执行
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Orders by terminal status.",
		},
		[]string{"status"},
	)
	LegRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_leg_retries_total",
			Help: "Retry attempts per leg network kind.",
		},
		[]string{"kind"},
	)

	// async 写入指标
	AsyncWriterMessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_messages_dropped_total",
			Help: "Total number of messages dropped due to full queue.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "async_writer_batch_size",
			Help:    "Number of items in each batch submitted to the writer.",
			Buckets: []float64{10, 50, 100, 200, 500, 1000},
		},
		[]string{"writer_id"},
	)
	AsyncWriterFlushCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_flush_count_total",
			Help: "Total number of batch flushes triggered.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterFlushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "async_writer_flush_duration_seconds",
			Help:    "Time taken to flush a batch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"writer_id"},
	)
	AsyncWriterItemsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_items_written_total",
			Help: "Total number of items successfully written by the async writer.",
		},
		[]string{"writer_id"},
	)
)

func init() {
	prometheus.MustRegister(
		// 链监听指标
		BlocksReceived,
		SwapsDecoded,
		WatcherReconnects,

		// kafka指标
		KafkaMessagesReceived,
		KafkaWorkerMessagesDispatched,
		KafkaWorkerMessagesProcessed,
		KafkaWorkerProcessDuration,

		// 业务指标
		EventsEnriched,
		EventsRouted,
		ScansTotal,
		QuoteRequests,
		OrdersTotal,
		LegRetries,

		// async 写入指标
		AsyncWriterMessagesDropped,
		AsyncWriterBatchSize,
		AsyncWriterFlushCount,
		AsyncWriterFlushDuration,
		AsyncWriterItemsWritten,
	)
}

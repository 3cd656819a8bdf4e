// Package metrics 定义 obs-apiserver 的 prometheus 指标，统一通过 /metrics 暴露.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 生产者指标
	ProducerAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_producer_attempts_total",
		Help: "生产者发送消息的总尝试次数（包括首次发送和重试）",
	}, []string{"topic", "operation"})

	ProducerSuccess = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_producer_success_total",
		Help: "Total number of successfully sent Kafka messages",
	}, []string{"topic", "operation"})

	ProducerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_producer_failures_total",
		Help: "Total number of failed Kafka message sending attempts",
	}, []string{"topic", "operation", "error_type"})

	// ProducerFallbacks 写入兜底文件的消息数
	ProducerFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_producer_fallback_total",
		Help: "Total number of messages written to the fallback file",
	}, []string{"topic", "reason"})
)

var (
	// Kafka消费者指标
	ConsumerMessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumer_messages_received_total",
		Help: "Total number of messages received by consumer",
	}, []string{"topic", "group", "entity"})

	ConsumerProcessingErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumer_processing_errors_total",
		Help: "Total number of message processing errors",
	}, []string{"topic", "group", "error_type"})

	ConsumerProcessingTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_consumer_processing_seconds",
		Help:    "Time taken to process messages by consumer",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
	}, []string{"topic", "group", "status"})

	ConsumerLag = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kafka_consumer_lag",
		Help: "Current consumer lag (estimated)",
	}, []string{"topic", "group"})
)

var (
	// 命令处理指标
	CommandsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "obs_commands_total",
		Help: "Total number of commands by entity, action and result",
	}, []string{"entity", "action", "result"}) // result: processed, awaiting_approval, rejected, failed

	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "obs_command_duration_seconds",
		Help:    "Time taken to process a command including the transaction",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"entity", "action"})

	CommandsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "obs_commands_pending",
		Help: "Number of commands awaiting checker approval observed by the last listing",
	})
)

var (
	// 数据表指标
	DatatableDDL = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "obs_datatable_ddl_total",
		Help: "Total number of datatable DDL operations",
	}, []string{"operation", "result"}) // operation: create, update, delete, register, deregister

	DatatableDDLDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "obs_datatable_ddl_duration_seconds",
		Help:    "Duration of datatable DDL including lock wait",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"operation"})

	DatatableEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "obs_datatable_entries_total",
		Help: "Total number of datatable row writes",
	}, []string{"datatable", "operation"})

	LockAcquire = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "obs_lock_acquire_total",
		Help: "Total number of distributed lock acquisitions",
	}, []string{"business", "result"}) // result: acquired, busy, error
)

var (
	// HTTP指标
	HTTPErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of HTTP errors by type",
	}, []string{"method", "path", "status", "error_code"})

	// LoginAttempts 登录结果
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "obs_login_attempts_total",
		Help: "Total number of login attempts",
	}, []string{"result"}) // success, fail, limited
)

var (
	// 缓存命中指标
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "obs_cache_hits_total",
		Help: "Total cache lookups",
	}, []string{"cache", "type"}) // type: hit, miss, error
)

var (
	// 布隆过滤器指标
	BloomFilterChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloom_filter_checks_total",
		Help: "Total number of bloom filter checks",
	}, []string{"filter_type", "result"}) // result: hit, miss

	BloomFilterEstimatedSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bloom_filter_estimated_size",
		Help: "Estimated number of elements in bloom filters",
	}, []string{"filter_type"})
)

var (
	// 审计指标
	AuditEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "obs_audit_events_total",
		Help: "Total number of audit events by action and outcome",
	}, []string{"action", "resource_type", "outcome"})

	AuditFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "obs_audit_failures_total",
		Help: "Total number of audit events dropped or failed to write",
	}, []string{"action", "resource_type"})
)

// RecordCommand 记录命令处理结果与耗时
func RecordCommand(entity, action, result string, duration time.Duration) {
	CommandsProcessed.WithLabelValues(entity, action, result).Inc()
	if duration > 0 {
		CommandDuration.WithLabelValues(entity, action).Observe(duration.Seconds())
	}
}

// RecordDDL 记录数据表结构变更
func RecordDDL(operation string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "fail"
	}
	DatatableDDL.WithLabelValues(operation, result).Inc()
	DatatableDDLDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCache 记录缓存命中情况
func RecordCache(cache, typ string) {
	CacheHits.WithLabelValues(cache, typ).Inc()
}

// RecordAuditEvent 记录审计事件
func RecordAuditEvent(action, resourceType, outcome string) {
	AuditEvents.WithLabelValues(action, resourceType, outcome).Inc()
}

// RecordAuditFailure 记录非成功的审计事件
func RecordAuditFailure(action, resourceType string) {
	AuditFailures.WithLabelValues(action, resourceType).Inc()
}

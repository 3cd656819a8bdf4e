package metrics

import (
	"context"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RedisUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "redis_up",
		Help: "Whether redis is reachable (1) or degraded (0)",
	})

	RedisPoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "redis_pool_connections",
		Help: "Redis connection pool state",
	}, []string{"state"}) // total, idle, stale

	RedisPoolEvents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "redis_pool_events",
		Help: "Cumulative redis pool hits, misses and timeouts",
	}, []string{"type"})
)

// RedisMonitor 定期采集 redis 连接状态与连接池指标
type RedisMonitor struct {
	connected func() bool
	client    func() redis.UniversalClient
	interval  time.Duration
}

// NewRedisMonitor client 可能返回 nil（尚未连上）
func NewRedisMonitor(connected func() bool, client func() redis.UniversalClient, interval time.Duration) *RedisMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &RedisMonitor{connected: connected, client: client, interval: interval}
}

// Start 阻塞直到 ctx 结束
func (m *RedisMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.collect()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *RedisMonitor) collect() {
	if m.connected() {
		RedisUp.Set(1)
	} else {
		RedisUp.Set(0)
	}
	c := m.client()
	if c == nil {
		return
	}
	stats := c.PoolStats()
	RedisPoolConnections.WithLabelValues("total").Set(float64(stats.TotalConns))
	RedisPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns))
	RedisPoolConnections.WithLabelValues("stale").Set(float64(stats.StaleConns))
	RedisPoolEvents.WithLabelValues("hits").Set(float64(stats.Hits))
	RedisPoolEvents.WithLabelValues("misses").Set(float64(stats.Misses))
	RedisPoolEvents.WithLabelValues("timeouts").Set(float64(stats.Timeouts))
}

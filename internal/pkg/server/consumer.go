package server

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/tidwall/gjson"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// CacheInvalidator 由业务服务实现，按命令事件清理本实例缓存.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, event *v1.CommandEvent)
}

// InvalidationConsumer 每个实例使用独立消费组读取全部命令事件.
type InvalidationConsumer struct {
	reader      *kafka.Reader
	invalidator CacheInvalidator
	topic       string
	group       string
}

func NewInvalidationConsumer(opts *options.KafkaOptions, invalidator CacheInvalidator) *InvalidationConsumer {
	group := opts.ConsumerGroupID()
	return &InvalidationConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        opts.Brokers,
			Topic:          opts.Topic,
			GroupID:        group,
			MinBytes:       opts.MinBytes,
			MaxBytes:       opts.MaxBytes,
			CommitInterval: time.Second,
			// 新实例启动时缓存是空的，只需要关心之后的变更
			StartOffset: kafka.LastOffset,
		}),
		invalidator: invalidator,
		topic:       opts.Topic,
		group:       group,
	}
}

func (c *InvalidationConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

// StartConsuming 阻塞到 ctx 结束.
func (c *InvalidationConsumer) StartConsuming(ctx context.Context, workerCount int) {
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (c *InvalidationConsumer) worker(ctx context.Context, workerID int) {
	log.Infof("启动缓存失效Worker %d, Topic: %s, Group: %s", workerID, c.topic, c.group)
	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = 0
	retry.MaxInterval = 30 * time.Second

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, io.EOF) {
				log.Infof("Worker %d: 停止消费", workerID)
				return
			}
			metrics.ConsumerProcessingErrors.WithLabelValues(c.topic, c.group, "fetch").Inc()
			wait := retry.NextBackOff()
			log.Errorf("Worker %d: 获取消息失败, %s 后重试: %v", workerID, wait, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()

		c.processMessage(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			metrics.ConsumerProcessingErrors.WithLabelValues(c.topic, c.group, "commit").Inc()
			log.Errorf("Worker %d: 提交偏移量失败: %v", workerID, err)
		}
		if lag := c.reader.Lag(); lag >= 0 {
			metrics.ConsumerLag.WithLabelValues(c.topic, c.group).Set(float64(lag))
		}
	}
}

// processMessage 缓存清理可重复执行，无法解析的消息记录后直接跳过.
func (c *InvalidationConsumer) processMessage(ctx context.Context, msg kafka.Message) {
	start := time.Now()
	entity := gjson.GetBytes(msg.Value, "entityName").String()
	if entity == "" {
		entity = headerValue(msg.Headers, "entity")
	}
	metrics.ConsumerMessagesReceived.WithLabelValues(c.topic, c.group, entity).Inc()

	var event v1.CommandEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		metrics.ConsumerProcessingErrors.WithLabelValues(c.topic, c.group, "unmarshal").Inc()
		metrics.ConsumerProcessingTime.WithLabelValues(c.topic, c.group, "error").Observe(time.Since(start).Seconds())
		log.Errorw("命令事件解析失败", "offset", msg.Offset, "partition", msg.Partition, "error", err)
		return
	}
	event.EntityName = entity
	c.invalidator.Invalidate(ctx, &event)
	metrics.ConsumerProcessingTime.WithLabelValues(c.topic, c.group, "success").Observe(time.Since(start).Seconds())
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

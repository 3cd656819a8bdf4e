package server

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/server/producer"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

var _ producer.MessageProducer = (*CommandProducer)(nil)

const (
	defaultProducerEnqueueTimeout = 200 * time.Millisecond
	fallbackRepublishTimeout      = 5 * time.Second
	operationPublish              = "publish"
	operationFallback             = "fallback"
)

var errProducerEnqueueTimeout = stderrors.New("producer enqueue timeout")

// CommandProducer 基于 sarama 异步生产者投递命令事件.
// 入队失败或 broker 返回错误的消息按天追加到兜底文件，由补偿协程重投.
type CommandProducer struct {
	producer     sarama.AsyncProducer
	kafkaOptions *options.KafkaOptions
	wg           sync.WaitGroup
	compensator  sync.WaitGroup
	shutdown     chan struct{}
	closeOnce    sync.Once
	// closed 之后不能再写 Input，读锁覆盖整个入队过程
	mu          sync.RWMutex
	closed      bool
	fallbackDir string
	fileMu      sync.Mutex
}

type fallbackMessage struct {
	Topic     string           `json:"topic"`
	Key       string           `json:"key,omitempty"`
	Value     string           `json:"value"`
	Timestamp string           `json:"timestamp"`
	Attempts  int              `json:"attempts"`
	Headers   []fallbackHeader `json:"headers,omitempty"`
}

type fallbackHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func NewCommandProducer(opts *options.KafkaOptions) (*CommandProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.RequiredAcks(opts.RequiredAcks)
	config.Producer.Retry.Max = opts.MaxRetries
	config.Producer.Flush.Frequency = opts.BatchTimeout
	config.Producer.Flush.MaxMessages = opts.BatchSize
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	compressionCodec, err := parseCompressionCodec(opts.Compression)
	if err != nil {
		return nil, errors.WithCode(code.ErrKafkaFailed, "invalid compression codec: %v", err)
	}
	config.Producer.Compression = compressionCodec

	ap, err := sarama.NewAsyncProducer(opts.Brokers, config)
	if err != nil {
		log.Errorf("创建sarama异步生产者失败: %v", err)
		return nil, errors.WithCode(code.ErrKafkaFailed, "failed to create async producer: %v", err)
	}
	return newCommandProducer(ap, opts), nil
}

func newCommandProducer(ap sarama.AsyncProducer, opts *options.KafkaOptions) *CommandProducer {
	p := &CommandProducer{
		producer:     ap,
		kafkaOptions: opts,
		shutdown:     make(chan struct{}),
		fallbackDir:  opts.FallbackDir,
	}
	p.wg.Add(2)
	go p.handleSuccesses()
	go p.handleErrors()

	if p.fallbackDir != "" && opts.MaxRetryDelay > 0 {
		p.compensator.Add(1)
		go p.runFallbackCompensator()
	}
	return p
}

// SendCommandEvent 入队即返回，投递结果由后台协程处理.
func (p *CommandProducer) SendCommandEvent(ctx context.Context, event *v1.CommandEvent) error {
	topic := p.kafkaOptions.Topic
	metrics.ProducerAttempts.WithLabelValues(topic, operationPublish).Inc()

	msg, err := producer.NewCommandMessage(topic, event)
	if err != nil {
		metrics.ProducerFailures.WithLabelValues(topic, operationPublish, "encode").Inc()
		return errors.WithCode(code.ErrEncodingJSON, "failed to marshal command event: %v", err)
	}
	if rid, ok := ctx.Value(log.KeyRequestID).(string); ok && rid != "" {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(producer.HeaderTraceID), Value: []byte(rid)})
	}
	return p.enqueueOrFallback(ctx, msg, fmt.Sprintf("command=%d entity=%s action=%s",
		event.CommandID, event.EntityName, event.ActionName))
}

func (p *CommandProducer) getEnqueueTimeout() time.Duration {
	if p.kafkaOptions != nil && p.kafkaOptions.EnqueueTimeout > 0 {
		return p.kafkaOptions.EnqueueTimeout
	}
	return defaultProducerEnqueueTimeout
}

func (p *CommandProducer) enqueueWithTimeout(ctx context.Context, msg *sarama.ProducerMessage, wait time.Duration) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.producer == nil || p.closed {
		return fmt.Errorf("producer unavailable")
	}
	timeout := wait
	if timeout <= 0 {
		timeout = p.getEnqueueTimeout()
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.shutdown:
		return fmt.Errorf("producer shutting down")
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errProducerEnqueueTimeout
	}
}

func (p *CommandProducer) enqueueOrFallback(ctx context.Context, msg *sarama.ProducerMessage, detail string) error {
	err := p.enqueueWithTimeout(ctx, msg, 0)
	if err == nil {
		return nil
	}
	reason := "enqueue_error"
	if stderrors.Is(err, errProducerEnqueueTimeout) {
		reason = "enqueue_timeout"
	} else if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		reason = "context_done"
	}
	metrics.ProducerFailures.WithLabelValues(msg.Topic, operationPublish, reason).Inc()
	log.L(ctx).Errorw("命令事件入队失败，写入兜底文件", "detail", detail, "reason", reason, "error", err)
	p.writeToFallbackFile(msg, reason)
	return errors.WithCode(code.ErrKafkaFailed, "producer enqueue failed (%v), message written to fallback", err)
}

func (p *CommandProducer) handleSuccesses() {
	defer p.wg.Done()
	for msg := range p.producer.Successes() {
		if msg == nil {
			continue
		}
		metrics.ProducerSuccess.WithLabelValues(msg.Topic, operationPublish).Inc()
		log.Debugf("命令事件已送达 topic=%s partition=%d offset=%d", msg.Topic, msg.Partition, msg.Offset)
	}
}

func (p *CommandProducer) handleErrors() {
	defer p.wg.Done()
	for errMsg := range p.producer.Errors() {
		if errMsg == nil || errMsg.Msg == nil {
			continue
		}
		metrics.ProducerFailures.WithLabelValues(errMsg.Msg.Topic, operationPublish, "broker").Inc()
		log.Errorf("命令事件投递失败: %v", errMsg.Err)
		p.writeToFallbackFile(errMsg.Msg, "broker_error")
	}
}

// Close 停止补偿协程，等待在途消息的回执后返回.
func (p *CommandProducer) Close() error {
	p.closeOnce.Do(func() {
		close(p.shutdown)
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.compensator.Wait()
		if p.producer != nil {
			// AsyncClose 会关闭 Successes/Errors 通道，处理协程随之退出
			p.producer.AsyncClose()
		}
		p.wg.Wait()
		log.Info("命令事件生产者已关闭")
	})
	return nil
}

func fallbackFileName(t time.Time) string {
	return t.Format("2006-01-02") + ".json"
}

func (p *CommandProducer) writeToFallbackFile(msg *sarama.ProducerMessage, reason string) {
	if p.fallbackDir == "" {
		log.Warnf("未配置兜底目录，消息丢弃: topic=%s", msg.Topic)
		return
	}
	entry := fallbackMessage{
		Topic:     msg.Topic,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if msg.Value != nil {
		value, _ := msg.Value.Encode()
		entry.Value = string(value)
	}
	if msg.Key != nil {
		key, _ := msg.Key.Encode()
		entry.Key = string(key)
	}
	for _, h := range msg.Headers {
		if string(h.Key) == producer.HeaderRetryCount {
			entry.Attempts, _ = strconv.Atoi(string(h.Value))
		}
		entry.Headers = append(entry.Headers, fallbackHeader{Key: string(h.Key), Value: string(h.Value)})
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Errorf("兜底消息序列化失败: %v", err)
		return
	}

	p.fileMu.Lock()
	defer p.fileMu.Unlock()
	if err := os.MkdirAll(p.fallbackDir, 0o755); err != nil {
		log.Errorf("创建兜底目录失败 %s: %v", p.fallbackDir, err)
		return
	}
	path := filepath.Join(p.fallbackDir, fallbackFileName(time.Now()))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Errorf("打开兜底文件失败 %s: %v", path, err)
		return
	}
	defer file.Close()
	if _, err := file.Write(append(data, '\n')); err != nil {
		log.Errorf("写入兜底文件失败 %s: %v", path, err)
		return
	}
	metrics.ProducerFallbacks.WithLabelValues(msg.Topic, reason).Inc()
}

func (p *CommandProducer) runFallbackCompensator() {
	defer p.compensator.Done()
	logger := log.WithValues("component", "fallback-compensator")
	logger.Info("兜底补偿协程启动")
	ticker := time.NewTicker(p.kafkaOptions.MaxRetryDelay)
	defer ticker.Stop()

	for {
		select {
		case <-p.shutdown:
			logger.Info("兜底补偿协程退出")
			return
		case <-ticker.C:
			p.processFallbackFiles(logger)
		}
	}
}

func (p *CommandProducer) processFallbackFiles(logger *log.Logger) {
	files, err := filepath.Glob(filepath.Join(p.fallbackDir, "*.json"))
	if err != nil {
		logger.Errorf("列出兜底文件失败: %v", err)
		return
	}
	sort.Strings(files)
	for _, path := range files {
		n, err := p.processFallbackFile(logger, path)
		if err != nil {
			logger.Errorf("处理兜底文件失败 %s: %v", path, err)
			continue
		}
		if n > 0 {
			logger.Infof("兜底文件 %s 重投 %d 条", filepath.Base(path), n)
		}
	}
}

// processFallbackFile 逐行重投，失败的行累加次数写回，超过 MaxRetries 的丢弃.
// 当天文件仍在追加，只处理之前的文件.
func (p *CommandProducer) processFallbackFile(logger *log.Logger, path string) (int, error) {
	if filepath.Base(path) == fallbackFileName(time.Now()) {
		return 0, nil
	}
	p.fileMu.Lock()
	defer p.fileMu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var remaining []fallbackMessage
	processed := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry fallbackMessage
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			logger.Errorf("兜底文件 %s 中存在无效记录: %v", path, err)
			continue
		}
		if p.kafkaOptions.MaxRetries > 0 && entry.Attempts >= p.kafkaOptions.MaxRetries {
			logger.Warnf("超过最大重试次数，丢弃兜底消息 topic=%s key=%s", entry.Topic, entry.Key)
			continue
		}
		metrics.ProducerAttempts.WithLabelValues(entry.Topic, operationFallback).Inc()
		if err := p.publishFallbackEntry(entry); err != nil {
			entry.Attempts++
			remaining = append(remaining, entry)
			continue
		}
		processed++
	}
	if err := scanner.Err(); err != nil {
		return processed, err
	}
	if len(remaining) == 0 {
		return processed, os.Remove(path)
	}

	tmp := path + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return processed, err
	}
	w := bufio.NewWriter(out)
	for _, entry := range remaining {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		_, _ = w.Write(append(data, '\n'))
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return processed, err
	}
	if err := out.Close(); err != nil {
		return processed, err
	}
	return processed, os.Rename(tmp, path)
}

func (p *CommandProducer) publishFallbackEntry(entry fallbackMessage) error {
	msg := &sarama.ProducerMessage{
		Topic: entry.Topic,
		Value: sarama.StringEncoder(entry.Value),
	}
	if entry.Key != "" {
		msg.Key = sarama.StringEncoder(entry.Key)
	}
	headers := make([]sarama.RecordHeader, 0, len(entry.Headers))
	for _, h := range entry.Headers {
		headers = append(headers, sarama.RecordHeader{Key: []byte(h.Key), Value: []byte(h.Value)})
	}
	msg.Headers = updateOrAddHeader(headers, producer.HeaderRetryCount, strconv.Itoa(entry.Attempts+1))
	return p.enqueueWithTimeout(context.Background(), msg, fallbackRepublishTimeout)
}

func updateOrAddHeader(headers []sarama.RecordHeader, key, value string) []sarama.RecordHeader {
	for i := range headers {
		if strings.EqualFold(string(headers[i].Key), key) {
			headers[i].Value = []byte(value)
			return headers
		}
	}
	return append(headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func parseCompressionCodec(codec string) (sarama.CompressionCodec, error) {
	switch strings.ToLower(codec) {
	case "", "none":
		return sarama.CompressionNone, nil
	case "snappy":
		return sarama.CompressionSnappy, nil
	case "gzip":
		return sarama.CompressionGZIP, nil
	case "lz4":
		return sarama.CompressionLZ4, nil
	case "zstd":
		return sarama.CompressionZSTD, nil
	default:
		return sarama.CompressionNone, fmt.Errorf("unsupported compression codec %q", codec)
	}
}

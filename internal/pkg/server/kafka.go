package server

import (
	"context"
	stderrors "errors"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/segmentio/kafka-go"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

const kafkaDialTimeout = 5 * time.Second

// CheckKafkaConnection 依次探测 broker，按指数退避最多重试 MaxRetries 次.
func CheckKafkaConnection(ctx context.Context, opts *options.KafkaOptions) error {
	attempt := 0
	check := func() error {
		attempt++
		log.Debugf("尝试连接 Kafka (第 %d 次)...", attempt)
		return checkKafkaBrokers(ctx, opts.Brokers)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(opts.MaxRetries)), ctx)
	if err := backoff.Retry(check, bo); err != nil {
		return errors.WithCode(code.ErrKafkaFailed, "kafka 连接失败，已重试 %d 次: %v", attempt, err)
	}
	log.Debug("Kafka 连接成功")
	return nil
}

func checkKafkaBrokers(ctx context.Context, brokers []string) error {
	dialer := &kafka.Dialer{Timeout: kafkaDialTimeout}
	for _, broker := range brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			return errors.Errorf("无法连接到 Broker %s: %v", broker, err)
		}
		conn.Close()
		log.Debugf("Broker %s 连接成功", broker)
	}
	return nil
}

// EnsureCommandTopic 检查命令事件 Topic，不存在且允许时按 DesiredPartitions 创建.
func EnsureCommandTopic(ctx context.Context, opts *options.KafkaOptions) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	admin := &kafka.Client{Addr: kafka.TCP(opts.Brokers...), Timeout: kafkaDialTimeout}
	metadata, err := admin.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{opts.Topic}})
	if err != nil {
		return errors.WithCode(code.ErrKafkaFailed, "获取topic %s 元数据失败: %v", opts.Topic, err)
	}
	for _, t := range metadata.Topics {
		if t.Name != opts.Topic || t.Error != nil || len(t.Partitions) == 0 {
			continue
		}
		if len(t.Partitions) < opts.DesiredPartitions {
			log.Warnf("Topic %s 当前分区数 %d 小于期望的 %d，请手动扩展: kafka-topics.sh --alter --topic %s --partitions %d",
				opts.Topic, len(t.Partitions), opts.DesiredPartitions, opts.Topic, opts.DesiredPartitions)
		}
		return nil
	}

	if !opts.AutoCreateTopic {
		log.Warnf("Topic %s 不存在，依赖broker自动创建", opts.Topic)
		return nil
	}
	return createTopic(ctx, opts)
}

func createTopic(ctx context.Context, opts *options.KafkaOptions) error {
	dialer := &kafka.Dialer{Timeout: kafkaDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", opts.Brokers[0])
	if err != nil {
		return errors.WithCode(code.ErrKafkaFailed, "连接 broker 失败: %v", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return errors.WithCode(code.ErrKafkaFailed, "获取 controller 失败: %v", err)
	}
	ctrl, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return errors.WithCode(code.ErrKafkaFailed, "连接 controller 失败: %v", err)
	}
	defer ctrl.Close()

	replication := opts.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}
	err = ctrl.CreateTopics(kafka.TopicConfig{
		Topic:             opts.Topic,
		NumPartitions:     opts.DesiredPartitions,
		ReplicationFactor: replication,
	})
	if err != nil && !stderrors.Is(err, kafka.TopicAlreadyExists) {
		return errors.WithCode(code.ErrKafkaFailed, "创建 topic %s 失败: %v", opts.Topic, err)
	}
	log.Infof("Topic %s 已就绪: partitions=%d, replication=%d", opts.Topic, opts.DesiredPartitions, replication)
	return nil
}

package options

import (
	"os"
	"strings"
	"time"

	"github.com/maxiaolu1981/cretem/nexuscore/component-base/validation/field"
	"github.com/spf13/pflag"

	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// KafkaOptions 定义Kafka配置选项
type KafkaOptions struct {
	// Enabled 关闭时命令事件只写日志，不投递
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Broker地址列表
	Brokers []string `json:"brokers" mapstructure:"brokers" validate:"min=1"`

	// 命令事件Topic
	Topic string `json:"topic" mapstructure:"topic" validate:"nonzero"`

	// 缓存失效消费者组前缀，实例ID会拼在后面，保证每个实例都收到全部事件
	ConsumerGroup string `json:"consumerGroup" mapstructure:"consumerGroup" validate:"nonzero"`

	// 消息确认机制 (0:无需确认, 1:leader确认, -1:所有副本确认)
	RequiredAcks int `json:"requiredAcks" mapstructure:"requiredAcks" validate:"min=-1,max=1"`

	// 批处理大小
	BatchSize int `json:"batchSize" mapstructure:"batchSize" validate:"min=1"`

	// 批处理超时时间
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout" validate:"min=1ms"`

	// 最大重试次数
	MaxRetries int `json:"maxRetries" mapstructure:"maxRetries" validate:"min=0"`

	// 读取消息最小字节数
	MinBytes int `json:"minBytes" mapstructure:"minBytes" validate:"min=1"`

	// 读取消息最大字节数
	MaxBytes int `json:"maxBytes" mapstructure:"maxBytes" validate:"min=1024"`

	// 消费者worker数量
	WorkerCount int `json:"workerCount" mapstructure:"workerCount" validate:"min=1"`

	// 压缩算法 none/gzip/snappy/lz4/zstd
	Compression string `json:"compression" mapstructure:"compression"`

	// 生产者入队等待上限，超时写入兜底文件
	EnqueueTimeout time.Duration `json:"enqueueTimeout" mapstructure:"enqueueTimeout"`
	// 兜底文件目录
	FallbackDir string `json:"fallbackDir" mapstructure:"fallbackDir"`

	BaseRetryDelay    time.Duration `json:"baseretrydelay" mapstructure:"baseretrydelay"`
	MaxRetryDelay     time.Duration `json:"maxretrydelay" mapstructure:"maxretrydelay"`
	AutoCreateTopic   bool          `json:"autoCreateTopic" mapstructure:"autoCreateTopic"`
	DesiredPartitions int           `json:"desiredPartitions" mapstructure:"desiredPartitions" validate:"min=1"`
	ReplicationFactor int           `json:"replicationFactor" mapstructure:"replicationFactor"`
	// 实例唯一ID（建议用 hostname、pod name、uuid 等保证全局唯一）
	InstanceID string `json:"instanceID" mapstructure:"instanceID"`
}

// NewKafkaOptions 创建带有默认值的Kafka配置
func NewKafkaOptions() *KafkaOptions {
	return &KafkaOptions{
		Enabled:           true,
		Brokers:           []string{"127.0.0.1:9092"},
		Topic:             "obs.commands",
		ConsumerGroup:     "obs-cache-invalidator",
		RequiredAcks:      -1,
		BatchSize:         100,
		BatchTimeout:      100 * time.Millisecond,
		MaxRetries:        4,
		MinBytes:          1,
		MaxBytes:          10 * 1024 * 1024, // 10MB
		WorkerCount:       2,
		Compression:       "snappy",
		EnqueueTimeout:    200 * time.Millisecond,
		FallbackDir:       "log/kafka-fallback",
		BaseRetryDelay:    time.Second,
		MaxRetryDelay:     30 * time.Second,
		AutoCreateTopic:   true,
		DesiredPartitions: 6,
		ReplicationFactor: 1,
	}
}

// Complete 完成配置的最终处理
func (k *KafkaOptions) Complete() {
	// 从环境变量获取配置（如果存在）
	if envBrokers := os.Getenv("KAFKA_BROKERS"); envBrokers != "" {
		k.Brokers = parseBrokers(envBrokers)
	}
	if envTopic := os.Getenv("KAFKA_TOPIC"); envTopic != "" {
		k.Topic = envTopic
	}
	if envInstanceID := os.Getenv("KAFKA_INSTANCE_ID"); envInstanceID != "" {
		k.InstanceID = envInstanceID
	}
	// 若仍为空，自动用主机名兜底
	if k.InstanceID == "" {
		if host, err := os.Hostname(); err == nil {
			k.InstanceID = host
		}
	}

	if len(k.Brokers) == 0 {
		k.Brokers = []string{"localhost:9092"}
	}
	if k.BatchSize <= 0 {
		k.BatchSize = 100
	}
	if k.BatchTimeout <= 0 {
		k.BatchTimeout = 100 * time.Millisecond
	}
	if k.WorkerCount <= 0 {
		k.WorkerCount = 1
	}
	if k.MinBytes <= 0 {
		k.MinBytes = 1
	}
	if k.MaxBytes <= 0 {
		k.MaxBytes = 10 * 1024 * 1024
	}
	if k.DesiredPartitions <= 0 {
		k.DesiredPartitions = 6
	}
	if k.ReplicationFactor <= 0 {
		k.ReplicationFactor = 1
	}
	if k.EnqueueTimeout <= 0 {
		k.EnqueueTimeout = 200 * time.Millisecond
	}
	if k.WorkerCount > k.DesiredPartitions {
		log.Warnf("Worker数量(%d)超过分区数(%d)，部分worker可能空闲",
			k.WorkerCount, k.DesiredPartitions)
	}
}

// Validate 验证配置的有效性
func (k *KafkaOptions) Validate() []error {
	if !k.Enabled {
		return nil
	}
	var errs []error

	// 验证brokers
	if len(k.Brokers) == 0 {
		errs = append(errs, field.Required(field.NewPath("kafka", "brokers"), "必须指定至少一个Kafka broker地址"))
	}

	for i, broker := range k.Brokers {
		if broker == "" {
			errs = append(errs, field.Required(field.NewPath("kafka", "brokers").Index(i), "broker地址不能为空"))
		}
	}

	// 验证topic
	if k.Topic == "" {
		errs = append(errs, field.Required(field.NewPath("kafka", "topic"), "必须指定Kafka topic名称"))
	} else if len(k.Topic) > 255 {
		errs = append(errs, field.TooLong(field.NewPath("kafka", "topic"), k.Topic, 255))
	}

	if k.ConsumerGroup == "" {
		errs = append(errs, field.Required(field.NewPath("kafka", "consumerGroup"), "必须指定消费者组ID"))
	}

	if k.RequiredAcks < -1 || k.RequiredAcks > 1 {
		errs = append(errs, field.Invalid(field.NewPath("kafka", "requiredAcks"), k.RequiredAcks, "必须为-1, 0或1"))
	}

	if k.BatchSize < 1 {
		errs = append(errs, field.Invalid(field.NewPath("kafka", "batchSize"), k.BatchSize, "必须大于0"))
	}

	if k.BatchTimeout < time.Millisecond {
		errs = append(errs, field.Invalid(field.NewPath("kafka", "batchTimeout"), k.BatchTimeout, "必须大于1ms"))
	}

	if k.WorkerCount < 1 {
		errs = append(errs, field.Invalid(field.NewPath("kafka", "workerCount"), k.WorkerCount, "必须大于0"))
	}

	switch k.Compression {
	case "", "none", "gzip", "snappy", "lz4", "zstd":
	default:
		errs = append(errs, field.NotSupported(field.NewPath("kafka", "compression"), k.Compression,
			[]string{"none", "gzip", "snappy", "lz4", "zstd"}))
	}

	if k.DesiredPartitions < 1 {
		errs = append(errs, field.Invalid(field.NewPath("kafka", "partitions"),
			k.DesiredPartitions, "分区数必须大于0"))
	}

	return errs
}

// AddFlags 添加命令行标志
func (k *KafkaOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&k.Enabled, "kafka.enabled", k.Enabled,
		"是否投递命令事件并启动缓存失效消费者")

	fs.StringSliceVar(&k.Brokers, "kafka.brokers", k.Brokers,
		"Kafka broker地址列表 (例如: localhost:9092,broker2:9092)。也可以通过环境变量 KAFKA_BROKERS 设置")

	fs.StringVar(&k.Topic, "kafka.topic", k.Topic,
		"命令事件topic名称。也可以通过环境变量 KAFKA_TOPIC 设置")

	fs.StringVar(&k.ConsumerGroup, "kafka.consumer-group", k.ConsumerGroup,
		"缓存失效消费者组前缀")

	fs.IntVar(&k.RequiredAcks, "kafka.required-acks", k.RequiredAcks,
		"消息确认机制: -1=所有副本确认, 0=无需确认, 1=leader确认")

	fs.IntVar(&k.BatchSize, "kafka.batch-size", k.BatchSize,
		"生产者批处理大小")

	fs.DurationVar(&k.BatchTimeout, "kafka.batch-timeout", k.BatchTimeout,
		"生产者批处理超时时间")

	fs.IntVar(&k.MaxRetries, "kafka.max-retries", k.MaxRetries,
		"最大重试次数")

	fs.IntVar(&k.MinBytes, "kafka.min-bytes", k.MinBytes,
		"消费者读取最小字节数")

	fs.IntVar(&k.MaxBytes, "kafka.max-bytes", k.MaxBytes,
		"消费者读取最大字节数")

	fs.IntVar(&k.WorkerCount, "kafka.worker-count", k.WorkerCount,
		"消费者worker数量")

	fs.StringVar(&k.Compression, "kafka.compression", k.Compression,
		"生产者压缩算法: none, gzip, snappy, lz4, zstd")

	fs.DurationVar(&k.EnqueueTimeout, "kafka.enqueue-timeout", k.EnqueueTimeout,
		"生产者入队等待上限，超时写入兜底文件")

	fs.StringVar(&k.FallbackDir, "kafka.fallback-dir", k.FallbackDir,
		"投递失败的事件写入的兜底目录")

	fs.BoolVar(&k.AutoCreateTopic, "kafka.auto-create-topic", k.AutoCreateTopic,
		"是否自动创建不存在的topic")

	fs.IntVar(&k.DesiredPartitions, "kafka.partitions", k.DesiredPartitions,
		"期望的分区数量")

	fs.IntVar(&k.ReplicationFactor, "kafka.replication-factor", k.ReplicationFactor,
		"自动创建topic时的副本数")

	fs.StringVar(&k.InstanceID, "kafka.instance-id", k.InstanceID, "实例唯一ID（建议用hostname、pod name、uuid等保证全局唯一）。也可通过环境变量 KAFKA_INSTANCE_ID 设置")
}

// parseBrokers 从逗号分隔的字符串解析broker列表
func parseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// ConsumerGroupID 每个实例独立的消费组
func (k *KafkaOptions) ConsumerGroupID() string {
	if k.InstanceID == "" {
		return k.ConsumerGroup
	}
	return k.ConsumerGroup + "-" + k.InstanceID
}

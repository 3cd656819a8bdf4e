package server

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 系统常量
const (
	// APIServerAudience defines the value of jwt audience field.
	APIServerAudience = "https://github.com/maxiaolu1981/cretem/obs-mini"

	// Issuer - 标识令牌的"签发系统"（系统视角）
	APIServerIssuer = "obs-apiserver"
	// Realm - 标识受保护的"资源领域"（用户视角）
	APIServerRealm = "github.com/maxiaolu1981/cretem/obs-mini"
)

const (
	// 消费者默认并发数，KafkaOptions.WorkerCount 未配置时使用
	defaultConsumerWorkers = 2
	// 启动时等待端口就绪的最长时间
	portReadyTimeout = 10 * time.Second
)

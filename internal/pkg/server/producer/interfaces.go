// Package producer 定义命令事件的投递接口，服务层只依赖接口，具体实现在 server 包中.
package producer

import (
	"context"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

// MessageProducer 定义命令事件生产者接口
type MessageProducer interface {
	// SendCommandEvent 异步入队，入队失败时写入兜底文件并返回错误
	SendCommandEvent(ctx context.Context, event *v1.CommandEvent) error

	// Close 关闭生产者连接
	Close() error
}

package producer

import (
	"strconv"
	"time"

	"github.com/IBM/sarama"
	jsoniter "github.com/json-iterator/go"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 消息头
const (
	HeaderEntity            = "entity"
	HeaderAction            = "action"
	HeaderEventID           = "event-id"
	HeaderOriginalTimestamp = "original-timestamp"
	HeaderRetryCount        = "retry-count"
	HeaderTraceID           = "trace-id"
)

// NewCommandMessage 以实体和资源ID为key，同一资源的事件落在同一分区保证顺序.
func NewCommandMessage(topic string, event *v1.CommandEvent) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	key := event.EntityName + ":" + strconv.FormatInt(event.ResourceID, 10)
	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEntity), Value: []byte(event.EntityName)},
			{Key: []byte(HeaderAction), Value: []byte(event.ActionName)},
			{Key: []byte(HeaderEventID), Value: []byte(event.EventID)},
			{Key: []byte(HeaderOriginalTimestamp), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
			{Key: []byte(HeaderRetryCount), Value: []byte("0")},
		},
	}, nil
}

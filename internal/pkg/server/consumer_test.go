package server

import (
	"context"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

type recordingInvalidator struct {
	mu     sync.Mutex
	events []*v1.CommandEvent
}

func (r *recordingInvalidator) Invalidate(_ context.Context, event *v1.CommandEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestInvalidationConsumerProcessMessage(t *testing.T) {
	inv := &recordingInvalidator{}
	c := &InvalidationConsumer{invalidator: inv, topic: "obs.commands", group: "obs-test"}

	c.processMessage(context.Background(), kafka.Message{
		Value: []byte(`{"commandId":7,"entityName":"CODEVALUE","actionName":"UPDATE","resourceIdentifier":"Office Type"}`),
	})
	// 消息体缺少实体时取消息头
	c.processMessage(context.Background(), kafka.Message{
		Value:   []byte(`{"commandId":8,"actionName":"CREATE","resourceId":3}`),
		Headers: []kafka.Header{{Key: "entity", Value: []byte("OFFICE")}},
	})
	c.processMessage(context.Background(), kafka.Message{Value: []byte(`not json`)})

	require.Len(t, inv.events, 2)
	assert.Equal(t, "CODEVALUE", inv.events[0].EntityName)
	assert.Equal(t, "Office Type", inv.events[0].ResourceIdentifier)
	assert.Equal(t, "OFFICE", inv.events[1].EntityName)
	assert.Equal(t, int64(3), inv.events[1].ResourceID)
}

func TestInvalidationConsumerCloseWithoutReader(t *testing.T) {
	assert.NoError(t, (&InvalidationConsumer{}).Close())
}

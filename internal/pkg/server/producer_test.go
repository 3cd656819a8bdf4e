package server

import (
	"bufio"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/server/producer"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

func testKafkaOptions(t *testing.T) *options.KafkaOptions {
	opts := options.NewKafkaOptions()
	opts.Topic = "obs.commands"
	opts.FallbackDir = t.TempDir()
	opts.MaxRetryDelay = 0
	opts.MaxRetries = 3
	return opts
}

func readFallback(t *testing.T, path string) []fallbackMessage {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var out []fallbackMessage
	s := bufio.NewScanner(f)
	for s.Scan() {
		var m fallbackMessage
		require.NoError(t, json.Unmarshal(s.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestCommandProducerBrokerErrorGoesToFallback(t *testing.T) {
	opts := testKafkaOptions(t)
	mp := mocks.NewAsyncProducer(t, mocks.NewTestConfig())
	mp.ExpectInputAndSucceed()
	mp.ExpectInputAndFail(stderrors.New("broker down"))

	p := newCommandProducer(mp, opts)
	ctx := context.WithValue(context.Background(), log.KeyRequestID, "req-1")
	ok := &v1.CommandEvent{EventID: "e1", CommandID: 1, EntityName: "OFFICE", ActionName: "CREATE", ResourceID: 2}
	bad := &v1.CommandEvent{EventID: "e2", CommandID: 2, EntityName: "OFFICE", ActionName: "UPDATE", ResourceID: 2}
	require.NoError(t, p.SendCommandEvent(ctx, ok))
	require.NoError(t, p.SendCommandEvent(ctx, bad))
	require.NoError(t, p.Close())

	entries := readFallback(t, filepath.Join(opts.FallbackDir, fallbackFileName(time.Now())))
	require.Len(t, entries, 1)
	assert.Equal(t, "obs.commands", entries[0].Topic)
	assert.Equal(t, "OFFICE:2", entries[0].Key)
	assert.Contains(t, entries[0].Value, `"commandId":2`)

	var trace string
	for _, h := range entries[0].Headers {
		if h.Key == producer.HeaderTraceID {
			trace = h.Value
		}
	}
	assert.Equal(t, "req-1", trace)
}

func TestCommandProducerClosedWritesFallback(t *testing.T) {
	opts := testKafkaOptions(t)
	p := newCommandProducer(mocks.NewAsyncProducer(t, mocks.NewTestConfig()), opts)
	require.NoError(t, p.Close())

	err := p.SendCommandEvent(context.Background(), &v1.CommandEvent{CommandID: 3, EntityName: "DATATABLE"})
	require.Error(t, err)
	entries := readFallback(t, filepath.Join(opts.FallbackDir, fallbackFileName(time.Now())))
	require.Len(t, entries, 1)
	assert.Equal(t, "DATATABLE:0", entries[0].Key)
}

func TestProcessFallbackFile(t *testing.T) {
	opts := testKafkaOptions(t)
	mp := mocks.NewAsyncProducer(t, mocks.NewTestConfig())
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		for _, h := range msg.Headers {
			if string(h.Key) == producer.HeaderRetryCount && string(h.Value) != "2" {
				return stderrors.New("retry count not increased: " + string(h.Value))
			}
		}
		return nil
	})
	p := newCommandProducer(mp, opts)

	path := filepath.Join(opts.FallbackDir, fallbackFileName(time.Now().AddDate(0, 0, -1)))
	lines := []fallbackMessage{
		{Topic: "obs.commands", Key: "OFFICE:1", Value: `{"commandId":1}`, Attempts: 1,
			Headers: []fallbackHeader{{Key: producer.HeaderRetryCount, Value: "1"}}},
		{Topic: "obs.commands", Key: "OFFICE:9", Value: `{"commandId":9}`, Attempts: 3},
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	for _, l := range lines {
		data, err := json.Marshal(l)
		require.NoError(t, err)
		_, err = f.Write(append(data, '\n'))
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	n, err := p.processFallbackFile(log.WithValues("test", t.Name()), path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// 当天文件仍在追加，不处理
	today := filepath.Join(opts.FallbackDir, fallbackFileName(time.Now()))
	require.NoError(t, os.WriteFile(today, []byte("{}\n"), 0o644))
	n, err = p.processFallbackFile(log.WithValues("test", t.Name()), today)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, p.Close())
}

func TestParseCompressionCodec(t *testing.T) {
	c, err := parseCompressionCodec("Snappy")
	require.NoError(t, err)
	assert.Equal(t, sarama.CompressionSnappy, c)
	c, err = parseCompressionCodec("")
	require.NoError(t, err)
	assert.Equal(t, sarama.CompressionNone, c)
	_, err = parseCompressionCodec("brotli")
	assert.Error(t, err)
}

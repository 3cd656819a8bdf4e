package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestOptionsValidate(t *testing.T) {
	opts := NewOptions()
	assert.Empty(t, opts.Validate())

	opts.Level = "verbose"
	opts.Format = "xml"
	assert.Len(t, opts.Validate(), 2)
}

func TestHandleFields(t *testing.T) {
	fields := handleFields([]interface{}{"office", 1, zap.String("k", "v"), "dangling"})
	assert.Len(t, fields, 3)
	assert.Equal(t, "office", fields[0].Key)
	assert.Equal(t, "k", fields[1].Key)
	assert.Equal(t, "ignored", fields[2].Key)
}

func TestLWithoutContextValues(t *testing.T) {
	assert.Same(t, global(), L(context.Background()))

	ctx := context.WithValue(context.Background(), KeyRequestID, "req-1") //nolint:staticcheck
	assert.NotSame(t, global(), L(ctx))
}

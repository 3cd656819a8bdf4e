package server

import (
	"testing"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

func TestDecodeLoginInfo(t *testing.T) {
	var info loginInfo
	require.NoError(t, decodeLoginInfo([]byte(`{"username":" mifos ","extra":{"a":[1,2]},"password":"pw"}`), &info))
	assert.Equal(t, "mifos", info.Username)
	assert.Equal(t, "pw", info.Password)

	// 非字符串字段按空值处理
	require.NoError(t, decodeLoginInfo([]byte(`{"username":1,"password":null}`), &info))
	assert.Empty(t, info.Username)
	assert.Empty(t, info.Password)
}

func TestDecodeLoginInfoInvalid(t *testing.T) {
	var info loginInfo
	for _, raw := range []string{"", "  ", `["mifos"]`, `{"username":"mifos"`} {
		err := decodeLoginInfo([]byte(raw), &info)
		require.Error(t, err, raw)
		assert.True(t, errors.IsCode(err, code.ErrBind), raw)
	}
}

package server

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

var jsonCodec = jsoniter.ConfigFastest

// decodeLoginInfo 逐字段读取登录请求体，忽略未知字段.
func decodeLoginInfo(data []byte, dst *loginInfo) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return errors.WithCode(code.ErrBind, "request body is empty")
	}
	*dst = loginInfo{}

	iter := jsonCodec.BorrowIterator(data)
	defer jsonCodec.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return errors.WithCode(code.ErrBind, "login body must be a JSON object")
	}
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		switch field {
		case "username":
			dst.Username = strings.TrimSpace(readString(iter))
		case "password":
			dst.Password = readString(iter)
		default:
			iter.Skip()
		}
	}
	if iter.Error != nil {
		return errors.WithCode(code.ErrBind, "%s", iter.Error.Error())
	}
	return nil
}

func readString(iter *jsoniter.Iterator) string {
	if iter.WhatIsNext() != jsoniter.StringValue {
		iter.Skip()
		return ""
	}
	return iter.ReadString()
}

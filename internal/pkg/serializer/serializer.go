// Package serializer 按请求设置输出 JSON，支持字段过滤与格式化.
package serializer

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/apihelper"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToJSON 直接序列化，不做过滤.
func ToJSON(prettyPrint bool, data interface{}) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	if prettyPrint {
		b, err = json.MarshalIndent(data, "", "  ")
	} else {
		b, err = json.Marshal(data)
	}
	if err != nil {
		return nil, errors.WithCode(code.ErrEncodingJSON, "序列化响应失败: %s", err.Error())
	}
	return b, nil
}

// Serialize 按 settings 序列化 data.
// 指定 fields 时，supported 中未被选中的字段被递归移除，supported 之外的字段保留.
func Serialize(settings apihelper.Settings, data interface{}, supported map[string]struct{}) ([]byte, error) {
	if !settings.HasFields() || len(supported) == 0 {
		return ToJSON(settings.PrettyPrint, data)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.WithCode(code.ErrEncodingJSON, "序列化响应失败: %s", err.Error())
	}
	var tree interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, errors.WithCode(code.ErrDecodingJSON, "解析响应失败: %s", err.Error())
	}

	keep := make(map[string]struct{}, len(settings.Fields))
	for _, f := range settings.Fields {
		keep[f] = struct{}{}
	}
	return ToJSON(settings.PrettyPrint, filter(tree, keep, supported))
}

func filter(node interface{}, keep, supported map[string]struct{}) interface{} {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, child := range v {
			_, isSupported := supported[k]
			_, isKept := keep[k]
			if isSupported && !isKept {
				delete(v, k)
				continue
			}
			v[k] = filter(child, keep, supported)
		}
		return v
	case []interface{}:
		for i := range v {
			v[i] = filter(v[i], keep, supported)
		}
		return v
	default:
		return v
	}
}

// ParameterSet 把参数名列表转为集合.
func ParameterSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

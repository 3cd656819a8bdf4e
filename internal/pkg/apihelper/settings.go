// Package apihelper 解析请求中的通用查询参数.
package apihelper

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Settings 请求级的序列化设置.
type Settings struct {
	// Fields 需要返回的字段，为空表示全部返回
	Fields []string

	PrettyPrint      bool
	Template         bool
	MakerCheckerable bool
	IncludeJSON      bool

	Locale     string
	DateFormat string
}

// Process 从查询串中提取 Settings，未识别的参数忽略.
func Process(query url.Values) Settings {
	s := Settings{
		PrettyPrint:      boolOf(query, "prettyPrint"),
		Template:         boolOf(query, "template"),
		MakerCheckerable: boolOf(query, "makerCheckerable"),
		IncludeJSON:      boolOf(query, "includeJson"),
		Locale:           query.Get("locale"),
		DateFormat:       query.Get("dateFormat"),
	}
	if fields := strings.TrimSpace(query.Get("fields")); fields != "" {
		s.Fields = lo.Uniq(lo.FilterMap(strings.Split(fields, ","), func(f string, _ int) (string, bool) {
			f = strings.TrimSpace(f)
			return f, f != ""
		}))
	}
	return s
}

// HasFields 是否指定了字段过滤.
func (s Settings) HasFields() bool {
	return len(s.Fields) > 0
}

func boolOf(query url.Values, name string) bool {
	v := query.Get(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

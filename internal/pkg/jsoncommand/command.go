// Package jsoncommand 包装命令请求体，提供类型化读取与变更检测.
package jsoncommand

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
)

const (
	ParamLocale     = "locale"
	ParamDateFormat = "dateFormat"
)

// 使用逗号作为小数点的语言
var decimalCommaLocales = map[string]bool{
	"de": true, "fr": true, "es": true, "it": true, "pt": true,
	"nl": true, "ru": true, "id": true, "tr": true, "pl": true,
}

// JsonCommand 一次命令调用的请求体及其上下文.
type JsonCommand struct {
	raw []byte

	CommandID     int64
	EntityName    string
	ResourceID    int64
	SubresourceID int64
	Href          string
}

// New 解析请求体，空串视为 {}，非对象返回 ErrInvalidJSON.
func New(body string) (*JsonCommand, error) {
	raw := bytes.TrimSpace([]byte(body))
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if !jsoniter.Valid(raw) || raw[0] != '{' {
		return nil, errors.WithCode(code.ErrInvalidJSON, "请求体不是合法的 JSON 对象")
	}
	return &JsonCommand{raw: raw}, nil
}

// JSON 原始请求体.
func (c *JsonCommand) JSON() string {
	return string(c.raw)
}

func (c *JsonCommand) get(name string) ([]byte, jsonparser.ValueType, bool) {
	v, t, _, err := jsonparser.Get(c.raw, name)
	if err != nil {
		return nil, jsonparser.NotExist, false
	}
	return v, t, true
}

// ParameterExists 参数是否出现在请求体中（含 null）.
func (c *JsonCommand) ParameterExists(name string) bool {
	_, _, ok := c.get(name)
	return ok
}

// IsNull 参数缺失或为 null.
func (c *JsonCommand) IsNull(name string) bool {
	_, t, ok := c.get(name)
	return !ok || t == jsonparser.Null
}

// Keys 请求体顶层参数名.
func (c *JsonCommand) Keys() []string {
	var keys []string
	_ = jsonparser.ObjectEach(c.raw, func(key []byte, _ []byte, _ jsonparser.ValueType, _ int) error {
		keys = append(keys, string(key))
		return nil
	})
	return keys
}

// Params 顶层参数的文本值，null 为 nil，数组与对象保留原文.
func (c *JsonCommand) Params() map[string]*string {
	out := map[string]*string{}
	_ = jsonparser.ObjectEach(c.raw, func(key []byte, value []byte, t jsonparser.ValueType, _ int) error {
		switch t {
		case jsonparser.Null:
			out[string(key)] = nil
		case jsonparser.String:
			s, err := jsonparser.ParseString(value)
			if err != nil {
				s = string(value)
			}
			out[string(key)] = &s
		default:
			s := string(value)
			out[string(key)] = &s
		}
		return nil
	})
	return out
}

// String 返回去掉首尾空白的字符串，缺失或 null 返回空串.
func (c *JsonCommand) String(name string) string {
	v, t, ok := c.get(name)
	if !ok || t == jsonparser.Null {
		return ""
	}
	if t == jsonparser.String {
		s, err := jsonparser.ParseString(v)
		if err == nil {
			return strings.TrimSpace(s)
		}
	}
	return strings.TrimSpace(string(v))
}

// StringPtr 同 String，缺失或 null 返回 nil.
func (c *JsonCommand) StringPtr(name string) *string {
	if c.IsNull(name) {
		return nil
	}
	s := c.String(name)
	return &s
}

func (c *JsonCommand) Locale() string {
	if l := c.String(ParamLocale); l != "" {
		return l
	}
	return "en"
}

func (c *JsonCommand) DateFormat() string {
	return c.String(ParamDateFormat)
}

func invalid(name, kind string, value interface{}) error {
	return validation.Fail(code.ErrValidation, validation.NewParameterError(
		fmt.Sprintf("validation.msg.invalid.%s.format", kind),
		fmt.Sprintf("The parameter %s has value: %v which is invalid %s value.", name, value, kind),
		name, value))
}

// normalizeNumber 按 locale 去掉分组符并统一小数点.
func normalizeNumber(s, locale string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if decimalCommaLocales[localeLanguage(locale)] {
		s = strings.ReplaceAll(s, ".", "")
		return strings.ReplaceAll(s, ",", ".")
	}
	return strings.ReplaceAll(s, ",", "")
}

// Long 读取整数参数，缺失、null 或空串返回 nil.
func (c *JsonCommand) Long(name string) (*int64, error) {
	v, t, ok := c.get(name)
	if !ok || t == jsonparser.Null {
		return nil, nil
	}
	text := string(v)
	if t == jsonparser.String {
		text = normalizeNumber(c.String(name), c.Locale())
		if text == "" {
			return nil, nil
		}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, invalid(name, "integer", string(v))
	}
	return &n, nil
}

func (c *JsonCommand) Int(name string) (*int, error) {
	n, err := c.Long(name)
	if err != nil || n == nil {
		return nil, err
	}
	i := int(*n)
	return &i, nil
}

// Bool 读取布尔参数，接受 true/false 以及字符串形式.
func (c *JsonCommand) Bool(name string) *bool {
	v, t, ok := c.get(name)
	if !ok || t == jsonparser.Null {
		return nil
	}
	var b bool
	switch t {
	case jsonparser.Boolean:
		b, _ = jsonparser.ParseBoolean(v)
	default:
		b, _ = strconv.ParseBool(c.String(name))
	}
	return &b
}

func (c *JsonCommand) BoolValue(name string) bool {
	b := c.Bool(name)
	return b != nil && *b
}

// Decimal 按 locale 读取金额类参数.
func (c *JsonCommand) Decimal(name string) (*decimal.Decimal, error) {
	v, t, ok := c.get(name)
	if !ok || t == jsonparser.Null {
		return nil, nil
	}
	text := string(v)
	if t == jsonparser.String {
		text = normalizeNumber(c.String(name), c.Locale())
		if text == "" {
			return nil, nil
		}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, invalid(name, "decimal", string(v))
	}
	return &d, nil
}

// LocalDate 读取日期参数，支持 dateFormat 字符串与 [y, m, d] 数组.
func (c *JsonCommand) LocalDate(name string) (*time.Time, error) {
	v, t, ok := c.get(name)
	if !ok || t == jsonparser.Null {
		return nil, nil
	}
	if t == jsonparser.Array {
		var parts []int
		if err := jsoniter.Unmarshal(v, &parts); err != nil || len(parts) != 3 {
			return nil, invalid(name, "date", string(v))
		}
		d := time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.Local)
		return &d, nil
	}
	s := c.String(name)
	if s == "" {
		return nil, nil
	}
	if c.DateFormat() == "" {
		return nil, validation.Fail(code.ErrValidation, validation.NewParameterError(
			"validation.msg.dateFormat.cannot.be.blank",
			"The parameter dateFormat is mandatory when a date is provided.", ParamDateFormat, nil))
	}
	if err := CheckDateLocale(c.DateFormat(), c.Locale()); err != nil {
		return nil, err
	}
	d, err := ParseLocalDate(s, c.DateFormat(), c.Locale())
	if err != nil {
		return nil, invalid(name, "date", s)
	}
	return &d, nil
}

// StringArray 读取字符串数组.
func (c *JsonCommand) StringArray(name string) []string {
	v, t, ok := c.get(name)
	if !ok || t != jsonparser.Array {
		return nil
	}
	var out []string
	_, _ = jsonparser.ArrayEach(v, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
		if vt == jsonparser.String {
			if s, err := jsonparser.ParseString(value); err == nil {
				out = append(out, s)
				return
			}
		}
		out = append(out, string(value))
	})
	return out
}

// LongArray 读取整数数组.
func (c *JsonCommand) LongArray(name string) ([]int64, error) {
	var (
		out  []int64
		bad  string
		strs = c.StringArray(name)
	)
	for _, s := range strs {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			bad = s
			break
		}
		out = append(out, n)
	}
	if bad != "" {
		return nil, invalid(name, "integer", bad)
	}
	return out, nil
}

// Array 读取对象数组，每个元素包装为 JsonCommand.
func (c *JsonCommand) Array(name string) []*JsonCommand {
	v, t, ok := c.get(name)
	if !ok || t != jsonparser.Array {
		return nil
	}
	var out []*JsonCommand
	_, _ = jsonparser.ArrayEach(v, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
		if vt == jsonparser.Object {
			out = append(out, &JsonCommand{raw: append([]byte(nil), value...)})
		}
	})
	return out
}

// IsChangeInString 参数存在且与现值不同.
func (c *JsonCommand) IsChangeInString(name, existing string) bool {
	return c.ParameterExists(name) && c.String(name) != existing
}

func (c *JsonCommand) IsChangeInLong(name string, existing *int64) bool {
	if !c.ParameterExists(name) {
		return false
	}
	n, err := c.Long(name)
	if err != nil {
		return true
	}
	return !equalPtr(n, existing)
}

func (c *JsonCommand) IsChangeInInt(name string, existing *int) bool {
	if !c.ParameterExists(name) {
		return false
	}
	n, err := c.Int(name)
	if err != nil {
		return true
	}
	return !equalPtr(n, existing)
}

func (c *JsonCommand) IsChangeInBool(name string, existing bool) bool {
	return c.ParameterExists(name) && c.BoolValue(name) != existing
}

func (c *JsonCommand) IsChangeInDecimal(name string, existing *decimal.Decimal) bool {
	if !c.ParameterExists(name) {
		return false
	}
	d, err := c.Decimal(name)
	if err != nil {
		return true
	}
	switch {
	case d == nil && existing == nil:
		return false
	case d == nil || existing == nil:
		return true
	}
	return !d.Equal(*existing)
}

func (c *JsonCommand) IsChangeInLocalDate(name string, existing *time.Time) bool {
	if !c.ParameterExists(name) {
		return false
	}
	d, err := c.LocalDate(name)
	if err != nil {
		return true
	}
	switch {
	case d == nil && existing == nil:
		return false
	case d == nil || existing == nil:
		return true
	}
	return d.Format(DefaultOutputLayout) != existing.Format(DefaultOutputLayout)
}

// CheckForUnsupportedParameters 请求体中出现 supported 之外的参数时报错.
func (c *JsonCommand) CheckForUnsupportedParameters(supported ...string) error {
	unsupported := lo.Filter(c.Keys(), func(k string, _ int) bool {
		return !lo.Contains(supported, k)
	})
	return validation.UnsupportedParameters(unsupported)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

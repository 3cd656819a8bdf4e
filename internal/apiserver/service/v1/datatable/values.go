package datatable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
)

const dateTimeLayout = "2006-01-02 15:04:05"

func valueError(datatable, column, suffix string, value interface{}, format string, args ...interface{}) error {
	return validation.Fail(code.ErrValidation, validation.NewParameterError(
		fmt.Sprintf("validation.msg.%s.%s.%s", datatable, column, suffix),
		fmt.Sprintf(format, args...), column, value))
}

// parseValue 按列的展示类型读取请求值，null 或缺失返回 nil.
func parseValue(datatable string, cmd *jsoncommand.JsonCommand, h *v1.ResultsetColumnHeaderData) (interface{}, error) {
	name := h.ColumnName
	switch h.ColumnDisplayType {
	case v1.DisplayTypeInteger:
		n, err := cmd.Long(name)
		if err != nil || n == nil {
			return nil, err
		}
		return *n, nil
	case v1.DisplayTypeCodeLookup:
		n, err := cmd.Long(name)
		if err != nil || n == nil {
			return nil, err
		}
		if !lo.ContainsBy(h.ColumnValues, func(v v1.ResultsetColumnValueData) bool { return v.ID == *n }) {
			return nil, valueError(datatable, name, "value.not.in.code", *n,
				"The value %d is not a valid option for column %s.", *n, name)
		}
		return *n, nil
	case v1.DisplayTypeDecimal:
		d, err := cmd.Decimal(name)
		if err != nil || d == nil {
			return nil, err
		}
		return d.String(), nil
	case v1.DisplayTypeDate, v1.DisplayTypeDateTime:
		t, err := cmd.LocalDate(name)
		if err != nil || t == nil {
			return nil, err
		}
		if h.IsDateDisplayType() {
			return t.Format(jsoncommand.DefaultOutputLayout), nil
		}
		return t.Format(dateTimeLayout), nil
	case v1.DisplayTypeBoolean:
		b := cmd.Bool(name)
		if b == nil {
			return nil, nil
		}
		return *b, nil
	}

	p := cmd.StringPtr(name)
	if p == nil || *p == "" {
		return nil, nil
	}
	if h.ColumnDisplayType == v1.DisplayTypeString && h.ColumnLength > 0 && int64(len([]rune(*p))) > h.ColumnLength {
		return nil, valueError(datatable, name, "exceeds.max.length", *p,
			"The parameter %s exceeds max length of %d.", name, h.ColumnLength)
	}
	return *p, nil
}

func toBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case int:
		return b != 0
	case string:
		if len(b) == 1 && b[0] <= 1 {
			// mysql BIT(1)
			return b[0] == 1
		}
		ok, _ := strconv.ParseBool(b)
		return ok
	}
	return false
}

func toTime(v interface{}, layout string) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if len(t) >= len(layout) {
			if parsed, err := time.Parse(layout, t[:len(layout)]); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// canonical 变更比较用的规范化字符串.
func canonical(h *v1.ResultsetColumnHeaderData, v interface{}) string {
	if v == nil {
		return ""
	}
	switch h.ColumnDisplayType {
	case v1.DisplayTypeDate:
		if t, ok := toTime(v, jsoncommand.DefaultOutputLayout); ok {
			return t.Format(jsoncommand.DefaultOutputLayout)
		}
	case v1.DisplayTypeDateTime:
		if t, ok := toTime(v, dateTimeLayout); ok {
			return t.Format(dateTimeLayout)
		}
	case v1.DisplayTypeBoolean:
		return strconv.FormatBool(toBool(v))
	case v1.DisplayTypeDecimal:
		if d, err := decimal.NewFromString(fmt.Sprint(v)); err == nil {
			return d.String()
		}
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// outputValue 结果集中的值：日期为 [y, m, d]，布尔为 bool，金额为数字.
func outputValue(h *v1.ResultsetColumnHeaderData, v interface{}) interface{} {
	if v == nil {
		return nil
	}
	switch h.ColumnDisplayType {
	case v1.DisplayTypeDate:
		if t, ok := toTime(v, jsoncommand.DefaultOutputLayout); ok {
			return jsoncommand.FormatLocalDate(t)
		}
	case v1.DisplayTypeDateTime:
		if t, ok := toTime(v, dateTimeLayout); ok {
			return t.Format(dateTimeLayout)
		}
	case v1.DisplayTypeBoolean:
		return toBool(v)
	case v1.DisplayTypeDecimal:
		if d, err := decimal.NewFromString(fmt.Sprint(v)); err == nil {
			return json.Number(d.String())
		}
	case v1.DisplayTypeInteger, v1.DisplayTypeCodeLookup:
		if s, ok := v.(string); ok {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		}
	}
	return v
}

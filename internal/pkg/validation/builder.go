package validation

import (
	"fmt"
	"math/big"
	"reflect"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

// DataValidatorBuilder 链式参数校验:
//
//	b := NewDataValidatorBuilder("office")
//	b.Parameter("name").Value(name).NotBlank().NotExceedingLengthOf(50)
//	return b.ThrowIfAny()
type DataValidatorBuilder struct {
	resource     string
	parameter    string
	value        interface{}
	ignoreIfNull bool
	errs         *[]ApiParameterError
}

func NewDataValidatorBuilder(resource string) *DataValidatorBuilder {
	return &DataValidatorBuilder{resource: resource, errs: &[]ApiParameterError{}}
}

// Parameter 切换到下一个参数，错误列表共享.
func (b *DataValidatorBuilder) Parameter(name string) *DataValidatorBuilder {
	return &DataValidatorBuilder{resource: b.resource, parameter: name, errs: b.errs}
}

func (b *DataValidatorBuilder) Value(v interface{}) *DataValidatorBuilder {
	b.value = v
	return b
}

// IgnoreIfNull 值为空时跳过后续校验，用于可选参数.
func (b *DataValidatorBuilder) IgnoreIfNull() *DataValidatorBuilder {
	b.ignoreIfNull = true
	return b
}

func (b *DataValidatorBuilder) add(suffix, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	*b.errs = append(*b.errs, NewParameterError(
		fmt.Sprintf("validation.msg.%s.%s.%s", b.resource, b.parameter, suffix),
		msg, b.parameter, b.value, args...))
}

func (b *DataValidatorBuilder) skip() bool {
	return b.ignoreIfNull && isNull(b.value)
}

func (b *DataValidatorBuilder) NotNull() *DataValidatorBuilder {
	if b.ignoreIfNull {
		return b
	}
	if isNull(b.value) {
		b.add("cannot.be.blank", "The parameter %s is mandatory.", b.parameter)
	}
	return b
}

func (b *DataValidatorBuilder) NotBlank() *DataValidatorBuilder {
	if b.skip() {
		return b
	}
	if isNull(b.value) || strings.TrimSpace(fmt.Sprint(deref(b.value))) == "" {
		b.add("cannot.be.blank", "The parameter %s is mandatory.", b.parameter)
	}
	return b
}

func (b *DataValidatorBuilder) NotExceedingLengthOf(max int) *DataValidatorBuilder {
	if isNull(b.value) {
		return b
	}
	if s := fmt.Sprint(deref(b.value)); len([]rune(strings.TrimSpace(s))) > max {
		b.add("exceeds.max.length", "The parameter %s exceeds max length of %d.", b.parameter, max)
	}
	return b
}

func (b *DataValidatorBuilder) LongGreaterThanZero() *DataValidatorBuilder {
	if b.skip() || isNull(b.value) {
		return b
	}
	if n, ok := toInt64(deref(b.value)); !ok || n < 1 {
		b.add("not.greater.than.zero", "The parameter %s must be greater than 0.", b.parameter)
	}
	return b
}

func (b *DataValidatorBuilder) IntegerGreaterThanZero() *DataValidatorBuilder {
	return b.LongGreaterThanZero()
}

func (b *DataValidatorBuilder) IntegerZeroOrGreater() *DataValidatorBuilder {
	if b.skip() || isNull(b.value) {
		return b
	}
	if n, ok := toInt64(deref(b.value)); !ok || n < 0 {
		b.add("not.zero.or.greater", "The parameter %s must be zero or greater.", b.parameter)
	}
	return b
}

func (b *DataValidatorBuilder) PositiveAmount() *DataValidatorBuilder {
	if b.skip() || isNull(b.value) {
		return b
	}
	if r, ok := deref(b.value).(*big.Rat); ok && r.Sign() <= 0 {
		b.add("not.greater.than.zero", "The parameter %s must be greater than 0.", b.parameter)
	}
	return b
}

func (b *DataValidatorBuilder) MatchesRegularExpression(re *regexp.Regexp, message string) *DataValidatorBuilder {
	if b.skip() || isNull(b.value) {
		return b
	}
	if !re.MatchString(fmt.Sprint(deref(b.value))) {
		b.add("does.not.match.regexp", "%s", message)
	}
	return b
}

func (b *DataValidatorBuilder) IsOneOfTheseValues(values ...interface{}) *DataValidatorBuilder {
	if b.skip() || isNull(b.value) {
		return b
	}
	v := fmt.Sprint(deref(b.value))
	if !lo.ContainsBy(values, func(x interface{}) bool { return strings.EqualFold(fmt.Sprint(x), v) }) {
		b.add("is.not.one.of.expected.enumerations",
			"The parameter %s must be one of %v.", b.parameter, values)
	}
	return b
}

// FailWithCode 直接追加一条自定义错误.
func (b *DataValidatorBuilder) FailWithCode(suffix, format string, args ...interface{}) *DataValidatorBuilder {
	b.add(suffix, format, args...)
	return b
}

func (b *DataValidatorBuilder) Errors() []ApiParameterError {
	return *b.errs
}

func (b *DataValidatorBuilder) HasErrors() bool {
	return len(*b.errs) > 0
}

// ThrowIfAny 有错误时返回 ErrValidation.
func (b *DataValidatorBuilder) ThrowIfAny() error {
	return Fail(code.ErrValidation, *b.errs...)
}

func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func deref(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.IsValid() && rv.CanInterface() {
		return rv.Interface()
	}
	return v
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	}
	return 0, false
}

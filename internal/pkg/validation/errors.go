// Package validation 收集参数级错误，并以带错误码的形式返回给调用方.
package validation

import (
	"fmt"
	"strings"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

// ApiParameterError 单个参数的错误描述，直接序列化到响应体的 errors 列表.
type ApiParameterError struct {
	DeveloperMessage             string        `json:"developerMessage"`
	DefaultUserMessage           string        `json:"defaultUserMessage"`
	UserMessageGlobalisationCode string        `json:"userMessageGlobalisationCode"`
	ParameterName                string        `json:"parameterName"`
	Value                        interface{}   `json:"value"`
	Args                         []interface{} `json:"args,omitempty"`
}

// NewParameterError 构造单个参数错误.
func NewParameterError(globalisationCode, defaultMessage, parameterName string, value interface{}, args ...interface{}) ApiParameterError {
	return ApiParameterError{
		DeveloperMessage:             defaultMessage,
		DefaultUserMessage:           defaultMessage,
		UserMessageGlobalisationCode: globalisationCode,
		ParameterName:                parameterName,
		Value:                        value,
		Args:                         args,
	}
}

// PlatformErrors 参数错误列表，作为 withCode 错误的根因.
type PlatformErrors []ApiParameterError

func (e PlatformErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, pe := range e {
		msgs = append(msgs, fmt.Sprintf("%s: %s", pe.ParameterName, pe.DeveloperMessage))
	}
	return strings.Join(msgs, "; ")
}

// ParameterErrorsOf 沿 Cause 链取出参数错误列表.
func ParameterErrorsOf(err error) []ApiParameterError {
	if err == nil {
		return nil
	}
	if pe, ok := errors.Cause(err).(PlatformErrors); ok {
		return pe
	}
	return nil
}

// Fail 以 code 包装参数错误列表.
func Fail(errCode int, errs ...ApiParameterError) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.WrapC(PlatformErrors(errs), errCode, "%s", errs[0].DefaultUserMessage)
}

// DataIntegrity 数据完整性冲突，如名称重复.
func DataIntegrity(errCode int, globalisationCode, parameterName string, value interface{}, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return Fail(errCode, NewParameterError(globalisationCode, msg, parameterName, value))
}

// UnsupportedParameters 请求中包含不支持的参数.
func UnsupportedParameters(names []string) error {
	if len(names) == 0 {
		return nil
	}
	errs := make([]ApiParameterError, 0, len(names))
	for _, name := range names {
		errs = append(errs, NewParameterError(
			"error.msg.parameter.unsupported",
			fmt.Sprintf("The parameter %s is not supported.", name),
			name, nil))
	}
	return Fail(code.ErrValidation, errs...)
}

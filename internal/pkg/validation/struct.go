package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/maxiaolu1981/cretem/nexuscore/component-base/validation/field"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator 返回共享的 validator 实例，字段名取 json tag.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateStruct 按 validate tag 校验结构体，resource 用于生成国际化编码.
// root 为参数路径前缀，如 columns[0].
func ValidateStruct(resource string, root *field.Path, s interface{}) []ApiParameterError {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return []ApiParameterError{NewParameterError(
			fmt.Sprintf("validation.msg.%s.invalid", resource), err.Error(), "", nil)}
	}

	out := make([]ApiParameterError, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if root != nil {
			name = root.Child(name).String()
		}
		var msg, suffix string
		switch fe.Tag() {
		case "required":
			suffix, msg = "cannot.be.blank", fmt.Sprintf("The parameter %s is mandatory.", name)
		case "max":
			suffix, msg = "exceeds.max.length", fmt.Sprintf("The parameter %s exceeds max length of %s.", name, fe.Param())
		case "oneof":
			suffix, msg = "is.not.one.of.expected.enumerations", fmt.Sprintf("The parameter %s must be one of [%s].", name, fe.Param())
		case "gt", "gte", "min":
			suffix, msg = "not.greater.than.zero", fmt.Sprintf("The parameter %s must be at least %s.", name, fe.Param())
		default:
			suffix, msg = "invalid", fmt.Sprintf("The parameter %s is invalid (%s).", name, fe.Tag())
		}
		out = append(out, NewParameterError(
			fmt.Sprintf("validation.msg.%s.%s.%s", resource, fe.Field(), suffix),
			msg, name, fe.Value()))
	}
	return out
}

// FromFieldErrors 把 field.ErrorList 转为参数错误.
func FromFieldErrors(resource string, list field.ErrorList) error {
	if len(list) == 0 {
		return nil
	}
	out := make([]ApiParameterError, 0, len(list))
	for _, fe := range list {
		out = append(out, NewParameterError(
			fmt.Sprintf("validation.msg.%s.%s.%s", resource, fe.Field, strings.ReplaceAll(strings.ToLower(fe.Type.String()), " ", ".")),
			fe.ErrorBody(), fe.Field, fe.BadValue))
	}
	return Fail(code.ErrValidation, out...)
}

package datatable

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
)

// 请求体结构约束，取值规则由 DataValidatorBuilder 校验
const (
	columnSchema = `{
		"type": "object",
		"properties": {
			"name":      {"type": "string"},
			"newName":   {"type": "string"},
			"type":      {"type": "string"},
			"length":    {"type": ["integer", "string"]},
			"mandatory": {"type": ["boolean", "string"]},
			"after":     {"type": "string"},
			"code":      {"type": "string"},
			"newCode":   {"type": "string"}
		},
		"additionalProperties": false
	}`

	createSchema = `{
		"type": "object",
		"properties": {
			"datatableName": {"type": "string"},
			"apptableName":  {"type": "string"},
			"multiRow":      {"type": ["boolean", "string"]},
			"columns":       {"type": "array", "items": ` + columnSchema + `}
		}
	}`

	updateSchema = `{
		"type": "object",
		"properties": {
			"apptableName":  {"type": "string"},
			"addColumns":    {"type": "array", "items": ` + columnSchema + `},
			"changeColumns": {"type": "array", "items": ` + columnSchema + `},
			"dropColumns":   {"type": "array", "items": ` + columnSchema + `}
		}
	}`
)

var (
	createLoader = gojsonschema.NewStringLoader(createSchema)
	updateLoader = gojsonschema.NewStringLoader(updateSchema)
)

// validateShape 按 JSON Schema 校验请求体结构.
func validateShape(schema gojsonschema.JSONLoader, cmd *jsoncommand.JsonCommand) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(cmd.JSON()))
	if err != nil {
		return validation.Fail(code.ErrValidation, validation.NewParameterError(
			"validation.msg.datatable.invalid.json", fmt.Sprintf("请求体无法解析: %v", err), "json", nil))
	}
	if result.Valid() {
		return nil
	}
	errs := make([]validation.ApiParameterError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		param := strings.TrimPrefix(re.Field(), "(root).")
		errs = append(errs, validation.NewParameterError(
			fmt.Sprintf("validation.msg.datatable.%s.%s", param, re.Type()),
			re.Description(), param, re.Value()))
	}
	return validation.Fail(code.ErrValidation, errs...)
}

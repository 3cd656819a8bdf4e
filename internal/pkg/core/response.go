// Package core 统一 HTTP 响应输出.
package core

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// ErrResponse 错误响应体.
type ErrResponse struct {
	// Code 业务错误码
	Code int `json:"code"`

	// Message 面向用户的错误信息
	Message string `json:"message"`

	// Reference 错误文档地址
	Reference string `json:"reference,omitempty"`

	// Errors 参数级错误
	Errors []validation.ApiParameterError `json:"errors,omitempty"`
}

// ErrorCodeKey 出错时业务错误码写入 gin 上下文的键.
const ErrorCodeKey = "error_code"

// nexuscore 对未注册错误返回的编码
const unknownCode = 1

// ErrorResponseOf 把错误转为响应体及 HTTP 状态码.
func ErrorResponseOf(err error) (int, ErrResponse) {
	coder := errors.ParseCoderByErr(err)
	message := ""
	if coder == nil || coder.Code() == unknownCode {
		coder = errors.ParseCoderByCode(code.ErrUnknown)
		message = coder.String()
	} else {
		message = messageOf(err, coder.String())
	}
	resp := ErrResponse{
		Code:      coder.Code(),
		Message:   message,
		Reference: coder.Reference(),
		Errors:    validation.ParameterErrorsOf(err),
	}
	status := coder.HTTPStatus()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return status, resp
}

// messageOf 取最外层 withCode 的消息，去掉 "[code: N] " 前缀.
func messageOf(err error, fallback string) string {
	msg := err.Error()
	if strings.HasPrefix(msg, "[code:") {
		if i := strings.Index(msg, "] "); i > 0 {
			msg = msg[i+2:]
		}
	}
	if msg == "" {
		return fallback
	}
	return msg
}

// WriteResponse 出错时写 ErrResponse，否则把 data 以 JSON 返回.
func WriteResponse(c *gin.Context, err error, data interface{}) {
	if err != nil {
		status, resp := ErrorResponseOf(err)
		c.Set(ErrorCodeKey, resp.Code)
		if status >= http.StatusInternalServerError {
			log.L(c).Errorf("请求处理失败: %#+v", err)
		} else {
			log.L(c).Debugf("请求被拒绝: %s", err.Error())
		}
		c.AbortWithStatusJSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, data)
}

// WriteJSON 输出已序列化的 JSON，用于按 fields 过滤后的结果.
func WriteJSON(c *gin.Context, body []byte) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

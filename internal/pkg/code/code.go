// Copyright 2020 Lingfei Kong <colin404@foxmail.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package code

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
)

// ErrCode implements `github.com/maxiaolu1981/cretem/nexuscore/errors`.Coder interface.
type ErrCode struct {
	// C refers to the code of the ErrCode.
	C int

	// HTTP status that should be used for the associated error code.
	HTTP int

	// External (user) facing error text.
	Ext string

	// Ref specify the reference document.
	Ref string
}

var _ errors.Coder = &ErrCode{}

// Code returns the integer code of ErrCode.
func (coder ErrCode) Code() int {
	return coder.C
}

// String implements stringer. String returns the external error message,
// if any.
func (coder ErrCode) String() string {
	return coder.Ext
}

// Reference returns the reference document.
func (coder ErrCode) Reference() string {
	return coder.Ref
}

// HTTPStatus returns the associated HTTP status code, if any. Otherwise,
// returns 200.
func (coder ErrCode) HTTPStatus() int {
	if coder.HTTP == 0 {
		return http.StatusInternalServerError
	}

	return coder.HTTP
}

// register 注册错误码，HTTP 状态码必须在 100~599 之间.
func register(code int, httpStatus int, message string, refs ...string) {
	if httpStatus < 100 || httpStatus > 599 {
		panic(fmt.Sprintf("HTTP 状态码 %d 不符合通用规则（必须在 100~599 之间）", httpStatus))
	}
	if httpStatus == http.StatusConflict && !strings.Contains(message, "冲突") && !strings.Contains(message, "已存在") {
		fmt.Printf("[WARN] HTTP 409 建议用于「资源冲突」场景，当前描述：%s\n", message)
	}

	var reference string
	if len(refs) > 0 {
		reference = refs[0]
	}

	errors.MustRegister(&ErrCode{
		C:    code,
		HTTP: httpStatus,
		Ext:  message,
		Ref:  reference,
	})
}

// nolint: gochecknoinits
func init() {
	register(ErrSuccess, 200, "成功")
	register(ErrUnknown, 500, "内部服务器错误")
	register(ErrBind, 400, "请求体绑定失败")
	register(ErrValidation, 400, "数据验证失败")
	register(ErrPageNotFound, 404, "页面不存在")
	register(ErrMethodNotAllowed, 405, "方法不允许")
	register(ErrUnsupportedMediaType, 415, "不支持的Content-Type，仅支持application/json")
	register(ErrContextCanceled, 408, "请求被取消或超时")
	register(ErrRateLimitExceeded, 429, "请求过于频繁")

	register(ErrDatabase, 500, "数据库操作错误")
	register(ErrDatabaseTimeout, 500, "数据库超时")
	register(ErrDataIntegrity, 403, "违反数据完整性约束")
	register(ErrRedis, 500, "缓存服务异常")
	register(ErrKafkaFailed, 500, "消息队列服务异常")

	register(ErrEncrypt, 401, "用户密码加密失败")
	register(ErrSignatureInvalid, 401, "签名无效")
	register(ErrExpired, 401, "令牌已过期")
	register(ErrInvalidAuthHeader, 401, "无效的授权头")
	register(ErrMissingHeader, 401, "Authorization头为空")
	register(ErrPasswordIncorrect, 401, "用户名或密码不正确")
	register(ErrPermissionDenied, 403, "权限不足")
	register(ErrTokenInvalid, 401, "令牌无效")
	register(ErrBase64DecodeFail, 400, "Basic认证payload解码失败")
	register(ErrInvalidBasicPayload, 400, "Basic认证payload格式无效")
	register(ErrTokenRevoked, 401, "令牌已注销")

	register(ErrEncodingFailed, 500, "数据编码失败")
	register(ErrDecodingFailed, 500, "数据解码失败")
	register(ErrInvalidJSON, 400, "无效的JSON格式")
	register(ErrEncodingJSON, 500, "JSON编码失败")
	register(ErrDecodingJSON, 500, "JSON解码失败")

	register(ErrOfficeNotFound, 404, "机构不存在")
	register(ErrOfficeDuplicateName, 403, "机构名称已存在")
	register(ErrOfficeDuplicateExternalID, 403, "机构外部编号已存在")
	register(ErrOfficeInvalidParent, 403, "上级机构不能是自身或下级机构")
	register(ErrHeadOfficeParent, 403, "总部不能设置上级机构")
	register(ErrOfficeOutOfHierarchy, 403, "机构不在当前用户的管辖范围内")

	register(ErrDatatableNotFound, 404, "数据表未注册")
	register(ErrDatatableAlreadyExist, 403, "数据表已存在")
	register(ErrDatatableNotEmpty, 403, "数据表中仍有数据，不能删除")
	register(ErrDatatableEntryAlreadyExist, 403, "一对一数据表记录已存在")
	register(ErrDatatableEntryNotFound, 404, "数据表记录不存在")
	register(ErrAppTableNotAllowed, 400, "不支持的应用表")
	register(ErrAppTableRowNotFound, 404, "应用表记录不存在")
	register(ErrDatatableColumnNotFound, 400, "数据表列不存在")
	register(ErrDatatableDDL, 500, "数据表结构变更失败")
	register(ErrDatatableLocked, 409, "数据表结构正在变更，资源冲突")
	register(ErrDatatableNameReserved, 403, "数据表名与已有权限冲突")

	register(ErrCommandNotFound, 404, "命令不存在")
	register(ErrUnsupportedCommand, 400, "不支持的命令")
	register(ErrCommandNotPending, 409, "命令不是待审核状态，状态冲突")

	register(ErrCodeNotFound, 404, "代码不存在")
	register(ErrCodeValueNotFound, 404, "代码值不存在")

	register(ErrUserNotFound, 404, "用户不存在")
	register(ErrUserDisabled, 403, "用户已停用")
}

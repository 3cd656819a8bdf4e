// Copyright 2020 Lingfei Kong <colin404@foxmail.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package code

//go:generate codegen -type=int

// obs-apiserver机构模块错误（1101xx）：服务11 + 模块01 + 序号
const (
	// ErrOfficeNotFound - 404: 机构不存在
	ErrOfficeNotFound int = iota + 110101 // 110101

	// ErrOfficeDuplicateName - 403: 机构名称已存在
	ErrOfficeDuplicateName // 110102

	// ErrOfficeDuplicateExternalID - 403: 机构外部编号已存在
	ErrOfficeDuplicateExternalID // 110103

	// ErrOfficeInvalidParent - 403: 上级机构不能是自身或下级机构
	ErrOfficeInvalidParent // 110104

	// ErrHeadOfficeParent - 403: 总部不能设置上级机构
	ErrHeadOfficeParent // 110105

	// ErrOfficeOutOfHierarchy - 403: 机构不在当前用户的管辖范围内
	ErrOfficeOutOfHierarchy // 110106
)

// obs-apiserver数据表模块错误（1102xx）：服务11 + 模块02 + 序号
const (
	// ErrDatatableNotFound - 404: 数据表未注册
	ErrDatatableNotFound int = iota + 110201 // 110201

	// ErrDatatableAlreadyExist - 403: 数据表已存在
	ErrDatatableAlreadyExist // 110202

	// ErrDatatableNotEmpty - 403: 数据表中仍有数据
	ErrDatatableNotEmpty // 110203

	// ErrDatatableEntryAlreadyExist - 403: 一对一数据表记录已存在
	ErrDatatableEntryAlreadyExist // 110204

	// ErrDatatableEntryNotFound - 404: 数据表记录不存在
	ErrDatatableEntryNotFound // 110205

	// ErrAppTableNotAllowed - 400: 不支持的应用表
	ErrAppTableNotAllowed // 110206

	// ErrAppTableRowNotFound - 404: 应用表记录不存在
	ErrAppTableRowNotFound // 110207

	// ErrDatatableColumnNotFound - 400: 数据表列不存在
	ErrDatatableColumnNotFound // 110208

	// ErrDatatableDDL - 500: 数据表结构变更失败
	ErrDatatableDDL // 110209

	// ErrDatatableLocked - 409: 数据表结构正在变更，资源冲突
	ErrDatatableLocked // 110210

	// ErrDatatableNameReserved - 403: 数据表名与已有权限冲突
	ErrDatatableNameReserved // 110211
)

// obs-apiserver命令模块错误（1103xx）：服务11 + 模块03 + 序号
const (
	// ErrCommandNotFound - 404: 命令不存在
	ErrCommandNotFound int = iota + 110301 // 110301

	// ErrUnsupportedCommand - 400: 不支持的命令
	ErrUnsupportedCommand // 110302

	// ErrCommandNotPending - 409: 命令不是待审核状态，状态冲突
	ErrCommandNotPending // 110303
)

// obs-apiserver基础数据模块错误（1104xx）：服务11 + 模块04 + 序号
const (
	// ErrCodeNotFound - 404: 代码不存在
	ErrCodeNotFound int = iota + 110401 // 110401

	// ErrCodeValueNotFound - 404: 代码值不存在
	ErrCodeValueNotFound // 110402
)

// obs-apiserver用户模块错误（1105xx）：服务11 + 模块05 + 序号
const (
	// ErrUserNotFound - 404: 用户不存在
	ErrUserNotFound int = iota + 110501 // 110501

	// ErrUserDisabled - 403: 用户已停用
	ErrUserDisabled // 110502
)

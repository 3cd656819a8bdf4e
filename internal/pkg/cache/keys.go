package cache

import (
	"strconv"
	"strings"
)

const (
	officePrefix     = "office:"
	codeValuePrefix  = "codevalue:"
	addressPrefix    = "address:"
	datatablePrefix  = "datatable:"
	NegativeSentinel = "__not_found__"
)

// OfficeKey 单个机构.
func OfficeKey(id int64) string {
	return officePrefix + strconv.FormatInt(id, 10)
}

// OfficeTreeKey 某个层级下的机构列表.
func OfficeTreeKey(hierarchy string) string {
	return officePrefix + "tree:" + hierarchy
}

// OfficePattern 机构相关的全部缓存.
func OfficePattern() string {
	return officePrefix + "*"
}

// CodeValueKey 按代码名称缓存代码值，名称统一转小写.
func CodeValueKey(codeName string) string {
	return codeValuePrefix + strings.ToLower(strings.TrimSpace(codeName))
}

func CodeValuePattern() string {
	return codeValuePrefix + "*"
}

// AddressKey 地址字典，regionType 为 country/state/city.
func AddressKey(regionType string) string {
	return addressPrefix + regionType
}

// DatatableKey 已注册数据表描述.
func DatatableKey(name string) string {
	return datatablePrefix + name
}

func DatatablePattern() string {
	return datatablePrefix + "*"
}

/*
v1 包定义后台 API 使用的数据模型。

模型分两类：
带 gorm 标签的持久化模型（Office、CodeValue、CommandSource、RegisteredTable、AppUser 等），
以及以 Data 结尾的响应结构（OfficeData、DatatableData、GenericResultsetData 等）。
响应结构的 json 字段名与对外接口保持一致，按请求的 fields 参数过滤。
*/
package v1

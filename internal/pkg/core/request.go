package core

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/apihelper"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/serializer"
)

// PathID 解析路径中的数字 id.
func PathID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.WithCode(code.ErrValidation, "参数 %s 不是合法的id: %s", name, raw)
	}
	return id, nil
}

// QueryInt64 查询参数缺省返回 0.
func QueryInt64(c *gin.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.WithCode(code.ErrValidation, "参数 %s 不是整数: %s", name, raw)
	}
	return v, nil
}

// ReadBody 读取原始请求体，命令 JSON 的校验留给命令处理器.
func ReadBody(c *gin.Context) (string, error) {
	data, err := c.GetRawData()
	if err != nil {
		return "", errors.WithCode(code.ErrBind, "读取请求体失败: %s", err.Error())
	}
	return string(data), nil
}

// WriteSerialized 按 fields、prettyPrint 输出结果.
func WriteSerialized(c *gin.Context, settings apihelper.Settings, data interface{}, supported map[string]struct{}) {
	body, err := serializer.Serialize(settings, data, supported)
	if err != nil {
		WriteResponse(c, err, nil)
		return
	}
	WriteJSON(c, body)
}

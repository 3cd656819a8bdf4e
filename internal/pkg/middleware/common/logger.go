/*
包摘要
请求日志中间件：记录状态码、客户端 IP、耗时等信息。
未指定输出目标时写入 zap 日志（带请求ID），指定时按 gin 的格式化函数写入该输出。
*/
package common

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"

	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// defaultLogFormatter 是日志中间件默认使用的日志格式化函数
var defaultLogFormatter = func(param gin.LogFormatterParams) string {
	var statusColor, methodColor, resetColor string
	if param.IsOutputColor() {
		statusColor = param.StatusCodeColor()
		methodColor = param.MethodColor()
		resetColor = param.ResetColor()
	}

	if param.Latency > time.Minute {
		param.Latency = param.Latency - param.Latency%time.Second
	}

	return fmt.Sprintf("%s%3d%s - [%s] \"%v %s%s%s %s\" %s",
		statusColor, param.StatusCode, resetColor,
		param.ClientIP,
		param.Latency,
		methodColor, param.Method, resetColor,
		param.Path,
		param.ErrorMessage,
	)
}

// Logger 写入 zap 日志.
func Logger(notlogged ...string) gin.HandlerFunc {
	return LoggerWithConfig(gin.LoggerConfig{SkipPaths: notlogged})
}

// LoggerWithWriter 将日志写入指定的输出流（如文件），并可指定忽略的路径
func LoggerWithWriter(out io.Writer, notlogged ...string) gin.HandlerFunc {
	return LoggerWithConfig(gin.LoggerConfig{
		Output:    out,
		SkipPaths: notlogged,
	})
}

// LoggerWithConfig 根据配置创建日志中间件
func LoggerWithConfig(conf gin.LoggerConfig) gin.HandlerFunc {
	formatter := conf.Formatter
	if formatter == nil {
		formatter = defaultLogFormatter
	}
	out := conf.Output

	isTerm := false
	if w, ok := out.(*os.File); ok && os.Getenv("TERM") != "dumb" &&
		(isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())) {
		isTerm = true
	}
	if isTerm {
		gin.ForceConsoleColor()
	}

	var skip map[string]struct{}
	if length := len(conf.SkipPaths); length > 0 {
		skip = make(map[string]struct{}, length)
		for _, path := range conf.SkipPaths {
			skip[path] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if _, ok := skip[path]; ok {
			return
		}
		if raw != "" {
			path = path + "?" + raw
		}
		param := gin.LogFormatterParams{
			Request:      c.Request,
			Keys:         c.Keys,
			TimeStamp:    time.Now(),
			StatusCode:   c.Writer.Status(),
			ClientIP:     c.ClientIP(),
			Method:       c.Request.Method,
			Path:         path,
			ErrorMessage: c.Errors.ByType(gin.ErrorTypePrivate).String(),
			BodySize:     c.Writer.Size(),
		}
		param.Latency = param.TimeStamp.Sub(start)

		if out == nil {
			log.L(c).Infow(path,
				"status", param.StatusCode,
				"method", param.Method,
				"ip", param.ClientIP,
				"latency", param.Latency,
				"size", param.BodySize,
				"error", param.ErrorMessage,
			)
			return
		}
		fmt.Fprintln(out, formatter(param))
	}
}

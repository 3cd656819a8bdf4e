package common

import (
	"os"

	"github.com/gin-gonic/gin"
	gindump "github.com/tpkeeper/gin-dump"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/options"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

const (
	HeaderFrameOptions            = "X-Frame-Options"
	HeaderContentTypeOptions      = "X-Content-Type-Options"
	HeaderXSSProtection           = "X-XSS-Protection"
	HeaderStrictTransportSecurity = "Strict-Transport-Security"
	HeaderContentSecurityPolicy   = "Content-Security-Policy"
)

func Secure(c *gin.Context) {
	c.Header(HeaderFrameOptions, "DENY")
	c.Header(HeaderContentTypeOptions, "nosniff")
	c.Header(HeaderXSSProtection, "1; mode=block")
	c.Header(HeaderContentSecurityPolicy, "script-src 'self'")
	if c.Request.TLS != nil {
		c.Header(HeaderStrictTransportSecurity, "max-age=31536000")
	}
	c.Next()
}

func NoCache(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Next()
}

// 不记录访问日志的路径
var quietPaths = []string{"/healthz", "/metrics"}

// 基础中间件（所有环境共用）
func baseMiddlewares() map[string]gin.HandlerFunc {
	return map[string]gin.HandlerFunc{
		"recovery":  gin.Recovery(),
		"requestid": RequestID(),
		"context":   Context(),
		"secure":    Secure,
		"nocache":   NoCache,
		"metrics":   ErrorMetrics(),
	}
}

func envMiddlewares(env string) map[string]gin.HandlerFunc {
	switch env {
	case "test":
		return map[string]gin.HandlerFunc{
			"logger": LoggerWithConfig(gin.LoggerConfig{
				Formatter: GetDefaultLogFormatterWithRequestID(),
				Output:    os.Stdout,
				SkipPaths: quietPaths,
			}),
			"cors": TestCors(),
		}
	case "release", "production":
		return map[string]gin.HandlerFunc{
			"logger": Logger(quietPaths...),
			"cors":   ProductionCors(),
		}
	default:
		return map[string]gin.HandlerFunc{
			"logger": LoggerWithConfig(gin.LoggerConfig{
				Formatter: GetDefaultLogFormatterWithRequestID(),
				Output:    gin.DefaultWriter,
				SkipPaths: quietPaths,
			}),
			"cors": DevCors(),
			"dump": gindump.Dump(),
		}
	}
}

// GetMiddlewares 获取当前环境的中间件，ServerRunOptions.Middlewares 非空时只保留其中列出的
func GetMiddlewares(opt *options.Options) map[string]gin.HandlerFunc {
	middlewares := baseMiddlewares()
	for k, v := range envMiddlewares(opt.ServerRunOptions.Env) {
		middlewares[k] = v
	}
	if len(opt.ServerRunOptions.Middlewares) == 0 {
		return middlewares
	}

	enabled := make(map[string]gin.HandlerFunc, len(opt.ServerRunOptions.Middlewares))
	for _, name := range opt.ServerRunOptions.Middlewares {
		if mw, ok := middlewares[name]; ok {
			enabled[name] = mw
		} else {
			log.Warnf("未知的中间件: %s", name)
		}
	}
	// requestid 与 context 是日志关联的前提
	enabled["requestid"] = middlewares["requestid"]
	enabled["context"] = middlewares["context"]
	return enabled
}

// GetMiddlewareStack 获取排序后的中间件切片
func GetMiddlewareStack(opt *options.Options) []gin.HandlerFunc {
	allMiddlewares := GetMiddlewares(opt)

	executionOrder := []string{
		"recovery", "requestid", "context", "secure", "cors", "metrics", "logger", "nocache", "dump",
	}

	var stack []gin.HandlerFunc
	for _, key := range executionOrder {
		if middleware, exists := allMiddlewares[key]; exists {
			log.Debugf("安装中间件: %s", key)
			stack = append(stack, middleware)
		}
	}
	log.Infof("环境: %s, 共安装 %d 个中间件", opt.ServerRunOptions.Env, len(stack))
	return stack
}

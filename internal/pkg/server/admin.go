package server

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

const (
	defaultAuditEventLimit = 50
	maxAuditEventLimit     = 500
)

// loginLimit 登录限流参数，可通过管理接口在运行时调整.
type loginLimit struct {
	mu     sync.RWMutex
	limit  int
	window time.Duration
}

func (l *loginLimit) Get() (int, time.Duration) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limit, l.window
}

func (l *loginLimit) Set(limit int, window time.Duration) {
	l.mu.Lock()
	l.limit, l.window = limit, window
	l.mu.Unlock()
}

type loginLimitRequest struct {
	Limit  int    `json:"limit"`
	Window string `json:"window"`
}

// adminGuard 配置了 AdminToken 时校验 X-Admin-Token，否则只允许本机或非 release 模式访问.
func (g *GenericAPIServer) adminGuard(c *gin.Context) {
	if token := g.options.ServerRunOptions.AdminToken; token != "" {
		provided := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
		return
	}
	if !g.isLocalOrDebug(c) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	c.Next()
}

func (g *GenericAPIServer) isLocalOrDebug(c *gin.Context) bool {
	if g.options.ServerRunOptions.Mode != gin.ReleaseMode {
		return true
	}
	ip := c.ClientIP()
	return ip == "127.0.0.1" || ip == "::1"
}

func (g *GenericAPIServer) installAdminRoutes() {
	admin := g.Group("/admin", g.adminGuard)
	admin.GET("/audit/events", g.recentAuditEvents)
	admin.GET("/ratelimit/login", g.getLoginLimit)
	admin.POST("/ratelimit/login", g.setLoginLimit)
}

func (g *GenericAPIServer) recentAuditEvents(c *gin.Context) {
	limit := defaultAuditEventLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxAuditEventLimit {
		limit = maxAuditEventLimit
	}
	if !g.audit.Enabled() {
		core.WriteResponse(c, nil, gin.H{"events": []any{}, "enabled": false})
		return
	}
	events := g.audit.Recent(limit)
	if events == nil {
		core.WriteResponse(c, nil, gin.H{"events": []any{}, "enabled": true})
		return
	}
	core.WriteResponse(c, nil, gin.H{"events": events, "enabled": true})
}

func (g *GenericAPIServer) getLoginLimit(c *gin.Context) {
	limit, window := g.loginLimit.Get()
	core.WriteResponse(c, nil, gin.H{"limit": limit, "window": window.String()})
}

func (g *GenericAPIServer) setLoginLimit(c *gin.Context) {
	var req loginLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errors.WithCode(code.ErrBind, "%s", err.Error()), nil)
		return
	}
	_, window := g.loginLimit.Get()
	if req.Window != "" {
		d, err := time.ParseDuration(req.Window)
		if err != nil || d <= 0 {
			core.WriteResponse(c, errors.WithCode(code.ErrValidation, "invalid window: %s", req.Window), nil)
			return
		}
		window = d
	}
	if req.Limit < 0 {
		core.WriteResponse(c, errors.WithCode(code.ErrValidation, "limit must not be negative"), nil)
		return
	}
	g.loginLimit.Set(req.Limit, window)
	log.L(c).Warnw("登录限流已调整", "limit", req.Limit, "window", window, "source", c.ClientIP())
	core.WriteResponse(c, nil, gin.H{"limit": req.Limit, "window": window.String()})
}

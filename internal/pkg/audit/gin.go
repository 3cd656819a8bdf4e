package audit

import (
	"context"

	"github.com/gin-gonic/gin"
)

type originKey struct{}

// Middleware 把请求来源放进 request context，服务层提交事件时由 Submit 补齐来源字段.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := BuildEventFromRequest(c.Request)
		origin.IP = c.ClientIP()
		c.Request = c.Request.WithContext(WithOrigin(c.Request.Context(), origin))
		c.Next()
	}
}

// WithOrigin 只保留 origin 中的来源字段.
func WithOrigin(ctx context.Context, origin Event) context.Context {
	return context.WithValue(ctx, originKey{}, Event{
		RequestID: origin.RequestID,
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
		Metadata:  origin.Metadata,
	})
}

// fillOrigin 事件已有的字段不覆盖.
func fillOrigin(ctx context.Context, event Event) Event {
	origin, ok := ctx.Value(originKey{}).(Event)
	if !ok {
		return event
	}
	if event.RequestID == "" {
		event.RequestID = origin.RequestID
	}
	if event.IP == "" {
		event.IP = origin.IP
	}
	if event.UserAgent == "" {
		event.UserAgent = origin.UserAgent
	}
	for k, v := range origin.Metadata {
		if event.Metadata == nil {
			event.Metadata = make(map[string]any, len(origin.Metadata))
		}
		if _, set := event.Metadata[k]; !set {
			event.Metadata[k] = v
		}
	}
	return event
}

// CommandEvent 命令审计事件，Action 形如 OFFICE.CREATE，实体与动作另记在 Metadata.
func CommandEvent(entity, action string) Event {
	return Event{
		Action:       entity + "." + action,
		ResourceType: entity,
		Metadata:     map[string]any{"entity": entity, "action": action},
	}
}

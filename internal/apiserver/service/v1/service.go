package v1

import (
	"context"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/commandsource"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// EntityCodeValue 代码值变更事件的实体名.
const EntityCodeValue = "CODEVALUE"

// CacheInvalidator 根据命令事件清理本实例的缓存.
// 本实例提交时直接调用，其他实例通过消息队列收到事件后调用.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, event *v1.CommandEvent)
}

func (s *ServiceSrv) Invalidate(ctx context.Context, event *v1.CommandEvent) {
	if event == nil || event.ProcessingResultEnum != v1.CommandProcessed {
		return
	}
	switch event.EntityName {
	case commandsource.EntityOffice:
		s.offices.InvalidateCache(ctx)
		s.addresses.InvalidateCache(ctx)
	case EntityCodeValue:
		s.codeValues.InvalidateCache(ctx, event.ResourceIdentifier)
	case commandsource.EntityDatatable:
		s.datatables.InvalidateCache(ctx, event.ResourceIdentifier)
		switch event.ActionName {
		case commandsource.ActionCreate, commandsource.ActionRegister:
			s.Names.Add(event.ResourceIdentifier)
		}
	default:
		return
	}
	log.L(ctx).Debugw("命令事件触发缓存清理", "entity", event.EntityName, "action", event.ActionName,
		"resource", event.ResourceIdentifier)
}

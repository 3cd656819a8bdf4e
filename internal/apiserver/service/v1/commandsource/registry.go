package commandsource

import (
	"context"
	"sync"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
)

// Handler 在命令事务中执行业务写入，tx 以外的连接不可使用.
type Handler func(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)

// Registry 按 ENTITY/ACTION 查找处理器.
// 数据表记录的实体名就是数据表名，无法预先登记，按 href 与动作兜底.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	entries  map[string]Handler
	survey   Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: map[string]Handler{},
		entries:  map[string]Handler{},
	}
}

func handlerKey(entity, action string) string {
	return entity + "/" + action
}

func (r *Registry) Register(entity, action string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[handlerKey(entity, action)] = h
}

// RegisterEntry 数据表记录处理器；oneToMany 区分是否带 datatableId.
func (r *Registry) RegisterEntry(action string, oneToMany bool, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entryKey(action, oneToMany)] = h
}

func (r *Registry) RegisterSurvey(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.survey = h
}

func entryKey(action string, oneToMany bool) string {
	if oneToMany {
		return action + "/many"
	}
	return action
}

// Resolve 数据表记录与问卷命令按 href 分派，实体名可能与核心实体重名，不查实体表.
// 找不到时返回 ErrUnsupportedCommand.
func (r *Registry) Resolve(w *CommandWrapper) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch {
	case w.isSurvey():
		if w.ActionName == ActionCreate && r.survey != nil {
			return r.survey, nil
		}
	case w.isDatatableEntry():
		if h, ok := r.entries[entryKey(w.ActionName, w.SubentityID > 0)]; ok {
			return h, nil
		}
	default:
		if h, ok := r.handlers[w.key()]; ok {
			return h, nil
		}
	}
	return nil, errors.WithCode(code.ErrUnsupportedCommand,
		"Unsupported command: %s on %s", w.ActionName, w.EntityName)
}

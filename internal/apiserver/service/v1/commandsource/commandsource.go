// Package commandsource 写操作的统一入口：权限校验、复核、事务内执行处理器并记录命令.
package commandsource

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/security"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/audit"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/server/producer"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 命令处理结果指标标签
const (
	resultProcessed = "processed"
	resultPending   = "pending"
	resultRejected  = "rejected"
	resultFailed    = "fail"
)

// 审计与复核查询所用的资源名
const (
	ResourceMakerChecker = "MAKERCHECKER"
	ResourceAudit        = "AUDIT"
)

// Listener 命令提交后回调，用于清理本实例缓存.
type Listener func(ctx context.Context, event *v1.CommandEvent)

type CommandSourceSrv interface {
	LogCommandSource(ctx context.Context, w *CommandWrapper) (*v1.CommandProcessingResult, error)

	ApproveEntry(ctx context.Context, id int64) (*v1.CommandProcessingResult, error)
	RejectEntry(ctx context.Context, id int64) (*v1.CommandProcessingResult, error)
	DeleteEntry(ctx context.Context, id int64) (*v1.CommandProcessingResult, error)

	RetrievePending(ctx context.Context, filter interfaces.CommandFilter, includeJSON bool) (*v1.CommandSourceList, error)
	RetrieveAudits(ctx context.Context, filter interfaces.CommandFilter, includeJSON bool) (*v1.CommandSourceList, error)
	RetrieveAudit(ctx context.Context, id int64) (*v1.CommandSourceData, error)
}

type CommandSourceService struct {
	Store     interfaces.Factory
	Security  security.SecuritySrv
	Handlers  *Registry
	Options   *options.CommandOptions
	Producer  producer.MessageProducer
	Audit     *audit.Manager
	listeners []Listener
}

var _ CommandSourceSrv = (*CommandSourceService)(nil)

func NewCommandSourceService(store interfaces.Factory, sec security.SecuritySrv, handlers *Registry,
	opts *options.CommandOptions, p producer.MessageProducer, am *audit.Manager,
) *CommandSourceService {
	if opts == nil {
		opts = options.NewCommandOptions()
	}
	if handlers == nil {
		handlers = NewRegistry()
	}
	return &CommandSourceService{Store: store, Security: sec, Handlers: handlers, Options: opts, Producer: p, Audit: am}
}

// AddListener 非并发安全，只在启动装配阶段调用.
func (s *CommandSourceService) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *CommandSourceService) LogCommandSource(ctx context.Context, w *CommandWrapper) (result *v1.CommandProcessingResult, err error) {
	start := time.Now()
	outcome := resultProcessed
	defer func() {
		if err != nil {
			outcome = resultFailed
		}
		metrics.RecordCommand(w.EntityName, w.ActionName, outcome, time.Since(start))
	}()

	cmd, err := newJsonCommand(w)
	if err != nil {
		return nil, err
	}
	// 事务内只能使用 tx，用户必须在开启事务前加载
	user, err := s.Security.AuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Security.ValidateCommandPermission(ctx, w.PermissionCode()); err != nil {
		s.submitAudit(ctx, user, w, 0, audit.OutcomeDeny, err)
		return nil, err
	}
	handler, err := s.Handlers.Resolve(w)
	if err != nil {
		return nil, err
	}

	source := newCommandSource(w, user.ID)
	pending, err := s.requiresApproval(ctx, w)
	if err != nil {
		return nil, err
	}
	if pending {
		outcome = resultPending
		source.ProcessingResultEnum = v1.CommandAwaitingApproval
		if err := s.Store.Commands().Create(ctx, source); err != nil {
			return nil, err
		}
		metrics.CommandsPending.Inc()
		log.L(ctx).Infow("命令等待复核", "commandId", source.ID, "permission", w.PermissionCode())
		s.afterCommit(ctx, user, w, source, audit.OutcomePending)
		return &v1.CommandProcessingResult{
			CommandID:           source.ID,
			ResourceID:          w.EntityID,
			RollbackTransaction: true,
		}, nil
	}

	result, err = s.process(ctx, handler, cmd, source)
	if err != nil {
		s.submitAudit(ctx, user, w, 0, audit.OutcomeFail, err)
		return nil, err
	}
	s.afterCommit(ctx, user, w, source, audit.OutcomeSuccess)
	return result, nil
}

// requiresApproval 全局开关与权限上的复核标记都打开时才进入复核.
func (s *CommandSourceService) requiresApproval(ctx context.Context, w *CommandWrapper) (bool, error) {
	if !s.Options.MakerCheckerEnabled {
		return false, nil
	}
	perm, err := s.Store.Security().GetPermission(ctx, w.PermissionCode())
	if err != nil {
		return false, err
	}
	return perm != nil && perm.CanMakerChecker, nil
}

// process 处理器与命令记录在同一事务中提交；source.ID 非零时更新已有的待复核记录，
// 执行处理器前先占用该记录，状态已被改变时返回 ErrCommandNotPending.
func (s *CommandSourceService) process(ctx context.Context, handler Handler, cmd *jsoncommand.JsonCommand,
	source *v1.CommandSource,
) (*v1.CommandProcessingResult, error) {
	var result *v1.CommandProcessingResult
	err := s.Store.Transaction(ctx, func(tx interfaces.Factory) error {
		if source.ID != 0 {
			if err := tx.Commands().Transition(ctx, source.ID, v1.CommandAwaitingApproval, v1.CommandProcessed); err != nil {
				return err
			}
		}
		var herr error
		result, herr = handler(ctx, tx, cmd)
		if herr != nil {
			return herr
		}
		if result == nil {
			result = &v1.CommandProcessingResult{}
		}
		if err := applyResult(source, result); err != nil {
			return err
		}
		source.ProcessingResultEnum = v1.CommandProcessed
		if source.ID == 0 {
			return tx.Commands().Create(ctx, source)
		}
		return tx.Commands().Update(ctx, source)
	})
	if err != nil {
		return nil, err
	}
	result.CommandID = source.ID
	return result, nil
}

func newJsonCommand(w *CommandWrapper) (*jsoncommand.JsonCommand, error) {
	cmd, err := jsoncommand.New(w.JSON)
	if err != nil {
		return nil, err
	}
	cmd.EntityName = w.EntityName
	cmd.Href = w.Href
	cmd.ResourceID = w.EntityID
	cmd.SubresourceID = w.SubentityID
	return cmd, nil
}

func newCommandSource(w *CommandWrapper, makerID int64) *v1.CommandSource {
	src := &v1.CommandSource{
		ActionName:    w.ActionName,
		EntityName:    w.EntityName,
		Href:          w.Href,
		CommandAsJSON: w.JSON,
		MakerID:       makerID,
		MadeOnDate:    time.Now(),
		OfficeID:      optionalID(w.OfficeID),
		GroupID:       optionalID(w.GroupID),
		ClientID:      optionalID(w.ClientID),
		LoanID:        optionalID(w.LoanID),
		SavingsID:     optionalID(w.SavingsID),
		ProductID:     optionalID(w.ProductID),
		ResourceID:    optionalID(w.EntityID),
		SubresourceID: optionalID(w.SubentityID),
	}
	if w.TransactionID != "" {
		tid := w.TransactionID
		src.TransactionID = &tid
	}
	return src
}

// wrapperOf 从待复核记录还原命令.
func wrapperOf(src *v1.CommandSource) *CommandWrapper {
	return &CommandWrapper{
		ActionName:  src.ActionName,
		EntityName:  src.EntityName,
		EntityID:    valueOf(src.ResourceID),
		SubentityID: valueOf(src.SubresourceID),
		Href:        src.Href,
		JSON:        src.CommandAsJSON,
		OfficeID:    valueOf(src.OfficeID),
		GroupID:     valueOf(src.GroupID),
		ClientID:    valueOf(src.ClientID),
		LoanID:      valueOf(src.LoanID),
		SavingsID:   valueOf(src.SavingsID),
		ProductID:   valueOf(src.ProductID),
	}
}

// applyResult 处理结果回写到命令记录，结果未给出的字段保留请求中的值.
func applyResult(src *v1.CommandSource, r *v1.CommandProcessingResult) error {
	set := func(dst **int64, v int64) {
		if v != 0 {
			*dst = optionalID(v)
		}
	}
	set(&src.ResourceID, r.ResourceID)
	set(&src.SubresourceID, r.SubResourceID)
	set(&src.OfficeID, r.OfficeID)
	set(&src.GroupID, r.GroupID)
	set(&src.ClientID, r.ClientID)
	set(&src.LoanID, r.LoanID)
	set(&src.SavingsID, r.SavingsID)
	set(&src.ProductID, r.ProductID)
	if r.ResourceIdentifier != "" {
		src.ResourceIdentifier = r.ResourceIdentifier
	}
	if r.TransactionID != "" {
		tid := r.TransactionID
		src.TransactionID = &tid
	}
	if len(r.Changes) > 0 {
		changes, err := json.MarshalToString(r.Changes)
		if err != nil {
			return errors.WithCode(code.ErrEncodingJSON, "序列化变更失败: %v", err)
		}
		src.Changes = changes
	}
	return nil
}

// afterCommit 提交后通知监听者、投递事件并提交审计，投递失败不影响命令结果.
func (s *CommandSourceService) afterCommit(ctx context.Context, user *v1.PlatformUser, w *CommandWrapper,
	src *v1.CommandSource, outcome string,
) {
	event := &v1.CommandEvent{
		EventID:              uuid.NewString(),
		CommandID:            src.ID,
		ActionName:           src.ActionName,
		EntityName:           src.EntityName,
		ResourceID:           valueOf(src.ResourceID),
		ResourceIdentifier:   src.ResourceIdentifier,
		OfficeID:             valueOf(src.OfficeID),
		MakerID:              src.MakerID,
		ProcessingResultEnum: src.ProcessingResultEnum,
		OccurredAt:           time.Now(),
	}
	if src.ProcessingResultEnum == v1.CommandProcessed {
		for _, l := range s.listeners {
			l(ctx, event)
		}
	}
	s.publish(ctx, event)
	s.submitAudit(ctx, user, w, src.ID, outcome, nil)
}

func (s *CommandSourceService) publish(ctx context.Context, event *v1.CommandEvent) {
	if s.Producer == nil || !s.Options.PublishEvents {
		return
	}
	pctx := context.WithoutCancel(ctx)
	gopool.CtxGo(pctx, func() {
		sendCtx, cancel := context.WithTimeout(pctx, s.Options.PublishTimeout)
		defer cancel()
		if err := s.Producer.SendCommandEvent(sendCtx, event); err != nil {
			log.L(pctx).Warnw("命令事件投递失败", "commandId", event.CommandID, "entity", event.EntityName, "error", err)
		}
	})
}

func (s *CommandSourceService) submitAudit(ctx context.Context, user *v1.PlatformUser, w *CommandWrapper,
	commandID int64, outcome string, cause error,
) {
	if !s.Audit.Enabled() {
		return
	}
	event := audit.CommandEvent(w.EntityName, w.ActionName)
	event.Target = w.Href
	event.Outcome = outcome
	event.Metadata["permission"] = w.PermissionCode()
	if w.EntityID != 0 {
		event.ResourceID = strconv.FormatInt(w.EntityID, 10)
	}
	if commandID != 0 {
		event.Metadata["commandId"] = commandID
	}
	if user != nil {
		event.Actor = user.Username
		event.ActorID = strconv.FormatInt(user.ID, 10)
	}
	if cause != nil {
		event.ErrorMessage = cause.Error()
	}
	s.Audit.Submit(ctx, event)
}

func optionalID(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func valueOf(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

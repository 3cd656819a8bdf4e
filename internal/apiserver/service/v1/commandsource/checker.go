package commandsource

import (
	"context"
	"time"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/samber/lo"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/audit"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// ApproveEntry 复核通过：以复核人身份执行原命令并回写同一条记录.
func (s *CommandSourceService) ApproveEntry(ctx context.Context, id int64) (result *v1.CommandProcessingResult, err error) {
	start := time.Now()
	src, user, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	w := wrapperOf(src)
	defer func() {
		outcome := resultProcessed
		if err != nil {
			outcome = resultFailed
		}
		metrics.RecordCommand(w.EntityName, w.ActionName, outcome, time.Since(start))
	}()
	if err := s.Security.ValidateHasAnyPermission(ctx, v1.PermissionAllFunctions, w.CheckerPermissionCode()); err != nil {
		s.submitAudit(ctx, user, w, id, audit.OutcomeDeny, err)
		return nil, err
	}
	handler, err := s.Handlers.Resolve(w)
	if err != nil {
		return nil, err
	}
	cmd, err := newJsonCommand(w)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	src.CheckerID = &user.ID
	src.CheckedOnDate = &now
	result, err = s.process(ctx, handler, cmd, src)
	if err != nil {
		s.submitAudit(ctx, user, w, id, audit.OutcomeFail, err)
		return nil, err
	}
	metrics.CommandsPending.Dec()
	log.L(ctx).Infow("命令复核通过", "commandId", id, "checker", user.Username)
	s.afterCommit(ctx, user, w, src, audit.OutcomeSuccess)
	return result, nil
}

// RejectEntry 复核拒绝，命令不会执行.
func (s *CommandSourceService) RejectEntry(ctx context.Context, id int64) (*v1.CommandProcessingResult, error) {
	src, user, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	w := wrapperOf(src)
	if err := s.Security.ValidateHasAnyPermission(ctx, v1.PermissionAllFunctions, w.CheckerPermissionCode()); err != nil {
		s.submitAudit(ctx, user, w, id, audit.OutcomeDeny, err)
		return nil, err
	}
	if err := s.reject(ctx, src, user); err != nil {
		return nil, err
	}
	metrics.CommandsPending.Dec()
	metrics.RecordCommand(w.EntityName, w.ActionName, resultRejected, 0)
	s.afterCommit(ctx, user, w, src, audit.OutcomeDeny)
	return &v1.CommandProcessingResult{CommandID: id, ResourceID: valueOf(src.ResourceID)}, nil
}

// DeleteEntry 删除待复核命令，仅发起人或有复核权限的用户可删.
func (s *CommandSourceService) DeleteEntry(ctx context.Context, id int64) (*v1.CommandProcessingResult, error) {
	src, user, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	w := wrapperOf(src)
	if src.MakerID != user.ID {
		if err := s.Security.ValidateHasAnyPermission(ctx, v1.PermissionAllFunctions, w.CheckerPermissionCode()); err != nil {
			return nil, err
		}
	}
	if err := s.Store.Commands().DeleteWithStatus(ctx, id, v1.CommandAwaitingApproval); err != nil {
		return nil, err
	}
	metrics.CommandsPending.Dec()
	s.submitAudit(ctx, user, &CommandWrapper{
		ActionName: ActionDelete,
		EntityName: ResourceMakerChecker,
		EntityID:   id,
		Href:       w.Href,
	}, id, audit.OutcomeSuccess, nil)
	return &v1.CommandProcessingResult{CommandID: id}, nil
}

// reject 与复核通过互斥，状态已被改变时返回 ErrCommandNotPending.
func (s *CommandSourceService) reject(ctx context.Context, src *v1.CommandSource, user *v1.PlatformUser) error {
	now := time.Now()
	src.CheckerID = &user.ID
	src.CheckedOnDate = &now
	return s.Store.Transaction(ctx, func(tx interfaces.Factory) error {
		if err := tx.Commands().Transition(ctx, src.ID, v1.CommandAwaitingApproval, v1.CommandRejected); err != nil {
			return err
		}
		src.ProcessingResultEnum = v1.CommandRejected
		return tx.Commands().Update(ctx, src)
	})
}

func (s *CommandSourceService) loadPending(ctx context.Context, id int64) (*v1.CommandSource, *v1.PlatformUser, error) {
	user, err := s.Security.AuthenticatedUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	src, err := s.Store.Commands().Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if src.ProcessingResultEnum != v1.CommandAwaitingApproval {
		return nil, nil, errors.WithCode(code.ErrCommandNotPending,
			"Audit with identifier %d is not awaiting approval", id)
	}
	return src, user, nil
}

func (s *CommandSourceService) RetrievePending(ctx context.Context, filter interfaces.CommandFilter, includeJSON bool) (*v1.CommandSourceList, error) {
	if err := s.Security.ValidateHasReadPermission(ctx, ResourceMakerChecker); err != nil {
		return nil, err
	}
	filter.Statuses = []int{v1.CommandAwaitingApproval}
	return s.list(ctx, filter, includeJSON)
}

// RetrieveAudits 默认只列出已处理的命令，调用方可通过 Statuses 指定.
func (s *CommandSourceService) RetrieveAudits(ctx context.Context, filter interfaces.CommandFilter, includeJSON bool) (*v1.CommandSourceList, error) {
	if err := s.Security.ValidateHasReadPermission(ctx, ResourceAudit); err != nil {
		return nil, err
	}
	if len(filter.Statuses) == 0 {
		filter.Statuses = []int{v1.CommandProcessed}
	}
	return s.list(ctx, filter, includeJSON)
}

func (s *CommandSourceService) RetrieveAudit(ctx context.Context, id int64) (*v1.CommandSourceData, error) {
	if err := s.Security.ValidateHasReadPermission(ctx, ResourceAudit); err != nil {
		return nil, err
	}
	src, err := s.Store.Commands().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	names, err := s.usernames(ctx, []v1.CommandSource{*src})
	if err != nil {
		return nil, err
	}
	d := toData(*src, names, true)
	return &d, nil
}

func (s *CommandSourceService) list(ctx context.Context, filter interfaces.CommandFilter, includeJSON bool) (*v1.CommandSourceList, error) {
	items, total, err := s.Store.Commands().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	names, err := s.usernames(ctx, items)
	if err != nil {
		return nil, err
	}
	page := lo.Map(items, func(src v1.CommandSource, _ int) v1.CommandSourceData {
		return toData(src, names, includeJSON)
	})
	return &v1.CommandSourceList{TotalFilteredRecords: total, PageItems: page}, nil
}

func (s *CommandSourceService) usernames(ctx context.Context, items []v1.CommandSource) (map[int64]string, error) {
	ids := make([]int64, 0, len(items)*2)
	for _, src := range items {
		ids = append(ids, src.MakerID)
		if src.CheckerID != nil {
			ids = append(ids, *src.CheckerID)
		}
	}
	return s.Store.Security().UsernamesByID(ctx, lo.Uniq(ids))
}

func toData(src v1.CommandSource, names map[int64]string, includeJSON bool) v1.CommandSourceData {
	d := v1.CommandSourceData{
		ID:                   src.ID,
		ActionName:           src.ActionName,
		EntityName:           src.EntityName,
		ResourceID:           src.ResourceID,
		SubresourceID:        src.SubresourceID,
		OfficeID:             src.OfficeID,
		Href:                 src.Href,
		Maker:                names[src.MakerID],
		MakerID:              src.MakerID,
		MadeOnDate:           src.MadeOnDate,
		CheckerID:            src.CheckerID,
		CheckedOnDate:        src.CheckedOnDate,
		ProcessingResult:     v1.ProcessingResultName(src.ProcessingResultEnum),
		ProcessingResultEnum: src.ProcessingResultEnum,
	}
	if src.CheckerID != nil {
		d.Checker = names[*src.CheckerID]
	}
	if includeJSON && src.CommandAsJSON != "" {
		var body interface{}
		if err := json.UnmarshalFromString(src.CommandAsJSON, &body); err == nil {
			d.CommandAsJSON = body
		} else {
			d.CommandAsJSON = src.CommandAsJSON
		}
	}
	return d
}

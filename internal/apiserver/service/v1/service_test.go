package v1

import (
	"context"
	"testing"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/options"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/commandsource"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/storetest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/audit"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/userctx"
)

func newTestService(t *testing.T) (*ServiceSrv, *audit.Manager, context.Context) {
	t.Helper()
	ds := store.NewDatastore(storetest.NewDB(t))
	am, err := audit.NewManager(audit.Config{
		Enabled:      true,
		Sinks:        []audit.Sink{audit.SinkFunc{SinkName: "discard"}},
		RecentBuffer: 16,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = am.Shutdown(context.Background()) })

	opts := options.NewOptions()
	opts.CommandOptions.MakerCheckerEnabled = false
	s, err := NewService(ds, nil, opts, nil, am)
	require.NoError(t, err)

	ctx := userctx.WithUsername(context.Background(), "mifos")
	// sqlite 只有一个连接，事务开始前先加载用户
	_, err = s.Security().AuthenticatedUser(ctx)
	require.NoError(t, err)
	return s, am, ctx
}

func TestServiceCreateOfficeThroughCommandSource(t *testing.T) {
	s, am, ctx := newTestService(t)

	w := commandsource.NewCommandWrapperBuilder().
		CreateOffice().
		WithJSON(`{"name":"Branch A","parentId":1,"openingDate":[2020,1,1]}`).
		Build()
	res, err := s.Commands().LogCommandSource(ctx, w)
	require.NoError(t, err)
	require.NotZero(t, res.ResourceID)

	all, err := s.Offices().RetrieveAllOffices(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, res.ResourceID, all[1].ID)
	assert.Equal(t, "Branch A", all[1].Name)

	audits, err := s.Commands().RetrieveAudit(ctx, res.CommandID)
	require.NoError(t, err)
	assert.Equal(t, "mifos", audits.Maker)

	recent := am.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "OFFICE.CREATE", recent[0].Action)
}

func TestServiceUnknownCommand(t *testing.T) {
	s, _, ctx := newTestService(t)
	w := &commandsource.CommandWrapper{ActionName: "CLOSE", EntityName: commandsource.EntityOffice, JSON: `{}`}
	_, err := s.Commands().LogCommandSource(ctx, w)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, code.ErrUnsupportedCommand))
}

func TestInvalidate(t *testing.T) {
	s, _, ctx := newTestService(t)

	// 未处理或无效的事件直接忽略
	s.Invalidate(ctx, nil)
	s.Invalidate(ctx, &v1.CommandEvent{EntityName: commandsource.EntityOffice, ProcessingResultEnum: v1.CommandAwaitingApproval})

	s.Invalidate(ctx, &v1.CommandEvent{
		EntityName:           commandsource.EntityDatatable,
		ActionName:           commandsource.ActionCreate,
		ResourceIdentifier:   "visits",
		ProcessingResultEnum: v1.CommandProcessed,
	})
	assert.True(t, s.Names.MightContain("visits"))

	s.Invalidate(ctx, &v1.CommandEvent{
		EntityName:           EntityCodeValue,
		ResourceIdentifier:   v1.OfficeTypeCode,
		ProcessingResultEnum: v1.CommandProcessed,
	})
	types, err := s.CodeValues().RetrieveCodeValuesByCode(ctx, v1.OfficeTypeCode)
	require.NoError(t, err)
	assert.NotEmpty(t, types)
}

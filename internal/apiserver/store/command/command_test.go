package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/storetest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

func seed(t *testing.T, s *Commands, action, entity string, status int, maker int64) *v1.CommandSource {
	t.Helper()
	cmd := &v1.CommandSource{
		ActionName: action, EntityName: entity, Href: "/offices/template",
		CommandAsJSON: "{}", MakerID: maker, MadeOnDate: time.Now(), ProcessingResultEnum: status,
	}
	require.NoError(t, s.Create(context.Background(), cmd))
	return cmd
}

func TestListFilters(t *testing.T) {
	s := NewCommands(storetest.NewDB(t))
	ctx := context.Background()

	seed(t, s, "CREATE", "OFFICE", v1.CommandProcessed, 1)
	pending := seed(t, s, "UPDATE", "OFFICE", v1.CommandAwaitingApproval, 1)
	seed(t, s, "CREATE", "DATATABLE", v1.CommandAwaitingApproval, 2)

	items, total, err := s.List(ctx, interfaces.CommandFilter{Statuses: []int{v1.CommandAwaitingApproval}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	items, total, err = s.List(ctx, interfaces.CommandFilter{
		EntityName: "OFFICE", MakerID: 1, Statuses: []int{v1.CommandAwaitingApproval},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, pending.ID, items[0].ID)

	items, total, err = s.List(ctx, interfaces.CommandFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 1)
	assert.Equal(t, pending.ID, items[0].ID)
}

func TestUpdateAndDelete(t *testing.T) {
	s := NewCommands(storetest.NewDB(t))
	ctx := context.Background()
	cmd := seed(t, s, "CREATE", "OFFICE", v1.CommandAwaitingApproval, 1)

	checker := int64(2)
	now := time.Now()
	cmd.CheckerID, cmd.CheckedOnDate, cmd.ProcessingResultEnum = &checker, &now, v1.CommandRejected
	require.NoError(t, s.Update(ctx, cmd))

	got, err := s.Get(ctx, cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.CommandRejected, got.ProcessingResultEnum)
	assert.Equal(t, "CREATE_OFFICE", got.PermissionCode())

	require.NoError(t, s.Delete(ctx, cmd.ID))
	assert.True(t, errors.IsCode(s.Delete(ctx, cmd.ID), code.ErrCommandNotFound))
	_, err = s.Get(ctx, cmd.ID)
	assert.True(t, errors.IsCode(err, code.ErrCommandNotFound))
}

func TestTransitionOnlyFromExpectedStatus(t *testing.T) {
	s := NewCommands(storetest.NewDB(t))
	ctx := context.Background()
	cmd := seed(t, s, "CREATE", "OFFICE", v1.CommandAwaitingApproval, 1)

	require.NoError(t, s.Transition(ctx, cmd.ID, v1.CommandAwaitingApproval, v1.CommandProcessed))
	err := s.Transition(ctx, cmd.ID, v1.CommandAwaitingApproval, v1.CommandRejected)
	assert.True(t, errors.IsCode(err, code.ErrCommandNotPending))

	got, err := s.Get(ctx, cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.CommandProcessed, got.ProcessingResultEnum)

	err = s.DeleteWithStatus(ctx, cmd.ID, v1.CommandAwaitingApproval)
	assert.True(t, errors.IsCode(err, code.ErrCommandNotPending))
	require.NoError(t, s.DeleteWithStatus(ctx, cmd.ID, v1.CommandProcessed))
}

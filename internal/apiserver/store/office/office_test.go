package office

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/storetest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/db"
)

func newBranch(t *testing.T, s *Offices, name string, parent *v1.Office) *v1.Office {
	t.Helper()
	ctx := context.Background()
	o := &v1.Office{ParentID: &parent.ID, Name: name, Hierarchy: "pending", OpeningDate: time.Now()}
	require.NoError(t, s.Create(ctx, o))
	o.Hierarchy = parent.Hierarchy + itoa(o.ID) + "."
	require.NoError(t, s.Update(ctx, o))
	return o
}

func itoa(i int64) string {
	return strconv.FormatInt(i, 10)
}

func TestGetAndList(t *testing.T) {
	s := NewOffices(storetest.NewDB(t))
	ctx := context.Background()

	head, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, head.IsHeadOffice())

	a := newBranch(t, s, "Branch A", head)
	newBranch(t, s, "Branch A1", a)
	newBranch(t, s, "Branch B", head)

	all, err := s.ListUnderHierarchy(ctx, ".")
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, ".", all[0].Hierarchy)

	under, err := s.ListUnderHierarchy(ctx, a.Hierarchy)
	require.NoError(t, err)
	assert.Len(t, under, 2)

	_, err = s.Get(ctx, 999)
	assert.True(t, errors.IsCode(err, code.ErrOfficeNotFound))
}

func TestUniqueness(t *testing.T) {
	gdb := storetest.NewDB(t)
	s := NewOffices(gdb)
	ctx := context.Background()
	head, _ := s.Get(ctx, 1)
	a := newBranch(t, s, "Branch A", head)

	exists, err := s.ExistsByName(ctx, "Branch A", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ExistsByName(ctx, "Branch A", a.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	dup := &v1.Office{ParentID: &head.ID, Name: "Branch A", Hierarchy: ".x.", OpeningDate: time.Now()}
	err = s.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, db.IsDuplicateKey(err))
}

func TestReplaceHierarchyPrefix(t *testing.T) {
	s := NewOffices(storetest.NewDB(t))
	ctx := context.Background()
	head, _ := s.Get(ctx, 1)
	a := newBranch(t, s, "A", head)
	b := newBranch(t, s, "B", head)
	a1 := newBranch(t, s, "A1", a)

	// A 移到 B 之下
	oldPrefix := a.Hierarchy
	a.ParentID = &b.ID
	a.Hierarchy = b.Hierarchy + itoa(a.ID) + "."
	require.NoError(t, s.Update(ctx, a))
	n, err := s.ReplaceHierarchyPrefix(ctx, oldPrefix, a.Hierarchy)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.Get(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Hierarchy+itoa(a1.ID)+".", got.Hierarchy)
}

func TestAddressUpsert(t *testing.T) {
	s := NewOffices(storetest.NewDB(t))
	ctx := context.Background()

	addr, err := s.GetAddress(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, addr)

	line := "1 Main St"
	require.NoError(t, s.SaveAddress(ctx, &v1.OfficeAddress{OfficeID: 1, Line1: &line}))
	zip := "10001"
	require.NoError(t, s.SaveAddress(ctx, &v1.OfficeAddress{OfficeID: 1, Line1: &line, Zip: &zip}))

	addr, err = s.GetAddress(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, addr.Zip)
	assert.Equal(t, "10001", *addr.Zip)
}

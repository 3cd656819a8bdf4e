package security

import (
	"context"
	"testing"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/storetest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/userctx"
)

// newReader 创建一个只有 READ_OFFICE 权限、位于 .2. 机构的用户.
func newReader(t *testing.T, db *gorm.DB) {
	t.Helper()
	branch := v1.Office{ID: 2, ParentID: new(int64), Hierarchy: ".2.", Name: "Branch"}
	*branch.ParentID = 1
	require.NoError(t, db.Create(&branch).Error)

	var perm v1.Permission
	require.NoError(t, db.Where("code = ?", "READ_OFFICE").First(&perm).Error)
	role := v1.Role{Name: "reader", Permissions: []v1.Permission{perm}}
	require.NoError(t, db.Omit("Permissions.*").Create(&role).Error)
	hash, err := v1.EncryptPassword("secret1")
	require.NoError(t, err)
	user := v1.AppUser{Username: "reader", Password: hash, OfficeID: 2, Enabled: true, Roles: []v1.Role{role}}
	require.NoError(t, db.Omit("Roles.*").Create(&user).Error)
}

func TestReadPermission(t *testing.T) {
	db := storetest.NewDB(t)
	newReader(t, db)
	s := NewSecurityService(store.NewDatastore(db))

	ctx := userctx.WithUsername(context.Background(), "reader")
	require.NoError(t, s.ValidateHasReadPermission(ctx, "OFFICE"))

	err := s.ValidateHasReadPermission(ctx, "DATATABLE")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, code.ErrPermissionDenied))
	_, resp := core.ErrorResponseOf(err)
	assert.Equal(t, "User has no authority to view datatables", resp.Message)

	ok, err := s.HasAnyPermission(ctx, "REGISTER_DATATABLE", v1.PermissionAllFunctions)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Error(t, s.ValidateCommandPermission(ctx, "CREATE_OFFICE"))
}

func TestOfficeScope(t *testing.T) {
	db := storetest.NewDB(t)
	newReader(t, db)
	s := NewSecurityService(store.NewDatastore(db))

	ctx := userctx.WithUsername(context.Background(), "reader")
	assert.NoError(t, s.ValidateAccessToOffice(ctx, ".2.7."))
	err := s.ValidateAccessToOffice(ctx, ".")
	assert.True(t, errors.IsCode(err, code.ErrOfficeOutOfHierarchy))

	admin := userctx.WithUsername(context.Background(), "mifos")
	assert.NoError(t, s.ValidateAccessToOffice(admin, ".2.7."))
	assert.NoError(t, s.ValidateCommandPermission(admin, "DELETE_DATATABLE"))
}

func TestAuthenticatedUserCachedPerRequest(t *testing.T) {
	db := storetest.NewDB(t)
	s := NewSecurityService(store.NewDatastore(db))
	ctx := userctx.WithUsername(context.Background(), "mifos")

	first, err := s.AuthenticatedUser(ctx)
	require.NoError(t, err)
	second, err := s.AuthenticatedUser(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, ".", first.OfficeHierarchy)

	_, err = s.AuthenticatedUser(context.Background())
	assert.True(t, errors.IsCode(err, code.ErrTokenInvalid))
}

func TestAuthenticate(t *testing.T) {
	db := storetest.NewDB(t)
	s := NewSecurityService(store.NewDatastore(db))
	ctx := context.Background()

	u, err := s.Authenticate(ctx, "mifos", "password")
	require.NoError(t, err)
	assert.Equal(t, "mifos", u.Username)

	_, err = s.Authenticate(ctx, "mifos", "wrong")
	assert.True(t, errors.IsCode(err, code.ErrPasswordIncorrect))
	_, err = s.Authenticate(ctx, "nobody", "password")
	assert.True(t, errors.IsCode(err, code.ErrUserNotFound))
}

package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecorateName(t *testing.T) {
	assert.Equal(t, "Head Office", DecorateName("Head Office", "."))
	assert.Equal(t, "....Branch", DecorateName("Branch", ".2."))
	assert.Equal(t, "........Sub", DecorateName("Sub", ".2.4."))
}

func TestOfficeHierarchy(t *testing.T) {
	parent := int64(1)
	o := &Office{ID: 4, ParentID: &parent, Hierarchy: ".2.4."}
	assert.False(t, o.IsHeadOffice())
	assert.True(t, o.IsDescendantOf(".2."))
	assert.False(t, o.IsDescendantOf(".2.4."))
	assert.False(t, o.IsDescendantOf(".3."))
}

func TestPasswordCompare(t *testing.T) {
	hash, err := EncryptPassword("password")
	assert.NoError(t, err)
	u := &AppUser{Password: hash}
	assert.NoError(t, u.Compare("password"))
	assert.Error(t, u.Compare("wrong"))
}

func TestPlatformUserPermissions(t *testing.T) {
	user := &AppUser{Roles: []Role{
		{Permissions: []Permission{{Code: "READ_OFFICE"}, {Code: "CREATE_OFFICE"}}},
		{IsDisabled: true, Permissions: []Permission{{Code: PermissionAllFunctions}}},
	}}
	p := NewPlatformUser(user, ".2.")
	assert.True(t, p.CanRead("OFFICE"))
	assert.False(t, p.CanRead("DATATABLE"))
	assert.True(t, p.CanExecute("CREATE_OFFICE"))
	assert.False(t, p.CanExecute("UPDATE_OFFICE"))
	assert.False(t, p.HasPermission(PermissionAllFunctions))
	assert.Equal(t, []string{"CREATE_OFFICE", "READ_OFFICE"}, p.PermissionCodes())

	assert.True(t, p.CanAccessOffice(".2."))
	assert.True(t, p.CanAccessOffice(".2.5."))
	assert.False(t, p.CanAccessOffice(".3."))

	admin := NewPlatformUser(&AppUser{Roles: []Role{{Permissions: []Permission{{Code: PermissionAllFunctions}}}}}, ".")
	assert.True(t, admin.CanRead("ANYTHING"))
	assert.True(t, admin.CanExecute("DELETE_DATATABLE"))
}

package datatable

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"testing"
	"time"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/security"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/storetest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/cache"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/server/bloomfilter"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/userctx"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/lock"
)

type fixture struct {
	srv    *DatatableService
	ds     *store.Datastore
	db     *gorm.DB
	ctx    context.Context
	gold   int64
	silver int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := storetest.NewDB(t)
	ds := store.NewDatastore(gdb)
	sec := security.NewSecurityService(ds)

	locks := options.NewDistributedLockOptions()
	locks.Business = nil
	locks.DefaultRetry = &options.RetryOptions{MaxCount: 1, Interval: 10 * time.Millisecond, BackoffType: "fixed"}
	srv := NewDatatableService(ds, sec, nil, options.NewDatatableOptions(), locks, nil, cache.New(nil, "datatable", 0))

	level := v1.Code{Name: "Level"}
	require.NoError(t, gdb.Create(&level).Error)
	gold := v1.CodeValue{CodeID: level.ID, Value: "Gold", Position: 1, Score: intPtr(10), IsActive: true}
	silver := v1.CodeValue{CodeID: level.ID, Value: "Silver", Position: 2, Score: intPtr(5), IsActive: true}
	require.NoError(t, gdb.Create(&gold).Error)
	require.NoError(t, gdb.Create(&silver).Error)

	ctx := userctx.WithUsername(context.Background(), "mifos")
	// 事务内只有一个连接，先把用户加载到上下文
	_, err := sec.AuthenticatedUser(ctx)
	require.NoError(t, err)
	return &fixture{srv: srv, ds: ds, db: gdb, ctx: ctx, gold: gold.ID, silver: silver.ID}
}

func intPtr(n int) *int {
	return &n
}

type handler func(context.Context, interfaces.Factory, *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)

type target struct {
	entity        string
	href          string
	resourceID    int64
	subresourceID int64
}

func (f *fixture) run(t *testing.T, h handler, to target, body string) (*v1.CommandProcessingResult, error) {
	t.Helper()
	cmd, err := jsoncommand.New(body)
	require.NoError(t, err)
	cmd.EntityName, cmd.Href = to.entity, to.href
	cmd.ResourceID, cmd.SubresourceID = to.resourceID, to.subresourceID
	var result *v1.CommandProcessingResult
	err = f.ds.Transaction(f.ctx, func(tx interfaces.Factory) error {
		var herr error
		result, herr = h(f.ctx, tx, cmd)
		return herr
	})
	return result, err
}

func (f *fixture) createVisits(t *testing.T) {
	t.Helper()
	res, err := f.run(t, f.srv.CreateDatatable, target{entity: EntityDatatable, href: "/datatables"}, `{
		"datatableName": "office visits", "apptableName": "m_office", "multiRow": true,
		"columns": [
			{"name": "note", "type": "String", "length": 20, "mandatory": true},
			{"name": "visited", "type": "Date"},
			{"name": "amount", "type": "Decimal"},
			{"name": "level", "type": "Dropdown", "code": "Level"},
			{"name": "done", "type": "Boolean"}
		]}`)
	require.NoError(t, err)
	require.Equal(t, "office_visits", res.ResourceIdentifier)
}

func visits(resourceID, subresourceID int64) target {
	return target{
		entity:        "office_visits",
		href:          "/datatables/office_visits/" + strconv.FormatInt(resourceID, 10),
		resourceID:    resourceID,
		subresourceID: subresourceID,
	}
}

func TestTableNameFromURL(t *testing.T) {
	assert.Equal(t, "extra", GetTableName("/v1/datatables/extra/1/2"))
	assert.Equal(t, "extra?apptable=m_office", GetTableName("datatables/extra?apptable=m_office"))
	assert.Equal(t, "extra", GetDataTableName("datatables/extra?apptable=m_office"))
	assert.Equal(t, "", GetTableName("/v1/offices/1"))
	assert.Equal(t, "office_id", foreignKeyColumn("m_office"))
	assert.Equal(t, "office_visits", normalizeName("  office   visits "))
}

func TestCreateDatatable(t *testing.T) {
	f := newFixture(t)
	f.createVisits(t)

	data, err := f.srv.RetrieveSingleDatatable(f.ctx, "office_visits")
	require.NoError(t, err)
	assert.Equal(t, "m_office", data.ApplicationTableName)
	names := make([]string, 0, len(data.ColumnHeaderData))
	for _, h := range data.ColumnHeaderData {
		names = append(names, h.ColumnName)
	}
	assert.Equal(t, []string{"id", "office_id", "note", "visited", "amount", "Level_cd_level", "done"}, names)

	note := data.ColumnHeaderData[2]
	assert.Equal(t, v1.DisplayTypeString, note.ColumnDisplayType)
	assert.Equal(t, int64(20), note.ColumnLength)
	assert.False(t, note.IsColumnNullable)
	assert.Equal(t, v1.DisplayTypeDate, data.ColumnHeaderData[3].ColumnDisplayType)
	assert.Equal(t, v1.DisplayTypeDecimal, data.ColumnHeaderData[4].ColumnDisplayType)
	level := data.ColumnHeaderData[5]
	assert.Equal(t, v1.DisplayTypeCodeLookup, level.ColumnDisplayType)
	assert.Equal(t, "Level", level.ColumnCode)
	require.Len(t, level.ColumnValues, 2)
	assert.Equal(t, "Gold", level.ColumnValues[0].Value)
	assert.Equal(t, v1.DisplayTypeBoolean, data.ColumnHeaderData[6].ColumnDisplayType)

	perm, err := f.ds.Security().GetPermission(f.ctx, "UPDATE_office_visits_CHECKER")
	require.NoError(t, err)
	require.NotNil(t, perm)
	assert.Equal(t, DefaultPermissionGrouping, perm.Grouping)

	_, err = f.run(t, f.srv.CreateDatatable, target{entity: EntityDatatable}, `{
		"datatableName": "office_visits", "apptableName": "m_office",
		"columns": [{"name": "note", "type": "Text"}]}`)
	assert.True(t, errors.IsCode(err, code.ErrDatatableAlreadyExist))

	list, err := f.srv.RetrieveDatatableNames(f.ctx, "m_office")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "office_visits", list[0].RegisteredTableName)

	_, err = f.srv.RetrieveSingleDatatable(f.ctx, "missing")
	assert.True(t, errors.IsCode(err, code.ErrDatatableNotFound))
}

func TestCreateDatatableValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]struct {
		body string
		code int
	}{
		"bad name":          {`{"datatableName":"9lives","apptableName":"m_office","columns":[{"name":"a","type":"Text"}]}`, code.ErrValidation},
		"string no length":  {`{"datatableName":"t1","apptableName":"m_office","columns":[{"name":"a","type":"String"}]}`, code.ErrValidation},
		"unknown type":      {`{"datatableName":"t1","apptableName":"m_office","columns":[{"name":"a","type":"Blob"}]}`, code.ErrValidation},
		"no columns":        {`{"datatableName":"t1","apptableName":"m_office"}`, code.ErrValidation},
		"reserved column":   {`{"datatableName":"t1","apptableName":"m_office","columns":[{"name":"office_id","type":"Number"}]}`, code.ErrValidation},
		"wrong json type":   {`{"datatableName":"t1","apptableName":"m_office","columns":"a"}`, code.ErrValidation},
		"unknown apptable":  {`{"datatableName":"t1","apptableName":"m_secret","columns":[{"name":"a","type":"Text"}]}`, code.ErrAppTableNotAllowed},
		"unknown code":      {`{"datatableName":"t1","apptableName":"m_office","columns":[{"name":"a","type":"Dropdown","code":"Nope"}]}`, code.ErrCodeNotFound},
		"unsupported param": {`{"datatableName":"t1","apptableName":"m_office","columns":[{"name":"a","type":"Text"}],"x":1}`, code.ErrValidation},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.run(t, f.srv.CreateDatatable, target{entity: EntityDatatable}, tc.body)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tc.code), "%v", err)
		})
	}
	assert.False(t, f.ds.Datatables().TableExists(f.ctx, "t1"))
}

func TestMultiRowEntries(t *testing.T) {
	f := newFixture(t)
	f.createVisits(t)

	res, err := f.run(t, f.srv.CreateNewDatatableEntry, visits(1, 0), `{
		"note": "first", "visited": "01 March 2024", "dateFormat": "dd MMMM yyyy", "locale": "en",
		"amount": "12.50", "Level_cd_level": `+strconv.FormatInt(f.gold, 10)+`, "done": true}`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.OfficeID)
	assert.Equal(t, int64(1), res.SubResourceID)

	_, err = f.run(t, f.srv.CreateNewDatatableEntry, visits(1, 0), `{"note": "second"}`)
	require.NoError(t, err)

	_, err = f.run(t, f.srv.CreateNewDatatableEntry, visits(1, 0), `{"amount": "1"}`)
	assert.True(t, errors.IsCode(err, code.ErrValidation), "note is mandatory")
	_, err = f.run(t, f.srv.CreateNewDatatableEntry, visits(1, 0), `{"note": "x", "colour": "red"}`)
	assert.True(t, errors.IsCode(err, code.ErrValidation))
	_, err = f.run(t, f.srv.CreateNewDatatableEntry, visits(1, 0), `{"note": "x", "Level_cd_level": 999}`)
	assert.True(t, errors.IsCode(err, code.ErrValidation))
	_, err = f.run(t, f.srv.CreateNewDatatableEntry, visits(1, 0), `{"note": "this note is far too long for the column"}`)
	assert.True(t, errors.IsCode(err, code.ErrValidation))
	_, err = f.run(t, f.srv.CreateNewDatatableEntry, visits(42, 0), `{"note": "x"}`)
	assert.True(t, errors.IsCode(err, code.ErrAppTableRowNotFound))

	rs, err := f.srv.RetrieveDataTableGenericResultSet(f.ctx, "office_visits", 1, "note", 0)
	require.NoError(t, err)
	require.Len(t, rs.Data, 2)
	row := rs.Data[0].Row
	assert.Equal(t, "first", row[2])
	assert.Equal(t, []int{2024, 3, 1}, row[3])
	assert.Equal(t, json.Number("12.5"), row[4])
	assert.Equal(t, f.gold, row[5])
	assert.Equal(t, true, row[6])
	assert.Nil(t, rs.Data[1].Row[3])

	one, err := f.srv.RetrieveDataTableGenericResultSet(f.ctx, "office_visits", 1, "", 2)
	require.NoError(t, err)
	require.Len(t, one.Data, 1)
	assert.Equal(t, "second", one.Data[0].Row[2])

	_, err = f.srv.RetrieveDataTableGenericResultSet(f.ctx, "office_visits", 1, "nope; drop table x", 0)
	assert.True(t, errors.IsCode(err, code.ErrDatatableColumnNotFound))

	res, err = f.run(t, f.srv.UpdateDatatableEntryOneToMany, visits(1, 1), `{"note": "changed", "done": true}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"note": "changed"}, res.Changes)
	assert.Equal(t, int64(1), res.SubResourceID)

	res, err = f.run(t, f.srv.UpdateDatatableEntryOneToMany, visits(1, 1), `{"note": "changed"}`)
	require.NoError(t, err)
	assert.Empty(t, res.Changes)

	_, err = f.run(t, f.srv.UpdateDatatableEntryOneToOne, visits(1, 0), `{"note": "x"}`)
	assert.True(t, errors.IsCode(err, code.ErrValidation))
	_, err = f.run(t, f.srv.UpdateDatatableEntryOneToMany, visits(1, 99), `{"note": "x"}`)
	assert.True(t, errors.IsCode(err, code.ErrDatatableEntryNotFound))

	_, err = f.run(t, f.srv.DeleteDatatableEntry, visits(1, 1), `{}`)
	require.NoError(t, err)
	_, err = f.run(t, f.srv.DeleteDatatableEntry, visits(1, 1), `{}`)
	assert.True(t, errors.IsCode(err, code.ErrDatatableEntryNotFound))

	_, err = f.run(t, f.srv.DeleteDatatableEntries, visits(1, 0), `{}`)
	require.NoError(t, err)
	rs, err = f.srv.RetrieveDataTableGenericResultSet(f.ctx, "office_visits", 1, "", 0)
	require.NoError(t, err)
	assert.True(t, rs.HasNoEntries())
}

func TestOneToOneAndSurvey(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, f.srv.CreateDatatable, target{entity: EntityDatatable}, `{
		"datatableName": "office_ppi", "apptableName": "m_office",
		"columns": [
			{"name": "level", "type": "Dropdown", "code": "Level", "mandatory": true},
			{"name": "score", "type": "Number"}
		]}`)
	require.NoError(t, err)
	ppi := target{entity: "office_ppi", href: "/surveys/office_ppi/1", resourceID: 1}

	res, err := f.run(t, f.srv.CreatePPIEntry, ppi, `{"Level_cd_level": `+strconv.FormatInt(f.gold, 10)+`}`)
	require.NoError(t, err)
	assert.Zero(t, res.SubResourceID)

	_, err = f.run(t, f.srv.CreatePPIEntry, ppi, `{"Level_cd_level": `+strconv.FormatInt(f.silver, 10)+`}`)
	assert.True(t, errors.IsCode(err, code.ErrDatatableEntryAlreadyExist))

	rs, err := f.srv.RetrieveDataTableGenericResultSet(f.ctx, "office_ppi", 1, "", 0)
	require.NoError(t, err)
	require.Len(t, rs.Data, 1)
	assert.Equal(t, []interface{}{int64(1), f.gold, int64(10)}, rs.Data[0].Row)

	res, err = f.run(t, f.srv.UpdateDatatableEntryOneToOne, ppi, `{"Level_cd_level": `+strconv.FormatInt(f.silver, 10)+`}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"Level_cd_level": f.silver}, res.Changes)
}

func TestUpdateAndDeleteDatatable(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, f.srv.CreateDatatable, target{entity: EntityDatatable}, `{
		"datatableName": "extras", "apptableName": "m_office", "multiRow": true,
		"columns": [{"name": "note", "type": "String", "length": 40}]}`)
	require.NoError(t, err)
	dt := target{entity: EntityDatatable, href: "/datatables/extras"}

	res, err := f.run(t, f.srv.UpdateDatatable, dt, `{
		"addColumns": [{"name": "size", "type": "Number"}, {"name": "tier", "type": "Dropdown", "code": "Level"}],
		"changeColumns": [{"name": "note", "newName": "remark"}]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"size", "Level_cd_tier"}, res.Changes[paramAddColumns])

	cols, err := f.ds.Datatables().Columns(f.ctx, "extras")
	require.NoError(t, err)
	var names []string
	for _, c := range cols {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", "office_id", "remark", "size", "Level_cd_tier"}, names)
	_, found, err := f.ds.Datatables().GetCodeMapping(f.ctx, "extras_Level_cd_tier")
	require.NoError(t, err)
	assert.True(t, found)

	_, err = f.run(t, f.srv.UpdateDatatable, dt, `{"dropColumns": [{"name": "missing"}]}`)
	assert.True(t, errors.IsCode(err, code.ErrDatatableColumnNotFound))
	_, err = f.run(t, f.srv.UpdateDatatable, dt, `{"dropColumns": [{"name": "id"}]}`)
	assert.True(t, errors.IsCode(err, code.ErrValidation))

	_, err = f.run(t, f.srv.UpdateDatatable, dt, `{"dropColumns": [{"name": "Level_cd_tier"}]}`)
	require.NoError(t, err)
	_, found, _ = f.ds.Datatables().GetCodeMapping(f.ctx, "extras_Level_cd_tier")
	assert.False(t, found)

	_, err = f.run(t, f.srv.CreateNewDatatableEntry, target{entity: "extras", resourceID: 1}, `{"remark": "x", "size": 3}`)
	require.NoError(t, err)
	_, err = f.run(t, f.srv.DeleteDatatable, dt, `{}`)
	assert.True(t, errors.IsCode(err, code.ErrDatatableNotEmpty))

	_, err = f.run(t, f.srv.DeleteDatatableEntries, target{entity: "extras", resourceID: 1}, `{}`)
	require.NoError(t, err)
	_, err = f.run(t, f.srv.DeleteDatatable, dt, `{}`)
	require.NoError(t, err)

	assert.False(t, f.ds.Datatables().TableExists(f.ctx, "extras"))
	_, err = f.ds.Datatables().GetRegistered(f.ctx, "extras")
	assert.True(t, errors.IsCode(err, code.ErrDatatableNotFound))
	perm, err := f.ds.Security().GetPermission(f.ctx, "READ_extras")
	require.NoError(t, err)
	assert.Nil(t, perm)
}

func TestRegisterAndDeregister(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Exec(`CREATE TABLE "legacy" ("office_id" BIGINT NOT NULL PRIMARY KEY, "note" VARCHAR(10))`).Error)

	res, err := f.run(t, f.srv.RegisterDatatable, target{entity: EntityDatatable},
		`{"datatableName": "legacy", "apptableName": "m_office", "permissionTable": "legacy_group"}`)
	require.NoError(t, err)
	assert.Equal(t, "legacy", res.ResourceIdentifier)
	perm, err := f.ds.Security().GetPermission(f.ctx, "CREATE_legacy_CHECKER")
	require.NoError(t, err)
	require.NotNil(t, perm)
	assert.Equal(t, "legacy_group", perm.Grouping)

	_, err = f.run(t, f.srv.RegisterDatatable, target{entity: EntityDatatable},
		`{"datatableName": "legacy", "apptableName": "m_office"}`)
	assert.Error(t, err)
	_, err = f.run(t, f.srv.RegisterDatatable, target{entity: EntityDatatable},
		`{"datatableName": "legacy", "apptableName": "m_secret"}`)
	assert.True(t, errors.IsCode(err, code.ErrAppTableNotAllowed))
	_, err = f.run(t, f.srv.RegisterDatatable, target{entity: EntityDatatable},
		`{"datatableName": "ghost", "apptableName": "m_office"}`)
	assert.True(t, errors.IsCode(err, code.ErrDatatableNotFound))

	_, err = f.run(t, f.srv.DeregisterDatatable, target{entity: EntityDatatable}, `{"datatableName": "legacy"}`)
	require.NoError(t, err)
	_, err = f.run(t, f.srv.DeregisterDatatable, target{entity: EntityDatatable}, `{"datatableName": "legacy"}`)
	assert.True(t, errors.IsCode(err, code.ErrDatatableNotFound))
	assert.True(t, f.ds.Datatables().TableExists(f.ctx, "legacy"))
}

func TestDatatableReadPermission(t *testing.T) {
	f := newFixture(t)
	f.createVisits(t)
	_, err := f.run(t, f.srv.CreateDatatable, target{entity: EntityDatatable}, `{
		"datatableName": "hidden", "apptableName": "m_office",
		"columns": [{"name": "note", "type": "Text"}]}`)
	require.NoError(t, err)

	var perm v1.Permission
	require.NoError(t, f.db.Where("code = ?", "READ_office_visits").First(&perm).Error)
	role := v1.Role{Name: "visits reader", Permissions: []v1.Permission{perm}}
	require.NoError(t, f.db.Omit("Permissions.*").Create(&role).Error)
	hash, err := v1.EncryptPassword("secret1")
	require.NoError(t, err)
	user := v1.AppUser{Username: "reader", Password: hash, OfficeID: 1, Enabled: true, Roles: []v1.Role{role}}
	require.NoError(t, f.db.Omit("Roles.*").Create(&user).Error)

	ctx := userctx.WithUsername(context.Background(), "reader")
	list, err := f.srv.RetrieveDatatableNames(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "office_visits", list[0].RegisteredTableName)

	_, err = f.srv.RetrieveSingleDatatable(ctx, "hidden")
	assert.True(t, errors.IsCode(err, code.ErrDatatableNotFound))
	_, err = f.srv.RetrieveDataTableGenericResultSet(ctx, "hidden", 1, "", 0)
	assert.True(t, errors.IsCode(err, code.ErrPermissionDenied))
}

func TestDDLLocked(t *testing.T) {
	f := newFixture(t)
	held := lock.NewLocalLock(f.srv.Locks.KeyPrefix + options.LockDatatableDDL + ":busy")
	ok, err := held.TryAcquire(f.ctx, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = held.Release(f.ctx) }()

	_, err = f.run(t, f.srv.CreateDatatable, target{entity: EntityDatatable}, `{
		"datatableName": "busy", "apptableName": "m_office",
		"columns": [{"name": "note", "type": "Text"}]}`)
	assert.True(t, errors.IsCode(err, code.ErrDatatableLocked))
	assert.False(t, f.ds.Datatables().TableExists(f.ctx, "busy"))
}

func TestDatatableNameReserved(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, f.srv.CreateDatatable, target{entity: EntityDatatable}, `{
		"datatableName": "OFFICE", "apptableName": "m_office",
		"columns": [{"name": "note", "type": "Text"}]}`)
	assert.True(t, errors.IsCode(err, code.ErrDatatableNameReserved))
	assert.False(t, f.ds.Datatables().TableExists(f.ctx, "OFFICE"))

	// 已有的表按名字注册，大小写不同也算重名
	require.NoError(t, f.db.Exec(`CREATE TABLE "audit" ("office_id" BIGINT NOT NULL PRIMARY KEY)`).Error)
	_, err = f.run(t, f.srv.RegisterDatatable, target{entity: EntityDatatable},
		`{"datatableName": "audit", "apptableName": "m_office"}`)
	assert.True(t, errors.IsCode(err, code.ErrDatatableNameReserved))
	_, err = f.ds.Datatables().GetRegistered(f.ctx, "audit")
	assert.True(t, errors.IsCode(err, code.ErrDatatableNotFound))

	for _, c := range []string{"READ_OFFICE", "CREATE_OFFICE", "UPDATE_OFFICE_CHECKER", "READ_AUDIT"} {
		perm, err := f.ds.Security().GetPermission(f.ctx, c)
		require.NoError(t, err)
		assert.NotNil(t, perm, c)
	}
}

func TestRegisterRollbackLeavesFilterUntouched(t *testing.T) {
	f := newFixture(t)
	names := bloomfilter.New(options.NewBloomFilterOptions(), func(context.Context) ([]string, error) {
		return nil, nil
	})
	require.NoError(t, names.Rebuild(f.ctx))
	f.srv.Names = names

	require.NoError(t, f.db.Exec(`CREATE TABLE "legacy" ("office_id" BIGINT NOT NULL PRIMARY KEY)`).Error)
	cmd, err := jsoncommand.New(`{"datatableName": "legacy", "apptableName": "m_office"}`)
	require.NoError(t, err)
	cmd.EntityName = EntityDatatable
	err = f.ds.Transaction(f.ctx, func(tx interfaces.Factory) error {
		if _, err := f.srv.RegisterDatatable(f.ctx, tx, cmd); err != nil {
			return err
		}
		return stderrors.New("rollback")
	})
	require.Error(t, err)

	assert.False(t, names.MightContain("legacy"))
	_, err = f.ds.Datatables().GetRegistered(f.ctx, "legacy")
	assert.True(t, errors.IsCode(err, code.ErrDatatableNotFound))
}

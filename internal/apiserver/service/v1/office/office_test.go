package office

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/address"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/codevalue"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/security"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/storetest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/cache"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/userctx"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
)

type fixture struct {
	srv *OfficeService
	ds  *store.Datastore
	db  *gorm.DB
	ctx context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := storetest.NewDB(t)
	ds := store.NewDatastore(gdb)
	c := cache.New(nil, "office", 0)
	sec := security.NewSecurityService(ds)
	srv := NewOfficeService(ds, sec, codevalue.NewCodeValueService(ds, c), address.NewAddressService(ds, c), c)

	ctx := userctx.WithUsername(context.Background(), "mifos")
	// 事务内只有一个连接，先把用户加载到上下文
	_, err := sec.AuthenticatedUser(ctx)
	require.NoError(t, err)
	return &fixture{srv: srv, ds: ds, db: gdb, ctx: ctx}
}

type handler func(context.Context, interfaces.Factory, *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)

func (f *fixture) run(t *testing.T, h handler, resourceID int64, body string) (*v1.CommandProcessingResult, error) {
	t.Helper()
	cmd, err := jsoncommand.New(body)
	require.NoError(t, err)
	cmd.ResourceID = resourceID
	var result *v1.CommandProcessingResult
	err = f.ds.Transaction(f.ctx, func(tx interfaces.Factory) error {
		var herr error
		result, herr = h(f.ctx, tx, cmd)
		return herr
	})
	return result, err
}

func (f *fixture) create(t *testing.T, name string, parentID int64) int64 {
	t.Helper()
	res, err := f.run(t, f.srv.CreateOffice, 0,
		`{"name":"`+name+`","parentId":`+itoa(parentID)+`,"openingDate":"2020-01-01","dateFormat":"yyyy-MM-dd","locale":"en"}`)
	require.NoError(t, err)
	return res.ResourceID
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestCreateOffice(t *testing.T) {
	f := newFixture(t)
	types, err := f.srv.CodeValues.RetrieveCodeValuesByCode(f.ctx, v1.OfficeTypeCode)
	require.NoError(t, err)
	branchType := types[1].ID

	res, err := f.run(t, f.srv.CreateOffice, 0, `{
		"name": "Branch A", "parentId": 1, "externalId": "EXT-1",
		"openingDate": "01 January 2020", "dateFormat": "dd MMMM yyyy", "locale": "en",
		"officeType": `+itoa(branchType)+`, "line1": "1 Main St", "email": "a@example.com"}`)
	require.NoError(t, err)
	assert.Equal(t, res.ResourceID, res.OfficeID)
	assert.Nil(t, res.Changes)

	all, err := f.srv.RetrieveAllOffices(f.ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ".", all[0].Hierarchy)
	assert.Equal(t, "Head Office", all[0].NameDecorated)

	a := all[1]
	assert.Equal(t, ".2.", a.Hierarchy)
	assert.Equal(t, "....Branch A", a.NameDecorated)
	assert.Equal(t, "Head Office", a.ParentName)
	assert.Equal(t, []int{2020, 1, 1}, a.OpeningDate)
	assert.Equal(t, "Branch", a.OfficeTypeName)
	assert.Equal(t, "EXT-1", *a.ExternalID)

	one, err := f.srv.RetrieveOffice(f.ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, one.Address)
	assert.Equal(t, "1 Main St", *one.Address.Line1)
	assert.Equal(t, "a@example.com", *one.Address.Email)
}

func TestCreateOfficeDuplicates(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, f.srv.CreateOffice, 0,
		`{"name":"Branch A","parentId":1,"externalId":"X","openingDate":[2020,1,1]}`)
	require.NoError(t, err)

	_, err = f.run(t, f.srv.CreateOffice, 0, `{"name":"Branch A","parentId":1,"openingDate":[2020,1,1]}`)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, code.ErrOfficeDuplicateName))
	status, resp := core.ErrorResponseOf(err)
	assert.Equal(t, http.StatusForbidden, status)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "error.msg.office.duplicate.name", resp.Errors[0].UserMessageGlobalisationCode)

	_, err = f.run(t, f.srv.CreateOffice, 0, `{"name":"Branch B","parentId":1,"externalId":"X","openingDate":[2020,1,1]}`)
	assert.True(t, errors.IsCode(err, code.ErrOfficeDuplicateExternalID))
}

func TestCreateOfficeValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, f.srv.CreateOffice, 0, `{"externalId":"X"}`)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, code.ErrValidation))
	var params []string
	for _, pe := range validation.ParameterErrorsOf(err) {
		params = append(params, pe.ParameterName)
	}
	assert.ElementsMatch(t, []string{ParamName, ParamParentID, ParamOpeningDate}, params)

	_, err = f.run(t, f.srv.CreateOffice, 0, `{"name":"A","parentId":1,"openingDate":[2020,1,1],"foo":1}`)
	require.Error(t, err)
	pe := validation.ParameterErrorsOf(err)
	require.Len(t, pe, 1)
	assert.Equal(t, "foo", pe[0].ParameterName)

	_, err = f.run(t, f.srv.CreateOffice, 0, `{"name":"A","parentId":1,"openingDate":"2020-01-01"}`)
	require.Error(t, err)
	assert.Equal(t, jsoncommand.ParamDateFormat, validation.ParameterErrorsOf(err)[0].ParameterName)

	_, err = f.run(t, f.srv.CreateOffice, 0, `{"name":"A","parentId":99,"openingDate":[2020,1,1]}`)
	assert.True(t, errors.IsCode(err, code.ErrOfficeNotFound))
}

func TestUpdateOfficeParent(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "A", 1)
	b := f.create(t, "B", a)
	c := f.create(t, "C", 1)

	res, err := f.run(t, f.srv.UpdateOffice, a, `{"parentId":`+itoa(c)+`,"name":"A2"}`)
	require.NoError(t, err)
	assert.Equal(t, c, res.Changes[ParamParentID])
	assert.Equal(t, "A2", res.Changes[ParamName])

	var offices []v1.Office
	require.NoError(t, f.db.Order("id").Find(&offices).Error)
	hierarchies := map[int64]string{}
	for _, o := range offices {
		hierarchies[o.ID] = o.Hierarchy
	}
	assert.Equal(t, ".4.2.", hierarchies[a])
	assert.Equal(t, ".4.2.3.", hierarchies[b])
	assert.Equal(t, ".4.", hierarchies[c])

	_, err = f.run(t, f.srv.UpdateOffice, c, `{"parentId":`+itoa(b)+`}`)
	assert.True(t, errors.IsCode(err, code.ErrOfficeInvalidParent))
	_, err = f.run(t, f.srv.UpdateOffice, c, `{"parentId":`+itoa(c)+`}`)
	assert.True(t, errors.IsCode(err, code.ErrOfficeInvalidParent))
	_, err = f.run(t, f.srv.UpdateOffice, 1, `{"parentId":`+itoa(c)+`}`)
	assert.True(t, errors.IsCode(err, code.ErrHeadOfficeParent))
}

func TestUpdateOfficeNoChanges(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "A", 1)

	res, err := f.run(t, f.srv.UpdateOffice, a, `{"name":"A","parentId":1}`)
	require.NoError(t, err)
	assert.Empty(t, res.Changes)

	res, err = f.run(t, f.srv.UpdateOffice, a,
		`{"openingDate":"2021-03-04","dateFormat":"yyyy-MM-dd","locale":"en","zip":"310000"}`)
	require.NoError(t, err)
	assert.Equal(t, "2021-03-04", res.Changes[ParamOpeningDate])
	assert.Equal(t, "310000", res.Changes[ParamZip])
}

func TestRetrieveWithTemplate(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "A", 1)
	f.create(t, "B", a)
	c := f.create(t, "C", 1)

	office, err := f.srv.RetrieveOffice(f.ctx, a)
	require.NoError(t, err)
	tpl, err := f.srv.RetrieveWithTemplate(f.ctx, office)
	require.NoError(t, err)

	var allowed []int64
	for _, p := range tpl.AllowedParents {
		allowed = append(allowed, p.ID)
		assert.Empty(t, p.Hierarchy)
	}
	assert.ElementsMatch(t, []int64{1, c}, allowed)
	assert.Len(t, tpl.OfficeTypes, 3)

	newTpl, err := f.srv.RetrieveNewOfficeTemplate(f.ctx)
	require.NoError(t, err)
	assert.Len(t, newTpl.AllowedParents, 4)
	assert.Len(t, newTpl.OpeningDate, 3)
}

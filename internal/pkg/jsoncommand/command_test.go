package jsoncommand

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
)

const officeJSON = `{
  "name": "  Branch A ",
  "parentId": 1,
  "externalId": null,
  "openingDate": "01 July 2024",
  "dateFormat": "dd MMMM yyyy",
  "locale": "en",
  "limit": "1,250.50",
  "active": "true",
  "roles": [1, "2", 3],
  "columns": [{"name": "age", "type": "Number"}]
}`

func TestNewRejectsInvalidJSON(t *testing.T) {
	_, err := New(`{"name": `)
	assert.True(t, errors.IsCode(err, code.ErrInvalidJSON))

	_, err = New(`[1,2]`)
	assert.True(t, errors.IsCode(err, code.ErrInvalidJSON))

	cmd, err := New("")
	require.NoError(t, err)
	assert.Empty(t, cmd.Keys())
}

func TestTypedGetters(t *testing.T) {
	cmd, err := New(officeJSON)
	require.NoError(t, err)

	assert.Equal(t, "Branch A", cmd.String("name"))
	assert.True(t, cmd.ParameterExists("externalId"))
	assert.True(t, cmd.IsNull("externalId"))
	assert.Nil(t, cmd.StringPtr("externalId"))

	parent, err := cmd.Long("parentId")
	require.NoError(t, err)
	assert.Equal(t, int64(1), *parent)

	d, err := cmd.LocalDate("openingDate")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.Local), *d)

	amount, err := cmd.Decimal("limit")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("1250.50")))

	assert.True(t, cmd.BoolValue("active"))

	ids, err := cmd.LongArray("roles")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	cols := cmd.Array("columns")
	require.Len(t, cols, 1)
	assert.Equal(t, "Number", cols[0].String("type"))
}

func TestLongInvalid(t *testing.T) {
	cmd, _ := New(`{"parentId": "abc"}`)
	_, err := cmd.Long("parentId")
	require.Error(t, err)
	pe := validation.ParameterErrorsOf(err)
	require.Len(t, pe, 1)
	assert.Equal(t, "validation.msg.invalid.integer.format", pe[0].UserMessageGlobalisationCode)
}

func TestDecimalLocale(t *testing.T) {
	cmd, _ := New(`{"amount": "1.234,5", "locale": "de"}`)
	d, err := cmd.Decimal("amount")
	require.NoError(t, err)
	assert.Equal(t, "1234.5", d.String())
}

func TestLocalDateArrayAndMissingFormat(t *testing.T) {
	cmd, _ := New(`{"openingDate": [2023, 12, 31], "other": "2023-01-01"}`)
	d, err := cmd.LocalDate("openingDate")
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 12, 31}, FormatLocalDate(*d))

	_, err = cmd.LocalDate("other")
	assert.True(t, errors.IsCode(err, code.ErrValidation))
}

func TestChangeDetection(t *testing.T) {
	cmd, _ := New(officeJSON)
	one, two := int64(1), int64(2)

	assert.False(t, cmd.IsChangeInString("name", "Branch A"))
	assert.True(t, cmd.IsChangeInString("name", "HQ"))
	assert.False(t, cmd.IsChangeInString("missing", "x"))
	assert.False(t, cmd.IsChangeInLong("parentId", &one))
	assert.True(t, cmd.IsChangeInLong("parentId", &two))
	assert.True(t, cmd.IsChangeInBool("active", false))

	opened := time.Date(2024, 7, 1, 0, 0, 0, 0, time.Local)
	assert.False(t, cmd.IsChangeInLocalDate("openingDate", &opened))
	assert.True(t, cmd.IsChangeInLocalDate("openingDate", nil))
}

func TestCheckForUnsupportedParameters(t *testing.T) {
	cmd, _ := New(`{"name": "x", "bogus": 1}`)
	err := cmd.CheckForUnsupportedParameters("name", "parentId")
	require.Error(t, err)
	pe := validation.ParameterErrorsOf(err)
	require.Len(t, pe, 1)
	assert.Equal(t, "bogus", pe[0].ParameterName)

	assert.NoError(t, cmd.CheckForUnsupportedParameters("name", "bogus"))
}

func TestParams(t *testing.T) {
	cmd, _ := New(`{"a": "x", "b": 3, "c": null}`)
	p := cmd.Params()
	assert.Equal(t, "x", *p["a"])
	assert.Equal(t, "3", *p["b"])
	assert.Nil(t, p["c"])
}

package serializer

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/apihelper"
)

type office struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Hierarchy      string   `json:"hierarchy"`
	AllowedParents []office `json:"allowedParents,omitempty"`
	Extra          string   `json:"extra"`
}

var supported = ParameterSet("id", "name", "hierarchy", "allowedParents")

func TestSerializeFiltersRecursively(t *testing.T) {
	q, _ := url.ParseQuery("fields=id,allowedParents")
	data := office{ID: 1, Name: "HQ", Hierarchy: ".", Extra: "x",
		AllowedParents: []office{{ID: 2, Name: "Branch", Hierarchy: ".2.", Extra: "y"}}}

	b, err := Serialize(apihelper.Process(q), data, supported)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"extra":"x","allowedParents":[{"id":2,"extra":"y"}]}`, string(b))
}

func TestSerializeWithoutFields(t *testing.T) {
	b, err := Serialize(apihelper.Settings{}, []office{{ID: 1, Name: "HQ"}}, supported)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"name":"HQ","hierarchy":"","extra":""}]`, string(b))
}

func TestSerializePrettyPrint(t *testing.T) {
	b, err := Serialize(apihelper.Settings{PrettyPrint: true, Fields: []string{"id"}}, office{ID: 3}, supported)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "\n  \"id\": 3"))
}

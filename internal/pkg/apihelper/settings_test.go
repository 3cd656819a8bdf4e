package apihelper

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcess(t *testing.T) {
	q, _ := url.ParseQuery("fields=id,name, hierarchy,,name&prettyPrint=true&template=1&locale=en&dateFormat=dd+MMMM+yyyy")
	s := Process(q)
	assert.Equal(t, []string{"id", "name", "hierarchy"}, s.Fields)
	assert.True(t, s.PrettyPrint)
	assert.True(t, s.Template)
	assert.False(t, s.MakerCheckerable)
	assert.Equal(t, "en", s.Locale)
	assert.Equal(t, "dd MMMM yyyy", s.DateFormat)
	assert.True(t, s.HasFields())
}

func TestProcessDefaults(t *testing.T) {
	s := Process(url.Values{"prettyPrint": {"yes"}})
	assert.False(t, s.PrettyPrint)
	assert.False(t, s.HasFields())
}

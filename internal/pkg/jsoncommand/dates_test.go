package jsoncommand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
)

func TestConvertDatePattern(t *testing.T) {
	cases := map[string]string{
		"dd MMMM yyyy":          "02 January 2006",
		"yyyy-MM-dd":            "2006-01-02",
		"d/M/yy":                "2/1/06",
		"dd MMM yyyy HH:mm":     "02 Jan 2006 15:04",
		"yyyy-MM-dd'T'HH:mm:ss": "2006-01-02T15:04:05",
	}
	for in, want := range cases {
		assert.Equal(t, want, ConvertDatePattern(in), in)
	}
}

func TestParseLocalDate(t *testing.T) {
	d, err := ParseLocalDate("5 march 2021", "d MMMM yyyy", "en")
	require.NoError(t, err)
	assert.Equal(t, []int{2021, 3, 5}, FormatLocalDate(d))

	_, err = ParseLocalDate("2021-03-05", "dd MMMM yyyy", "en")
	assert.Error(t, err)
}

func TestDateLocale(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		locale  string
		ok      bool
	}{
		{"english names", "dd MMMM yyyy", "en_GB", true},
		{"default locale", "dd MMM yyyy", "", true},
		{"numeric pattern any locale", "dd/MM/yyyy", "fr", true},
		{"quoted text", "yyyy-MM-dd'EMMM'", "de", true},
		{"french month names", "dd MMMM yyyy", "fr", false},
		{"weekday names", "EEE dd/MM/yyyy", "pt-BR", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDateLocale(tt.pattern, tt.locale)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.True(t, errors.IsCode(err, code.ErrValidation))
			pe := validation.ParameterErrorsOf(err)
			require.Len(t, pe, 1)
			assert.Equal(t, ParamLocale, pe[0].ParameterName)
			assert.Equal(t, "validation.msg.locale.not.supported", pe[0].UserMessageGlobalisationCode)
		})
	}
}

func TestLocalDateRejectsForeignMonthNames(t *testing.T) {
	cmd, err := New(`{"openingDate": "01 juillet 2024", "dateFormat": "dd MMMM yyyy", "locale": "fr"}`)
	require.NoError(t, err)
	_, err = cmd.LocalDate("openingDate")
	pe := validation.ParameterErrorsOf(err)
	require.Len(t, pe, 1)
	assert.Equal(t, ParamLocale, pe[0].ParameterName)

	cmd, err = New(`{"openingDate": "01/07/2024", "dateFormat": "dd/MM/yyyy", "locale": "fr"}`)
	require.NoError(t, err)
	d, err := cmd.LocalDate("openingDate")
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 7, 1}, FormatLocalDate(*d))
}

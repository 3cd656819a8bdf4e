package office

import (
	"time"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
)

const resourceName = "office"

// officeForm 请求体中读取到的机构字段.
type officeForm struct {
	Name        string
	ParentID    *int64
	OpeningDate *time.Time
	ExternalID  *string
	OfficeType  *int64
	CityID      *int64
	StateID     *int64
	CountryID   *int64
}

// readForm 类型错误优先返回，其余参数错误一次性收集.
func readForm(cmd *jsoncommand.JsonCommand, create bool) (*officeForm, error) {
	if err := cmd.CheckForUnsupportedParameters(supportedParameters...); err != nil {
		return nil, err
	}
	var (
		f   = &officeForm{Name: cmd.String(ParamName), ExternalID: emptyToNil(cmd.StringPtr(ParamExternalID))}
		err error
	)
	if f.ParentID, err = cmd.Long(ParamParentID); err != nil {
		return nil, err
	}
	if f.OpeningDate, err = cmd.LocalDate(ParamOpeningDate); err != nil {
		return nil, err
	}
	if f.OfficeType, err = cmd.Long(ParamOfficeType); err != nil {
		return nil, err
	}
	if f.CityID, err = cmd.Long(ParamCity); err != nil {
		return nil, err
	}
	if f.StateID, err = cmd.Long(ParamState); err != nil {
		return nil, err
	}
	if f.CountryID, err = cmd.Long(ParamCountry); err != nil {
		return nil, err
	}

	b := validation.NewDataValidatorBuilder(resourceName)
	if create || cmd.ParameterExists(ParamName) {
		b.Parameter(ParamName).Value(cmd.StringPtr(ParamName)).NotBlank().NotExceedingLengthOf(50)
	}
	if create || cmd.ParameterExists(ParamParentID) {
		b.Parameter(ParamParentID).Value(f.ParentID).NotNull().LongGreaterThanZero()
	}
	if create || cmd.ParameterExists(ParamOpeningDate) {
		b.Parameter(ParamOpeningDate).Value(f.OpeningDate).NotNull()
	}
	b.Parameter(ParamExternalID).Value(f.ExternalID).IgnoreIfNull().NotExceedingLengthOf(100)
	b.Parameter(ParamOfficeType).Value(f.OfficeType).IgnoreIfNull().LongGreaterThanZero()

	b.Parameter(ParamAddressName).Value(cmd.StringPtr(ParamAddressName)).IgnoreIfNull().NotExceedingLengthOf(100)
	b.Parameter(ParamLine1).Value(cmd.StringPtr(ParamLine1)).IgnoreIfNull().NotExceedingLengthOf(500)
	b.Parameter(ParamLine2).Value(cmd.StringPtr(ParamLine2)).IgnoreIfNull().NotExceedingLengthOf(500)
	b.Parameter(ParamZip).Value(cmd.StringPtr(ParamZip)).IgnoreIfNull().NotExceedingLengthOf(20)
	b.Parameter(ParamPhoneNumber).Value(cmd.StringPtr(ParamPhoneNumber)).IgnoreIfNull().NotExceedingLengthOf(20)
	b.Parameter(ParamCity).Value(f.CityID).IgnoreIfNull().LongGreaterThanZero()
	b.Parameter(ParamState).Value(f.StateID).IgnoreIfNull().LongGreaterThanZero()
	b.Parameter(ParamCountry).Value(f.CountryID).IgnoreIfNull().LongGreaterThanZero()
	if email := cmd.String(ParamEmail); email != "" {
		emailCheck := b.Parameter(ParamEmail).Value(email).NotExceedingLengthOf(100)
		if validation.Validator().Var(email, "email") != nil {
			emailCheck.FailWithCode("invalid.format", "The parameter %s is not a valid email address.", ParamEmail)
		}
	}
	if err := b.ThrowIfAny(); err != nil {
		return nil, err
	}
	return f, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// Package office 机构查询与机构命令处理.
package office

import (
	"context"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/address"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/codevalue"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/security"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/cache"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
)

// 机构命令支持的参数
const (
	ParamName        = "name"
	ParamParentID    = "parentId"
	ParamOpeningDate = "openingDate"
	ParamExternalID  = "externalId"
	ParamOfficeType  = "officeType"

	ParamAddressName = "addressName"
	ParamLine1       = "line1"
	ParamLine2       = "line2"
	ParamCity        = "city"
	ParamState       = "state"
	ParamCountry     = "country"
	ParamZip         = "zip"
	ParamPhoneNumber = "phoneNumber"
	ParamEmail       = "email"
)

var supportedParameters = []string{
	ParamName, ParamParentID, ParamOpeningDate, ParamExternalID, ParamOfficeType,
	jsoncommand.ParamDateFormat, jsoncommand.ParamLocale,
	ParamAddressName, ParamLine1, ParamLine2, ParamCity, ParamState, ParamCountry,
	ParamZip, ParamPhoneNumber, ParamEmail,
}

type OfficeSrv interface {
	// RetrieveAllOffices 当前用户所在机构及其全部下级，按 hierarchy 排序.
	RetrieveAllOffices(ctx context.Context) ([]v1.OfficeData, error)
	RetrieveOffice(ctx context.Context, id int64) (*v1.OfficeData, error)
	RetrieveNewOfficeTemplate(ctx context.Context) (*v1.OfficeData, error)
	RetrieveWithTemplate(ctx context.Context, office *v1.OfficeData) (*v1.OfficeData, error)

	CreateOffice(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)
	UpdateOffice(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)

	InvalidateCache(ctx context.Context)
}

type OfficeService struct {
	Store      interfaces.Factory
	Security   security.SecuritySrv
	CodeValues codevalue.CodeValueSrv
	Addresses  address.AddressSrv
	Cache      *cache.Store
}

var _ OfficeSrv = (*OfficeService)(nil)

func NewOfficeService(store interfaces.Factory, sec security.SecuritySrv, cv codevalue.CodeValueSrv,
	addr address.AddressSrv, c *cache.Store,
) *OfficeService {
	return &OfficeService{Store: store, Security: sec, CodeValues: cv, Addresses: addr, Cache: c}
}

// InvalidateCache 机构变更后清理全部机构缓存，层级改写会影响多个子树.
func (s *OfficeService) InvalidateCache(ctx context.Context) {
	s.Cache.DeletePattern(ctx, cache.OfficePattern())
}

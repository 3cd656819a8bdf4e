// Package datatable 扩展数据表：注册、结构变更与通用的行读写.
package datatable

import (
	"context"
	"strings"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/security"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/cache"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/server/bloomfilter"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/storage"
)

// 数据表命令的实体与权限
const (
	EntityDatatable           = "DATATABLE"
	PermissionRegister        = "REGISTER_DATATABLE"
	PermissionDeregister      = "DEREGISTER_DATATABLE"
	DefaultPermissionGrouping = "datatable"
	DefaultRegisteredCategory = 100
	codeLookupSeparator       = "_cd_"
	multiRowPrimaryKey        = "id"
	applicationTablePrefix    = "m_"
	datatablesPathSegment     = "datatables/"
	scoreColumn               = "score"
)

type DatatableSrv interface {
	RetrieveDatatableNames(ctx context.Context, appTable string) ([]v1.DatatableData, error)
	RetrieveSingleDatatable(ctx context.Context, datatable string) (*v1.DatatableData, error)
	RetrieveDataTableGenericResultSet(ctx context.Context, datatable string, appTableID int64, order string, id int64) (*v1.GenericResultsetData, error)

	RegisterDatatable(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)
	RegisterDatatableFor(ctx context.Context, tx interfaces.Factory, datatable, appTable string) error
	RegisterDatatableWithPermissionTable(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand, permissionTable string) (*v1.CommandProcessingResult, error)
	DeregisterDatatable(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)

	CreateDatatable(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)
	UpdateDatatable(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)
	DeleteDatatable(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)

	CreateNewDatatableEntry(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)
	CreatePPIEntry(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)
	UpdateDatatableEntryOneToOne(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)
	UpdateDatatableEntryOneToMany(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)
	DeleteDatatableEntries(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)
	DeleteDatatableEntry(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error)

	// RegisteredNames 供布隆过滤器加载.
	RegisteredNames(ctx context.Context) ([]string, error)
	InvalidateCache(ctx context.Context, datatable string)
}

type DatatableService struct {
	Store    interfaces.Factory
	Security security.SecuritySrv
	Redis    *storage.RedisCluster
	Options  *options.DatatableOptions
	Locks    *options.DistributedLockOptions
	Names    *bloomfilter.NameFilter
	Cache    *cache.Store
}

var _ DatatableSrv = (*DatatableService)(nil)

func NewDatatableService(store interfaces.Factory, sec security.SecuritySrv, rc *storage.RedisCluster,
	opts *options.DatatableOptions, locks *options.DistributedLockOptions, names *bloomfilter.NameFilter, c *cache.Store,
) *DatatableService {
	if opts == nil {
		opts = options.NewDatatableOptions()
	}
	if locks == nil {
		locks = options.NewDistributedLockOptions()
	}
	return &DatatableService{Store: store, Security: sec, Redis: rc, Options: opts, Locks: locks, Names: names, Cache: c}
}

func (s *DatatableService) RegisteredNames(ctx context.Context) ([]string, error) {
	tables, err := s.Store.Datatables().ListRegistered(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	return names, nil
}

// InvalidateCache datatable 为空时清空全部数据表缓存.
func (s *DatatableService) InvalidateCache(ctx context.Context, datatable string) {
	if datatable == "" {
		s.Cache.DeletePattern(ctx, cache.DatatablePattern())
		return
	}
	s.Cache.Delete(ctx, cache.DatatableKey(datatable))
}

// GetTableName 取 url 中 datatables/ 之后到下一个 / 之前的部分，查询串原样保留.
func GetTableName(url string) string {
	i := strings.Index(url, datatablesPathSegment)
	if i < 0 {
		return ""
	}
	name := url[i+len(datatablesPathSegment):]
	if j := strings.Index(name, "/"); j >= 0 {
		name = name[:j]
	}
	return name
}

// GetDataTableName 同 GetTableName，并去掉查询串.
func GetDataTableName(url string) string {
	name := GetTableName(url)
	if j := strings.Index(name, "?"); j >= 0 {
		name = name[:j]
	}
	return name
}

// foreignKeyColumn m_office -> office_id.
func foreignKeyColumn(appTable string) string {
	return strings.TrimPrefix(appTable, applicationTablePrefix) + "_id"
}

// codeMappingAlias 下拉列映射的键.
func codeMappingAlias(datatable, column string) string {
	return datatable + "_" + column
}

func codeLookupColumn(code, name string) string {
	return code + codeLookupSeparator + name
}

// normalizeName 去掉首尾空白，中间空白替换为下划线.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), "_")
}

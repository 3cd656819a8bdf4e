package v1

import (
	"context"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/options"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/address"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/codevalue"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/commandsource"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/datatable"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/office"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/security"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/audit"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/cache"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/server/bloomfilter"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/server/producer"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/storage"
)

// 缓存指标名
const (
	cacheOffice    = "office"
	cacheCodeValue = "codevalue"
	cacheAddress   = "address"
	cacheDatatable = "datatable"
)

// ServiceSrv 持有全部业务服务，启动时装配一次.
type ServiceSrv struct {
	Store    interfaces.Factory
	Redis    *storage.RedisCluster
	Options  *options.Options
	Names    *bloomfilter.NameFilter
	Producer producer.MessageProducer
	Audit    *audit.Manager

	security   *security.SecurityService
	codeValues *codevalue.CodeValueService
	addresses  *address.AddressService
	offices    *office.OfficeService
	datatables *datatable.DatatableService
	commands   *commandsource.CommandSourceService
}

type ServiceManager interface {
	Security() security.SecuritySrv
	CodeValues() codevalue.CodeValueSrv
	Addresses() address.AddressSrv
	Offices() office.OfficeSrv
	Datatables() datatable.DatatableSrv
	Commands() commandsource.CommandSourceSrv
	CacheInvalidator
}

var _ ServiceManager = (*ServiceSrv)(nil)

func (s *ServiceSrv) Security() security.SecuritySrv {
	return s.security
}

func (s *ServiceSrv) CodeValues() codevalue.CodeValueSrv {
	return s.codeValues
}

func (s *ServiceSrv) Addresses() address.AddressSrv {
	return s.addresses
}

func (s *ServiceSrv) Offices() office.OfficeSrv {
	return s.offices
}

func (s *ServiceSrv) Datatables() datatable.DatatableSrv {
	return s.datatables
}

func (s *ServiceSrv) Commands() commandsource.CommandSourceSrv {
	return s.commands
}

// NewService 装配各业务服务并登记命令处理器；redis、producer 可以为 nil.
func NewService(store interfaces.Factory,
	redis *storage.RedisCluster,
	opts *options.Options,
	p producer.MessageProducer,
	am *audit.Manager) (*ServiceSrv, error) {
	s := &ServiceSrv{
		Store:    store,
		Redis:    redis,
		Options:  opts,
		Producer: p,
		Audit:    am,
	}
	ttl := opts.ServerRunOptions.CacheTTL

	s.security = security.NewSecurityService(store)
	s.codeValues = codevalue.NewCodeValueService(store, cache.New(redis, cacheCodeValue, ttl))
	s.addresses = address.NewAddressService(store, cache.New(redis, cacheAddress, ttl))
	s.offices = office.NewOfficeService(store, s.security, s.codeValues, s.addresses,
		cache.New(redis, cacheOffice, ttl))

	// 过滤器的加载依赖数据表服务，先建过滤器再回填
	s.Names = bloomfilter.New(opts.BloomFilterOptions, func(ctx context.Context) ([]string, error) {
		return s.datatables.RegisteredNames(ctx)
	})
	s.datatables = datatable.NewDatatableService(store, s.security, redis, opts.DatatableOptions,
		opts.DistributedLock, s.Names, cache.New(redis, cacheDatatable, opts.DatatableOptions.CacheTTL))

	registry := commandsource.NewRegistry()
	s.registerHandlers(registry)
	s.commands = commandsource.NewCommandSourceService(store, s.security, registry, opts.CommandOptions, p, am)
	s.commands.AddListener(s.Invalidate)
	return s, nil
}

func (s *ServiceSrv) registerHandlers(r *commandsource.Registry) {
	r.Register(commandsource.EntityOffice, commandsource.ActionCreate, s.offices.CreateOffice)
	r.Register(commandsource.EntityOffice, commandsource.ActionUpdate, s.offices.UpdateOffice)

	r.Register(commandsource.EntityDatatable, commandsource.ActionCreate, s.datatables.CreateDatatable)
	r.Register(commandsource.EntityDatatable, commandsource.ActionUpdate, s.datatables.UpdateDatatable)
	r.Register(commandsource.EntityDatatable, commandsource.ActionDelete, s.datatables.DeleteDatatable)
	r.Register(commandsource.EntityDatatable, commandsource.ActionRegister, s.datatables.RegisterDatatable)
	r.Register(commandsource.EntityDatatable, commandsource.ActionDeregister, s.datatables.DeregisterDatatable)

	r.RegisterEntry(commandsource.ActionCreate, false, s.datatables.CreateNewDatatableEntry)
	r.RegisterEntry(commandsource.ActionUpdate, false, s.datatables.UpdateDatatableEntryOneToOne)
	r.RegisterEntry(commandsource.ActionUpdate, true, s.datatables.UpdateDatatableEntryOneToMany)
	r.RegisterEntry(commandsource.ActionDelete, false, s.datatables.DeleteDatatableEntries)
	r.RegisterEntry(commandsource.ActionDelete, true, s.datatables.DeleteDatatableEntry)
	r.RegisterSurvey(s.datatables.CreatePPIEntry)
}

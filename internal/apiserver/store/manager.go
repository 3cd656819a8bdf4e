package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"gorm.io/gorm"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/address"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/codevalue"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/command"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/datatable"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/office"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/schema"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/security"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

var (
	mysqlFactory interfaces.Factory
	once         sync.Once
)

// Datastore 基于 gorm 的 Factory 实现，事务内外共用.
type Datastore struct {
	DB *gorm.DB
}

// NewDatastore 包装已打开的连接.
func NewDatastore(db *gorm.DB) *Datastore {
	return &Datastore{DB: db}
}

func newOffices(ds *Datastore) interfaces.OfficeStore {
	return office.NewOffices(ds.DB)
}

func newCodeValues(ds *Datastore) interfaces.CodeValueStore {
	return codevalue.NewCodeValues(ds.DB)
}

func newAddresses(ds *Datastore) interfaces.AddressStore {
	return address.NewAddresses(ds.DB)
}

func newCommands(ds *Datastore) interfaces.CommandStore {
	return command.NewCommands(ds.DB)
}

func newDatatables(ds *Datastore) interfaces.DatatableStore {
	return datatable.NewDatatables(ds.DB)
}

func newSecurity(ds *Datastore) interfaces.SecurityStore {
	return security.NewSecurity(ds.DB)
}

func (ds *Datastore) Offices() interfaces.OfficeStore {
	return newOffices(ds)
}

func (ds *Datastore) CodeValues() interfaces.CodeValueStore {
	return newCodeValues(ds)
}

func (ds *Datastore) Addresses() interfaces.AddressStore {
	return newAddresses(ds)
}

func (ds *Datastore) Commands() interfaces.CommandStore {
	return newCommands(ds)
}

func (ds *Datastore) Datatables() interfaces.DatatableStore {
	return newDatatables(ds)
}

func (ds *Datastore) Security() interfaces.SecurityStore {
	return newSecurity(ds)
}

// Transaction fn 返回错误或 panic 时回滚.
// mysql 的 DDL 会隐式提交，数据表结构变更不依赖这里的回滚.
func (ds *Datastore) Transaction(ctx context.Context, fn func(tx interfaces.Factory) error) error {
	return ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Datastore{DB: tx})
	})
}

// GetMySQLFactoryOr 首次调用时按 opts 打开数据库，之后返回同一实例.
func GetMySQLFactoryOr(opts *options.MySQLOptions) (interfaces.Factory, *gorm.DB, error) {
	if opts == nil && mysqlFactory == nil {
		return nil, nil, fmt.Errorf("获取mysql store factory失败")
	}
	var err error
	var dbIns *gorm.DB

	once.Do(func() {
		dbIns, err = opts.NewClient()
		if err != nil {
			return
		}
		if opts.AutoMigrate {
			if err = schema.Migrate(dbIns); err != nil {
				return
			}
			err = schema.Seed(dbIns, schema.SeedOptions{
				HeadOfficeName: opts.HeadOfficeName,
				AdminUsername:  opts.AdminUsername,
				AdminPassword:  opts.AdminPassword,
			})
			if err != nil {
				return
			}
			log.Infof("核心表迁移完成: driver=%s", opts.Driver)
		}
		mysqlFactory = &Datastore{dbIns}
	})
	if mysqlFactory == nil || err != nil {
		return nil, nil, fmt.Errorf("failed to get mysql store fatory, mysqlFactory: %+v, error: %w", mysqlFactory, err)
	}
	if dbIns == nil {
		dbIns = mysqlFactory.(*Datastore).DB
	}
	return mysqlFactory, dbIns, nil
}

func (ds *Datastore) Close() error {
	db, err := ds.DB.DB()
	if err != nil {
		return errors.WithMessage(err, "get gorm db instance failed")
	}

	return db.Close()
}
